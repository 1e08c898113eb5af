package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const minVehicleYear = 1950

// Interest describes the vehicle a prospect is looking for
type Interest struct {
	Model string `json:"model"`
	Trim  string `json:"trim,omitempty"`
	Color string `json:"color,omitempty"`
}

// Normalized trims the interest fields and requires a model
func (i Interest) Normalized() (Interest, error) {
	out := Interest{
		Model: strings.TrimSpace(i.Model),
		Trim:  strings.TrimSpace(i.Trim),
		Color: strings.TrimSpace(i.Color),
	}
	if out.Model == "" {
		return Interest{}, NewValidationError("interest.model", ValidationReasonMissingRequiredField, "")
	}
	return out, nil
}

// UsedVehicle describes a customer's vehicle offered as a trade-in
type UsedVehicle struct {
	Brand                       string           `json:"brand"`
	Model                       string           `json:"model"`
	Year                        int              `json:"year"`
	Mileage                     int              `json:"mileage"`
	Plate                       LicensePlate     `json:"plate,omitempty"`
	Color                       string           `json:"color,omitempty"`
	Condition                   VehicleCondition `json:"condition,omitempty"`
	HasDealershipServiceHistory bool             `json:"hasDealershipServiceHistory"`
}

// Normalized validates the description. Plate and condition are mandatory for appraisals but
// optional when the vehicle is only mentioned during qualification.
func (v UsedVehicle) Normalized(forAppraisal bool) (UsedVehicle, error) {
	out := v
	out.Brand = strings.TrimSpace(v.Brand)
	out.Model = strings.TrimSpace(v.Model)
	out.Color = strings.TrimSpace(v.Color)

	if out.Brand == "" {
		return UsedVehicle{}, NewValidationError("vehicle.brand", ValidationReasonMissingRequiredField, "")
	}
	if out.Model == "" {
		return UsedVehicle{}, NewValidationError("vehicle.model", ValidationReasonMissingRequiredField, "")
	}
	if out.Year < minVehicleYear || out.Year > time.Now().Year()+1 {
		return UsedVehicle{}, NewValidationError("vehicle.year", ValidationReasonOutOfRange, "")
	}
	if out.Mileage < 0 {
		return UsedVehicle{}, NewValidationError("vehicle.mileage", ValidationReasonOutOfRange, "mileage cannot be negative")
	}

	if out.Plate != "" || forAppraisal {
		plate, err := NewLicensePlate(string(v.Plate))
		if err != nil {
			return UsedVehicle{}, err
		}
		out.Plate = plate
	}

	if out.Condition != "" || forAppraisal {
		condition, err := ParseVehicleCondition(string(v.Condition))
		if err != nil {
			return UsedVehicle{}, err
		}
		out.Condition = condition
	}
	return out, nil
}

// VehicleTerms describes the new vehicle a proposal is priced for
type VehicleTerms struct {
	VehicleID        *uuid.UUID `json:"vehicleId,omitempty"`
	Model            string     `json:"model"`
	Trim             string     `json:"trim,omitempty"`
	Color            string     `json:"color,omitempty"`
	Year             int        `json:"year"`
	ReadyForDelivery bool       `json:"readyForDelivery"`
}

// Normalized validates the vehicle terms
func (v VehicleTerms) Normalized() (VehicleTerms, error) {
	out := v
	out.Model = strings.TrimSpace(v.Model)
	out.Trim = strings.TrimSpace(v.Trim)
	out.Color = strings.TrimSpace(v.Color)

	if out.Model == "" {
		return VehicleTerms{}, NewValidationError("vehicle.model", ValidationReasonMissingRequiredField, "")
	}
	if out.Year < minVehicleYear || out.Year > time.Now().Year()+1 {
		return VehicleTerms{}, NewValidationError("vehicle.year", ValidationReasonOutOfRange, "")
	}
	return out, nil
}
