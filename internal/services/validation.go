package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// ValidationResult represents the outcome of validating a lead form
type ValidationResult struct {
	Valid  bool
	Err    *models.ValidationError
	Errors []string
}

// Validator checks that a normalized form carries the contact data a lead needs
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateForm validates a normalized form payload. The first failing rule stops validation.
func (v *Validator) ValidateForm(ctx context.Context, payload FormPayload) *ValidationResult {
	result := &ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	rules := []func(FormPayload) *models.ValidationError{
		v.validateName,
		v.validateEmail,
		v.validatePhone,
	}
	for _, rule := range rules {
		if verr := rule(payload); verr != nil {
			logger.Debug(ctx, "Lead form rejected", "field", verr.Field, "reason", string(verr.Reason))
			result.Valid = false
			result.Err = verr
			result.Errors = append(result.Errors, verr.Error())
			return result
		}
	}

	return result
}

func (v *Validator) validateName(payload FormPayload) *models.ValidationError {
	name, ok := stringField(payload, "name")
	if !ok || name == "" {
		return models.NewValidationError("name", models.ValidationReasonMissingRequiredField, "")
	}
	return nil
}

func (v *Validator) validateEmail(payload FormPayload) *models.ValidationError {
	raw, ok := payload["email"]
	if !ok || raw == nil {
		return models.NewValidationError("email", models.ValidationReasonMissingRequiredField, "")
	}
	email, ok := raw.(string)
	if !ok {
		return models.NewValidationError("email", models.ValidationReasonInvalidFormat, fmt.Sprintf("expected a string, got %T", raw))
	}
	if _, err := models.NewEmail(email); err != nil {
		return asValidationError(err)
	}
	return nil
}

func (v *Validator) validatePhone(payload FormPayload) *models.ValidationError {
	raw, ok := payload["phone"]
	if !ok || raw == nil {
		return models.NewValidationError("phone", models.ValidationReasonMissingRequiredField, "")
	}
	phone, ok := raw.(string)
	if !ok {
		return models.NewValidationError("phone", models.ValidationReasonInvalidFormat, fmt.Sprintf("expected a string, got %T", raw))
	}
	if _, err := models.NewPhone(phone); err != nil {
		return asValidationError(err)
	}
	return nil
}

// ValidateAndGetError is a convenience method that validates and returns the failure as an error
func (v *Validator) ValidateAndGetError(ctx context.Context, payload FormPayload) error {
	result := v.ValidateForm(ctx, payload)
	if !result.Valid {
		return result.Err
	}
	return nil
}

// stringField returns a string attribute of the payload
func stringField(payload FormPayload, key string) (string, bool) {
	s, ok := payload[key].(string)
	return s, ok
}

func asValidationError(err error) *models.ValidationError {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return models.NewValidationError("", models.ValidationReasonInvalidFormat, err.Error())
}
