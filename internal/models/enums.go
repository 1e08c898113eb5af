package models

import "strings"

// parseLabel matches label case-insensitively against the allowed values
func parseLabel[T ~string](field, label string, allowed []T) (T, error) {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return "", NewValidationError(field, ValidationReasonMissingRequiredField, "")
	}
	for _, value := range allowed {
		if strings.ToLower(string(value)) == key {
			return value, nil
		}
	}
	return "", NewValidationError(field, ValidationReasonUnrecognizedValue, label)
}

// LeadSource is the channel a lead was acquired through
type LeadSource string

const (
	LeadSourceWebsite    LeadSource = "Website"
	LeadSourceInstagram  LeadSource = "Instagram"
	LeadSourceFacebook   LeadSource = "Facebook"
	LeadSourceIndication LeadSource = "Indication"
	LeadSourceWalkIn     LeadSource = "WalkIn"
	LeadSourceGoogle     LeadSource = "Google"
	LeadSourceStore      LeadSource = "Store"
	LeadSourcePhone      LeadSource = "Phone"
	LeadSourceWhatsApp   LeadSource = "WhatsApp"
	LeadSourceOther      LeadSource = "Other"
)

var leadSources = []LeadSource{
	LeadSourceWebsite, LeadSourceInstagram, LeadSourceFacebook, LeadSourceIndication,
	LeadSourceWalkIn, LeadSourceGoogle, LeadSourceStore, LeadSourcePhone,
	LeadSourceWhatsApp, LeadSourceOther,
}

// ParseLeadSource validates an acquisition source label
func ParseLeadSource(label string) (LeadSource, error) {
	return parseLabel("source", label, leadSources)
}

// InteractionType classifies a contact with the prospect
type InteractionType string

const (
	InteractionTypeCall     InteractionType = "Call"
	InteractionTypeEmail    InteractionType = "Email"
	InteractionTypeWhatsApp InteractionType = "WhatsApp"
	InteractionTypeVisit    InteractionType = "Visit"
	InteractionTypeMeeting  InteractionType = "Meeting"
	InteractionTypeNote     InteractionType = "Note"
)

var interactionTypes = []InteractionType{
	InteractionTypeCall, InteractionTypeEmail, InteractionTypeWhatsApp,
	InteractionTypeVisit, InteractionTypeMeeting, InteractionTypeNote,
}

// ParseInteractionType validates an interaction type label
func ParseInteractionType(label string) (InteractionType, error) {
	return parseLabel("type", label, interactionTypes)
}

// PaymentMethod is how the customer intends to pay
type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "Cash"
	PaymentMethodFinancing  PaymentMethod = "Financing"
	PaymentMethodConsortium PaymentMethod = "Consortium"
	PaymentMethodLeasing    PaymentMethod = "Leasing"
)

var paymentMethods = []PaymentMethod{
	PaymentMethodCash, PaymentMethodFinancing, PaymentMethodConsortium, PaymentMethodLeasing,
}

// ParsePaymentMethod validates a payment method label
func ParsePaymentMethod(label string) (PaymentMethod, error) {
	return parseLabel("paymentMethod", label, paymentMethods)
}

// PurchaseTimeframe is when the prospect expects to buy
type PurchaseTimeframe string

const (
	PurchaseTimeframeImmediate  PurchaseTimeframe = "Immediate"
	PurchaseTimeframeUpTo15Days PurchaseTimeframe = "UpTo15Days"
	PurchaseTimeframeUpTo30Days PurchaseTimeframe = "UpTo30Days"
	PurchaseTimeframeOver30Days PurchaseTimeframe = "Over30Days"
)

var purchaseTimeframes = []PurchaseTimeframe{
	PurchaseTimeframeImmediate, PurchaseTimeframeUpTo15Days,
	PurchaseTimeframeUpTo30Days, PurchaseTimeframeOver30Days,
}

// ParsePurchaseTimeframe validates a purchase timeframe label
func ParsePurchaseTimeframe(label string) (PurchaseTimeframe, error) {
	return parseLabel("expectedPurchaseTimeframe", label, purchaseTimeframes)
}

// FuelLevel is the tank level recorded on a test-drive checklist
type FuelLevel string

const (
	FuelLevelEmpty        FuelLevel = "Empty"
	FuelLevelQuarter      FuelLevel = "Quarter"
	FuelLevelHalf         FuelLevel = "Half"
	FuelLevelThreeQuarter FuelLevel = "ThreeQuarters"
	FuelLevelFull         FuelLevel = "Full"
)

var fuelLevels = []FuelLevel{
	FuelLevelEmpty, FuelLevelQuarter, FuelLevelHalf, FuelLevelThreeQuarter, FuelLevelFull,
}

// ParseFuelLevel validates a fuel level label
func ParseFuelLevel(label string) (FuelLevel, error) {
	return parseLabel("fuelLevel", label, fuelLevels)
}

// VehicleCondition is the overall state of a trade-in vehicle as declared by the customer
type VehicleCondition string

const (
	VehicleConditionExcellent VehicleCondition = "Excellent"
	VehicleConditionGood      VehicleCondition = "Good"
	VehicleConditionFair      VehicleCondition = "Fair"
	VehicleConditionPoor      VehicleCondition = "Poor"
)

var vehicleConditions = []VehicleCondition{
	VehicleConditionExcellent, VehicleConditionGood, VehicleConditionFair, VehicleConditionPoor,
}

// ParseVehicleCondition validates a vehicle condition label
func ParseVehicleCondition(label string) (VehicleCondition, error) {
	return parseLabel("condition", label, vehicleConditions)
}
