package models

import (
	"regexp"
	"strings"
)

var (
	emailPattern      = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	phoneCharsPattern = regexp.MustCompile(`^[0-9+\-().\s]+$`)
	digitsPattern     = regexp.MustCompile(`\d+`)
	platePattern      = regexp.MustCompile(`^[A-Z]{3}[0-9][A-Z0-9][0-9]{2}$`)
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 13
)

// Email is a lower-cased, syntactically valid e-mail address
type Email string

// NewEmail trims, lower-cases and validates an e-mail address
func NewEmail(raw string) (Email, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", NewValidationError("email", ValidationReasonMissingRequiredField, "")
	}
	if !emailPattern.MatchString(email) {
		return "", NewValidationError("email", ValidationReasonInvalidFormat, email)
	}
	return Email(email), nil
}

// String returns the address
func (e Email) String() string {
	return string(e)
}

// Phone is a phone number reduced to its digits
type Phone string

// NewPhone strips formatting characters and validates the digit count
func NewPhone(raw string) (Phone, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", NewValidationError("phone", ValidationReasonMissingRequiredField, "")
	}
	if !phoneCharsPattern.MatchString(trimmed) {
		return "", NewValidationError("phone", ValidationReasonInvalidFormat, "phone contains invalid characters")
	}

	digits := strings.Join(digitsPattern.FindAllString(trimmed, -1), "")
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", NewValidationError("phone", ValidationReasonInvalidFormat, "phone must have between 10 and 13 digits")
	}
	return Phone(digits), nil
}

// String returns the digits
func (p Phone) String() string {
	return string(p)
}

// LicensePlate is a Brazilian plate in either the legacy (ABC1234) or Mercosul (ABC1D23) format
type LicensePlate string

// NewLicensePlate upper-cases the plate, drops separators and validates it
func NewLicensePlate(raw string) (LicensePlate, error) {
	plate := strings.ToUpper(strings.TrimSpace(raw))
	plate = strings.NewReplacer("-", "", " ", "").Replace(plate)
	if plate == "" {
		return "", NewValidationError("plate", ValidationReasonMissingRequiredField, "")
	}
	if !platePattern.MatchString(plate) {
		return "", NewValidationError("plate", ValidationReasonInvalidFormat, plate)
	}
	return LicensePlate(plate), nil
}

// String returns the normalized plate
func (p LicensePlate) String() string {
	return string(p)
}
