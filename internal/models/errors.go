package models

import (
	"errors"
	"fmt"
)

// ValidationReason describes why a value was rejected
type ValidationReason string

const (
	// ValidationReasonInvalidFormat indicates the value does not match the expected format
	ValidationReasonInvalidFormat ValidationReason = "INVALID_FORMAT"

	// ValidationReasonMissingRequiredField indicates a required field is empty or absent
	ValidationReasonMissingRequiredField ValidationReason = "MISSING_REQUIRED_FIELD"

	// ValidationReasonUnrecognizedValue indicates an enumerated label is not one of the accepted values
	ValidationReasonUnrecognizedValue ValidationReason = "UNRECOGNIZED_VALUE"

	// ValidationReasonOutOfRange indicates a numeric or temporal value is outside its allowed range
	ValidationReasonOutOfRange ValidationReason = "OUT_OF_RANGE"
)

// String returns the string representation of the validation reason
func (r ValidationReason) String() string {
	return string(r)
}

// ValidationError represents malformed caller input
type ValidationError struct {
	Field  string
	Reason ValidationReason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("validation error on field '%s': %s (%s)", e.Field, e.Reason, e.Detail)
	}
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Reason)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, reason ValidationReason, detail string) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: reason,
		Detail: detail,
	}
}

// NotFoundError represents a reference to an entity that does not exist
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// DomainCode identifies the business rule that was violated
type DomainCode string

const (
	DomainCodeInvalidTransition       DomainCode = "INVALID_TRANSITION"
	DomainCodeProposalLocked          DomainCode = "PROPOSAL_LOCKED"
	DomainCodeDiscountPendingApproval DomainCode = "DISCOUNT_PENDING_APPROVAL"
	DomainCodeVehicleUnavailable      DomainCode = "VEHICLE_UNAVAILABLE"
	DomainCodeNegativeTotal           DomainCode = "NEGATIVE_TOTAL"
	DomainCodeEvaluationNotCompleted  DomainCode = "EVALUATION_NOT_COMPLETED"
	DomainCodeTestDriveNotDue         DomainCode = "TEST_DRIVE_NOT_DUE"
)

// DomainError represents a business-rule violation
type DomainError struct {
	Code    DomainCode
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error (%s): %s", e.Code, e.Message)
}

// NewDomainError creates a new DomainError
func NewDomainError(code DomainCode, format string, args ...any) *DomainError {
	return &DomainError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether err wraps a ValidationError
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsDomainError reports whether err wraps a DomainError
func IsDomainError(err error) bool {
	var target *DomainError
	return errors.As(err, &target)
}

// HasDomainCode reports whether err wraps a DomainError with the given code
func HasDomainCode(err error, code DomainCode) bool {
	var target *DomainError
	return errors.As(err, &target) && target.Code == code
}

// DeliveryError represents a failed attempt to publish a domain event downstream
type DeliveryError struct {
	StatusCode int
	Message    string
	Retriable  bool
	Err        error
}

func (e *DeliveryError) Error() string {
	retriableStr := "non-retriable"
	if e.Retriable {
		retriableStr = "retriable"
	}

	if e.StatusCode > 0 {
		if e.Err != nil {
			return fmt.Sprintf("delivery error (%s): HTTP %d - %s (caused by: %v)",
				retriableStr, e.StatusCode, e.Message, e.Err)
		}
		return fmt.Sprintf("delivery error (%s): HTTP %d - %s",
			retriableStr, e.StatusCode, e.Message)
	}

	if e.Err != nil {
		return fmt.Sprintf("delivery error (%s): %s (caused by: %v)",
			retriableStr, e.Message, e.Err)
	}
	return fmt.Sprintf("delivery error (%s): %s", retriableStr, e.Message)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsRetriable returns true if the delivery error should trigger a retry
func (e *DeliveryError) IsRetriable() bool {
	return e.Retriable
}

// NewDeliveryError creates a new DeliveryError
func NewDeliveryError(statusCode int, message string, retriable bool, err error) *DeliveryError {
	return &DeliveryError{
		StatusCode: statusCode,
		Message:    message,
		Retriable:  retriable,
		Err:        err,
	}
}
