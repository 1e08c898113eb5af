package services

import (
	"context"
	"testing"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

func validForm() FormPayload {
	return FormPayload{
		"name":  "Maria da Silva",
		"email": "maria@example.com",
		"phone": "21998765432",
	}
}

func TestValidateForm_Valid(t *testing.T) {
	validator := NewValidator()

	result := validator.ValidateForm(context.Background(), validForm())

	if !result.Valid {
		t.Fatalf("Expected form to be valid, got errors %v", result.Errors)
	}
	if result.Err != nil {
		t.Errorf("Expected no error, got %v", result.Err)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Expected no error messages, got %v", result.Errors)
	}
}

func TestValidateForm_Rejections(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name       string
		mutate     func(FormPayload)
		wantField  string
		wantReason models.ValidationReason
	}{
		{"missing name", func(p FormPayload) { delete(p, "name") }, "name", models.ValidationReasonMissingRequiredField},
		{"empty name", func(p FormPayload) { p["name"] = "" }, "name", models.ValidationReasonMissingRequiredField},
		{"name not a string", func(p FormPayload) { p["name"] = 42 }, "name", models.ValidationReasonMissingRequiredField},
		{"missing email", func(p FormPayload) { delete(p, "email") }, "email", models.ValidationReasonMissingRequiredField},
		{"null email", func(p FormPayload) { p["email"] = nil }, "email", models.ValidationReasonMissingRequiredField},
		{"malformed email", func(p FormPayload) { p["email"] = "maria.example.com" }, "email", models.ValidationReasonInvalidFormat},
		{"email not a string", func(p FormPayload) { p["email"] = true }, "email", models.ValidationReasonInvalidFormat},
		{"missing phone", func(p FormPayload) { delete(p, "phone") }, "phone", models.ValidationReasonMissingRequiredField},
		{"short phone", func(p FormPayload) { p["phone"] = "12345" }, "phone", models.ValidationReasonInvalidFormat},
		{"phone as number", func(p FormPayload) { p["phone"] = 21998765432.0 }, "phone", models.ValidationReasonInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validForm()
			tt.mutate(payload)

			result := validator.ValidateForm(context.Background(), payload)

			if result.Valid {
				t.Fatal("Expected validation to fail")
			}
			if result.Err == nil {
				t.Fatal("Expected a validation error")
			}
			if result.Err.Field != tt.wantField {
				t.Errorf("Expected field %q, got %q", tt.wantField, result.Err.Field)
			}
			if result.Err.Reason != tt.wantReason {
				t.Errorf("Expected reason %s, got %s", tt.wantReason, result.Err.Reason)
			}
			if len(result.Errors) != 1 {
				t.Errorf("Expected exactly one error message, got %v", result.Errors)
			}
		})
	}
}

// Validation stops at the first failing rule, in name, email, phone order
func TestValidateForm_StopsAtFirstFailure(t *testing.T) {
	validator := NewValidator()

	result := validator.ValidateForm(context.Background(), FormPayload{})

	if result.Valid {
		t.Fatal("Expected validation to fail")
	}
	if result.Err.Field != "name" {
		t.Errorf("Expected the name rule to fail first, got %q", result.Err.Field)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Expected a single error, got %v", result.Errors)
	}
}

func TestValidateAndGetError(t *testing.T) {
	validator := NewValidator()
	ctx := context.Background()

	if err := validator.ValidateAndGetError(ctx, validForm()); err != nil {
		t.Errorf("Expected nil error for valid form, got %v", err)
	}

	payload := validForm()
	payload["email"] = "nope"
	err := validator.ValidateAndGetError(ctx, payload)
	if err == nil {
		t.Fatal("Expected an error for invalid form")
	}
	if !models.IsValidationError(err) {
		t.Errorf("Expected a ValidationError, got %T", err)
	}
}
