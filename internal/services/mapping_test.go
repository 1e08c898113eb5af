package services

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

var defaultOwner = uuid.MustParse("6f1c2a8e-3b7d-4c59-9e0a-2d4f8b1c7e35")

func TestMapToLead_RequiredFields(t *testing.T) {
	mapper := NewMapper(defaultOwner)

	result := mapper.MapToLead(context.Background(), validForm())

	if !result.Success {
		t.Fatalf("Expected mapping to succeed, got errors %v", result.Errors)
	}
	in := result.Input
	if in.Name != "Maria da Silva" || in.Email != "maria@example.com" || in.Phone != "21998765432" {
		t.Errorf("Expected contact fields to be copied, got %+v", in)
	}
	if in.Source != string(models.LeadSourceWebsite) {
		t.Errorf("Expected fallback source Website, got %q", in.Source)
	}
	if in.SalesPersonID != defaultOwner {
		t.Errorf("Expected default sales person, got %s", in.SalesPersonID)
	}
	if in.Interest != nil {
		t.Errorf("Expected no interest, got %+v", in.Interest)
	}
	if len(result.OmittedAttributes) != 0 {
		t.Errorf("Expected nothing omitted, got %v", result.OmittedAttributes)
	}
}

func TestMapToLead_OptionalAttributes(t *testing.T) {
	mapper := NewMapper(defaultOwner)
	seller := uuid.New()

	payload := validForm()
	payload["source"] = "instagram"
	payload["sales_person_id"] = seller.String()
	payload["model"] = "Corolla"
	payload["trim"] = "XEi"
	payload["color"] = "Prata"
	payload["message"] = "Quero agendar um test-drive"

	result := mapper.MapToLead(context.Background(), payload)

	if !result.Success {
		t.Fatalf("Expected mapping to succeed, got errors %v", result.Errors)
	}
	if result.Input.Source != string(models.LeadSourceInstagram) {
		t.Errorf("Expected source Instagram, got %q", result.Input.Source)
	}
	if result.Input.SalesPersonID != seller {
		t.Errorf("Expected sales person from the form, got %s", result.Input.SalesPersonID)
	}
	want := &models.Interest{Model: "Corolla", Trim: "XEi", Color: "Prata"}
	if !reflect.DeepEqual(result.Input.Interest, want) {
		t.Errorf("Expected interest %+v, got %+v", want, result.Input.Interest)
	}
	if result.Message != "Quero agendar um test-drive" {
		t.Errorf("Expected message to be kept, got %q", result.Message)
	}
}

// Invalid optional attributes are omitted and never fail the form
func TestMapToLead_OmitsInvalidOptionalAttributes(t *testing.T) {
	mapper := NewMapper(defaultOwner)

	tests := []struct {
		name        string
		key         string
		value       interface{}
		wantOmitted []string
	}{
		{"unknown source", "source", "billboard", []string{"source"}},
		{"non-string source", "source", 7, []string{"source"}},
		{"malformed sales person", "sales_person_id", "not-a-uuid", []string{"sales_person_id"}},
		{"nil sales person", "sales_person_id", uuid.Nil.String(), []string{"sales_person_id"}},
		{"non-string model", "model", 2024, []string{"model"}},
		{"empty message", "message", "", []string{"message"}},
		{"trim without model", "trim", "XEi", []string{"trim"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validForm()
			payload[tt.key] = tt.value

			result := mapper.MapToLead(context.Background(), payload)

			if !result.Success {
				t.Fatalf("Expected mapping to succeed, got errors %v", result.Errors)
			}
			if !reflect.DeepEqual(result.OmittedAttributes, tt.wantOmitted) {
				t.Errorf("Expected omitted %v, got %v", tt.wantOmitted, result.OmittedAttributes)
			}
			if result.Input.Source != string(models.LeadSourceWebsite) && tt.key == "source" {
				t.Errorf("Expected fallback source, got %q", result.Input.Source)
			}
			if tt.key == "sales_person_id" && result.Input.SalesPersonID != defaultOwner {
				t.Errorf("Expected fallback sales person, got %s", result.Input.SalesPersonID)
			}
		})
	}
}

func TestMapToLead_NoSalesPerson(t *testing.T) {
	mapper := NewMapper(uuid.Nil)

	result := mapper.MapToLead(context.Background(), validForm())

	if result.Success {
		t.Fatal("Expected mapping to fail without any sales person")
	}
	if len(result.Errors) != 1 {
		t.Errorf("Expected one error, got %v", result.Errors)
	}
}

func TestMapToLead_IgnoredAttributes(t *testing.T) {
	mapper := NewMapper(defaultOwner)

	payload := validForm()
	payload["utm_campaign"] = "black-friday"
	payload["budget"] = 90000

	result := mapper.MapToLead(context.Background(), payload)

	want := []string{"budget", "utm_campaign"}
	if !reflect.DeepEqual(result.IgnoredAttributes, want) {
		t.Errorf("Expected ignored %v, got %v", want, result.IgnoredAttributes)
	}
	if !result.Success {
		t.Errorf("Expected unknown attributes not to fail the form")
	}
}
