package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// form keys consumed by the mapper
var mappedFormKeys = map[string]bool{
	"name": true, "email": true, "phone": true, "source": true, "sales_person_id": true,
	"model": true, "trim": true, "color": true, "message": true,
}

// MappingResult represents the outcome of mapping a form onto a lead
type MappingResult struct {
	Success           bool
	Input             CreateLeadInput
	Message           string
	OmittedAttributes []string
	IgnoredAttributes []string
	Errors            []string
}

// Mapper turns a validated form into a lead creation request. Invalid optional attributes
// are omitted instead of failing the whole form.
type Mapper struct {
	defaultSalesPersonID uuid.UUID
}

// NewMapper creates a new Mapper. defaultSalesPersonID owns leads whose form names nobody.
func NewMapper(defaultSalesPersonID uuid.UUID) *Mapper {
	return &Mapper{defaultSalesPersonID: defaultSalesPersonID}
}

// MapToLead maps a normalized, validated form payload onto CreateLeadInput
func (m *Mapper) MapToLead(ctx context.Context, payload FormPayload) *MappingResult {
	result := &MappingResult{
		Success:           true,
		OmittedAttributes: []string{},
		IgnoredAttributes: []string{},
		Errors:            []string{},
	}

	result.Input.Name, _ = stringField(payload, "name")
	result.Input.Email, _ = stringField(payload, "email")
	result.Input.Phone, _ = stringField(payload, "phone")

	// Source falls back to Website, the channel the form lives on
	result.Input.Source = string(models.LeadSourceWebsite)
	if raw, ok := payload["source"]; ok {
		if source, valid := m.mapSource(raw); valid {
			result.Input.Source = string(source)
		} else {
			result.omit(ctx, "source")
		}
	}

	result.Input.SalesPersonID = m.defaultSalesPersonID
	if raw, ok := payload["sales_person_id"]; ok {
		if id, valid := m.mapUUID(raw); valid {
			result.Input.SalesPersonID = id
		} else {
			result.omit(ctx, "sales_person_id")
		}
	}
	if result.Input.SalesPersonID == uuid.Nil {
		result.Success = false
		result.Errors = append(result.Errors, "no sales person in the form and no default configured")
	}

	result.Input.Interest = m.mapInterest(ctx, payload, result)

	if raw, ok := payload["message"]; ok {
		if message, valid := raw.(string); valid && message != "" {
			result.Message = message
		} else {
			result.omit(ctx, "message")
		}
	}

	for key := range payload {
		if !mappedFormKeys[key] {
			result.IgnoredAttributes = append(result.IgnoredAttributes, key)
		}
	}
	sort.Strings(result.IgnoredAttributes)

	if len(result.OmittedAttributes) > 0 {
		logger.Debug(ctx, "Omitted invalid optional form attributes", "attributes", fmt.Sprint(result.OmittedAttributes))
	}
	return result
}

func (r *MappingResult) omit(ctx context.Context, key string) {
	r.OmittedAttributes = append(r.OmittedAttributes, key)
	logger.Debug(ctx, "Omitting invalid optional attribute", "attribute", key)
}

func (m *Mapper) mapSource(raw interface{}) (models.LeadSource, bool) {
	label, ok := raw.(string)
	if !ok {
		return "", false
	}
	source, err := models.ParseLeadSource(label)
	if err != nil {
		return "", false
	}
	return source, true
}

func (m *Mapper) mapUUID(raw interface{}) (uuid.UUID, bool) {
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// mapInterest builds the vehicle interest. Trim and color without a model are dropped.
func (m *Mapper) mapInterest(ctx context.Context, payload FormPayload, result *MappingResult) *models.Interest {
	text := func(key string) string {
		raw, ok := payload[key]
		if !ok {
			return ""
		}
		s, valid := raw.(string)
		if !valid || s == "" {
			result.omit(ctx, key)
			return ""
		}
		return s
	}

	interest := models.Interest{Model: text("model"), Trim: text("trim"), Color: text("color")}
	if interest.Model == "" {
		if interest.Trim != "" {
			result.omit(ctx, "trim")
		}
		if interest.Color != "" {
			result.omit(ctx, "color")
		}
		return nil
	}
	return &interest
}
