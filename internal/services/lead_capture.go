package services

import (
	"context"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// CaptureResult is the outcome of a captured website form
type CaptureResult struct {
	Lead              *models.Lead `json:"lead"`
	OmittedAttributes []string     `json:"omittedAttributes"`
}

// LeadCaptureService turns website form submissions into leads:
// normalize, validate, map, then create.
type LeadCaptureService struct {
	normalizer *Normalizer
	validator  *Validator
	mapper     *Mapper
	leads      *LeadService
}

// NewLeadCaptureService creates a LeadCaptureService
func NewLeadCaptureService(leads *LeadService, mapper *Mapper) *LeadCaptureService {
	return &LeadCaptureService{
		normalizer: NewNormalizer(),
		validator:  NewValidator(),
		mapper:     mapper,
		leads:      leads,
	}
}

// Capture creates a lead from a raw form payload. A free-text message on the form is kept as
// a Note interaction on the new lead.
func (s *LeadCaptureService) Capture(ctx context.Context, raw FormPayload) (*CaptureResult, error) {
	payload := s.normalizer.NormalizeForm(raw)

	if err := s.validator.ValidateAndGetError(ctx, payload); err != nil {
		return nil, err
	}

	mapped := s.mapper.MapToLead(ctx, payload)
	if !mapped.Success {
		return nil, models.NewValidationError("sales_person_id", models.ValidationReasonMissingRequiredField, "no sales person in the form and no default configured")
	}
	if len(mapped.IgnoredAttributes) > 0 {
		logger.Debug(ctx, "Ignoring unknown form attributes", "count", len(mapped.IgnoredAttributes))
	}

	lead, err := s.leads.Create(ctx, mapped.Input)
	if err != nil {
		return nil, err
	}

	if mapped.Message != "" {
		if _, err := s.leads.RegisterInteraction(ctx, lead.ID, string(models.InteractionTypeNote), mapped.Message, s.leads.clock()); err != nil {
			logger.LogError(ctx, "Failed to record form message", err, "lead_id", lead.ID.String())
		} else if refreshed, err := s.leads.Get(ctx, lead.ID); err == nil {
			lead = refreshed
		}
	}

	logger.Info(logger.WithEntityID(ctx, lead.ID), "Lead captured from website form", "omitted_attributes", len(mapped.OmittedAttributes))
	return &CaptureResult{Lead: lead, OmittedAttributes: mapped.OmittedAttributes}, nil
}
