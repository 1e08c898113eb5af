package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
)

const leadEngine = "lead"

// CreateLeadInput carries the raw fields of a new lead
type CreateLeadInput struct {
	Name          string           `json:"name"`
	Email         string           `json:"email"`
	Phone         string           `json:"phone"`
	Source        string           `json:"source"`
	SalesPersonID uuid.UUID        `json:"salesPersonId"`
	Interest      *models.Interest `json:"interest,omitempty"`
}

// LeadService runs the lead lifecycle
type LeadService struct {
	base
	scorer models.Scorer
}

// NewLeadService creates a LeadService. A nil scorer uses the default point table.
func NewLeadService(uow repository.UnitOfWork, scorer models.Scorer, opts ...Option) *LeadService {
	if scorer == nil {
		scorer = NewScoringService()
	}
	return &LeadService{base: newBase(uow, opts), scorer: scorer}
}

// Create registers a new lead in status New
func (s *LeadService) Create(ctx context.Context, in CreateLeadInput) (lead *models.Lead, err error) {
	ctx, finish := s.begin(ctx, leadEngine, "create")
	defer finish(&err)

	email, err := models.NewEmail(in.Email)
	if err != nil {
		return nil, err
	}
	phone, err := models.NewPhone(in.Phone)
	if err != nil {
		return nil, err
	}
	source, err := models.ParseLeadSource(in.Source)
	if err != nil {
		return nil, err
	}

	lead, err = models.NewLead(uuid.New(), in.Name, email, phone, source, in.SalesPersonID, in.Interest, s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.uow.Store().Leads().Add(ctx, lead); err != nil {
		return nil, err
	}

	logger.Info(logger.WithEntityID(ctx, lead.ID), "Lead created", "source", string(lead.Source), "sales_person_id", lead.SalesPersonID.String())
	return lead, nil
}

// Get returns a lead by id
func (s *LeadService) Get(ctx context.Context, id uuid.UUID) (lead *models.Lead, err error) {
	ctx, finish := s.begin(ctx, leadEngine, "get", idAttr("lead.id", id))
	defer finish(&err)

	return s.uow.Store().Leads().GetByID(ctx, id)
}

// List returns one page of leads matching the filter
func (s *LeadService) List(ctx context.Context, filter repository.LeadFilter) (page *Page[*models.Lead], err error) {
	ctx, finish := s.begin(ctx, leadEngine, "list")
	defer finish(&err)

	filter.Limit, filter.Offset = clampPaging(filter.Limit, filter.Offset)
	repo := s.uow.Store().Leads()

	leads, err := repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page[*models.Lead]{Items: leads, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// mutate loads a lead inside a transaction, applies fn and stores the result
func (s *LeadService) mutate(ctx context.Context, id uuid.UUID, fn func(lead *models.Lead, now time.Time) error) (*models.Lead, error) {
	var out *models.Lead
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		lead, err := tx.Leads().GetByID(ctx, id)
		if err != nil {
			return err
		}
		before := lead.Status
		if err := fn(lead, s.clock()); err != nil {
			return err
		}
		if err := tx.Leads().Update(ctx, lead); err != nil {
			return err
		}
		logTransition(ctx, leadEngine, lead.ID, before, lead.Status)
		out = lead
		return nil
	})
	return out, err
}

// ChangeStatus moves a lead to any recognized status. Legacy labels are accepted.
func (s *LeadService) ChangeStatus(ctx context.Context, id uuid.UUID, label string) (lead *models.Lead, err error) {
	ctx, finish := s.begin(ctx, leadEngine, "change_status", idAttr("lead.id", id))
	defer finish(&err)

	status, err := models.ParseLeadStatus(label)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(lead *models.Lead, now time.Time) error {
		_, err := lead.ChangeStatus(status, now)
		return err
	})
}

// UpdateName renames a lead
func (s *LeadService) UpdateName(ctx context.Context, id uuid.UUID, name string) (lead *models.Lead, err error) {
	ctx, finish := s.begin(ctx, leadEngine, "update_name", idAttr("lead.id", id))
	defer finish(&err)

	return s.mutate(ctx, id, func(lead *models.Lead, now time.Time) error {
		return lead.Rename(name, now)
	})
}

// UpdateEmail replaces a lead's e-mail address
func (s *LeadService) UpdateEmail(ctx context.Context, id uuid.UUID, raw string) (lead *models.Lead, err error) {
	ctx, finish := s.begin(ctx, leadEngine, "update_email", idAttr("lead.id", id))
	defer finish(&err)

	email, err := models.NewEmail(raw)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(lead *models.Lead, now time.Time) error {
		lead.ChangeEmail(email, now)
		return nil
	})
}

// UpdatePhone replaces a lead's phone number
func (s *LeadService) UpdatePhone(ctx context.Context, id uuid.UUID, raw string) (lead *models.Lead, err error) {
	ctx, finish := s.begin(ctx, leadEngine, "update_phone", idAttr("lead.id", id))
	defer finish(&err)

	phone, err := models.NewPhone(raw)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(lead *models.Lead, now time.Time) error {
		lead.ChangePhone(phone, now)
		return nil
	})
}

// UpdateInterest replaces or clears the vehicle a lead is interested in
func (s *LeadService) UpdateInterest(ctx context.Context, id uuid.UUID, interest *models.Interest) (lead *models.Lead, err error) {
	ctx, finish := s.begin(ctx, leadEngine, "update_interest", idAttr("lead.id", id))
	defer finish(&err)

	return s.mutate(ctx, id, func(lead *models.Lead, now time.Time) error {
		return lead.UpdateInterest(interest, now)
	})
}

// RegisterInteraction records a contact with the prospect
func (s *LeadService) RegisterInteraction(ctx context.Context, id uuid.UUID, typeLabel, description string, occurredAt time.Time) (interaction *models.Interaction, err error) {
	ctx, finish := s.begin(ctx, leadEngine, "register_interaction", idAttr("lead.id", id))
	defer finish(&err)

	interactionType, err := models.ParseInteractionType(typeLabel)
	if err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		lead, err := tx.Leads().GetByID(ctx, id)
		if err != nil {
			return err
		}
		interaction, err = lead.RegisterInteraction(uuid.New(), interactionType, description, occurredAt.UTC(), s.clock())
		if err != nil {
			return err
		}
		if err := tx.Leads().AddInteraction(ctx, interaction); err != nil {
			return err
		}
		return tx.Leads().Update(ctx, lead)
	})
	if err != nil {
		return nil, err
	}
	return interaction, nil
}

// ListInteractions returns a lead's interactions, newest first
func (s *LeadService) ListInteractions(ctx context.Context, id uuid.UUID) (interactions []*models.Interaction, err error) {
	ctx, finish := s.begin(ctx, leadEngine, "list_interactions", idAttr("lead.id", id))
	defer finish(&err)

	store := s.uow.Store()
	if _, err := store.Leads().GetByID(ctx, id); err != nil {
		return nil, err
	}
	return store.Leads().ListInteractions(ctx, id)
}

// Qualify stores the qualification record and recomputes the score
func (s *LeadService) Qualify(ctx context.Context, id uuid.UUID, q models.Qualification) (lead *models.Lead, err error) {
	ctx, finish := s.begin(ctx, leadEngine, "qualify", idAttr("lead.id", id))
	defer finish(&err)

	lead, err = s.mutate(ctx, id, func(lead *models.Lead, now time.Time) error {
		return lead.Qualify(q, s.scorer, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(logger.WithEntityID(ctx, lead.ID), "Lead qualified", "score", string(lead.Score()), "sla", lead.Score().SLA().Label)
	return lead, nil
}
