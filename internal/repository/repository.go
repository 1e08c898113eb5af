package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// LeadRepository defines the persistence operations for leads and their interactions
type LeadRepository interface {
	// Add inserts a new lead
	Add(ctx context.Context, lead *models.Lead) error

	// Update replaces the stored lead
	Update(ctx context.Context, lead *models.Lead) error

	// GetByID retrieves a lead by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)

	// List returns the leads matching the filter
	List(ctx context.Context, filter LeadFilter) ([]*models.Lead, error)

	// Count returns how many leads match the filter, ignoring paging
	Count(ctx context.Context, filter LeadFilter) (int, error)

	// CountByStatus returns counts of leads grouped by status
	CountByStatus(ctx context.Context, salesPersonID *uuid.UUID) (map[models.LeadStatus]int, error)

	// AddInteraction records an interaction
	AddInteraction(ctx context.Context, interaction *models.Interaction) error

	// ListInteractions returns a lead's interactions, newest first
	ListInteractions(ctx context.Context, leadID uuid.UUID) ([]*models.Interaction, error)
}

// ProposalRepository defines the persistence operations for proposals
type ProposalRepository interface {
	Add(ctx context.Context, proposal *models.Proposal) error
	Update(ctx context.Context, proposal *models.Proposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)

	// GetByIDForUpdate retrieves a proposal and locks it until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Proposal, error)

	List(ctx context.Context, filter ProposalFilter) ([]*models.Proposal, error)
	Count(ctx context.Context, filter ProposalFilter) (int, error)
}

// TestDriveRepository defines the persistence operations for test-drives
type TestDriveRepository interface {
	Add(ctx context.Context, testDrive *models.TestDrive) error
	Update(ctx context.Context, testDrive *models.TestDrive) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TestDrive, error)
	List(ctx context.Context, filter TestDriveFilter) ([]*models.TestDrive, error)
	Count(ctx context.Context, filter TestDriveFilter) (int, error)

	// LockVehicle serializes bookings of one vehicle until the surrounding transaction ends
	LockVehicle(ctx context.Context, vehicleID uuid.UUID) error

	// HasOverlap reports whether a Scheduled booking of the vehicle intersects [start, end).
	// excludeID is ignored when it is uuid.Nil.
	HasOverlap(ctx context.Context, vehicleID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error)
}

// EvaluationRepository defines the persistence operations for trade-in evaluations
type EvaluationRepository interface {
	Add(ctx context.Context, evaluation *models.Evaluation) error
	Update(ctx context.Context, evaluation *models.Evaluation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Evaluation, error)
	ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]*models.Evaluation, error)
}

// EventRecorder stores domain events in the outbox alongside the state change that produced them
type EventRecorder interface {
	Record(ctx context.Context, event models.DomainEvent) error
}

// Store groups the repositories bound to one connection or transaction
type Store interface {
	Leads() LeadRepository
	Proposals() ProposalRepository
	TestDrives() TestDriveRepository
	Evaluations() EvaluationRepository
	Events() EventRecorder
}

// UnitOfWork runs multi-entity writes atomically
type UnitOfWork interface {
	// Store returns repositories outside of any transaction
	Store() Store

	// WithinTx runs fn in a transaction. Returning an error rolls back every write made
	// through tx, recorded events included.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// LeadOrder selects the sort order of lead listings
type LeadOrder int

const (
	// LeadOrderNewest sorts by creation time, newest first
	LeadOrderNewest LeadOrder = iota

	// LeadOrderHottest sorts by score rank, then creation time, both descending
	LeadOrderHottest
)

// LeadFilter selects leads. Zero values do not filter.
type LeadFilter struct {
	Statuses      []models.LeadStatus
	Scores        []models.Score
	SalesPersonID *uuid.UUID
	CreatedFrom   *time.Time // inclusive
	CreatedTo     *time.Time // exclusive

	// NoInteractionSince keeps leads without any interaction at or after this instant
	NoInteractionSince *time.Time

	OrderBy LeadOrder
	Limit   int
	Offset  int
}

// Matches reports whether the lead satisfies the filter
func (f LeadFilter) Matches(l *models.Lead) bool {
	if len(f.Statuses) > 0 && !containsValue(f.Statuses, l.Status) {
		return false
	}
	if len(f.Scores) > 0 && !containsValue(f.Scores, l.Score()) {
		return false
	}
	if f.SalesPersonID != nil && l.SalesPersonID != *f.SalesPersonID {
		return false
	}
	if f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && !l.CreatedAt.Before(*f.CreatedTo) {
		return false
	}
	if f.NoInteractionSince != nil && l.LastInteractionAt != nil && !l.LastInteractionAt.Before(*f.NoInteractionSince) {
		return false
	}
	return true
}

// ProposalOrder selects the sort order of proposal listings
type ProposalOrder int

const (
	// ProposalOrderNewest sorts by creation time, newest first
	ProposalOrderNewest ProposalOrder = iota

	// ProposalOrderStalest sorts by last update, oldest first
	ProposalOrderStalest
)

// ProposalFilter selects proposals. Zero values do not filter.
type ProposalFilter struct {
	Statuses      []models.ProposalStatus
	LeadID        *uuid.UUID
	SalesPersonID *uuid.UUID
	OrderBy       ProposalOrder
	Limit         int
	Offset        int
}

// Matches reports whether the proposal satisfies the filter
func (f ProposalFilter) Matches(p *models.Proposal) bool {
	if len(f.Statuses) > 0 && !containsValue(f.Statuses, p.Status) {
		return false
	}
	if f.LeadID != nil && p.LeadID != *f.LeadID {
		return false
	}
	if f.SalesPersonID != nil && p.SalesPersonID != *f.SalesPersonID {
		return false
	}
	return true
}

// TestDriveFilter selects test-drives. Zero values do not filter.
type TestDriveFilter struct {
	Statuses      []models.TestDriveStatus
	LeadID        *uuid.UUID
	VehicleID     *uuid.UUID
	SalesPersonID *uuid.UUID
	ScheduledFrom *time.Time // inclusive
	ScheduledTo   *time.Time // exclusive
	Limit         int
	Offset        int
}

// Matches reports whether the test-drive satisfies the filter
func (f TestDriveFilter) Matches(t *models.TestDrive) bool {
	if len(f.Statuses) > 0 && !containsValue(f.Statuses, t.Status) {
		return false
	}
	if f.LeadID != nil && t.LeadID != *f.LeadID {
		return false
	}
	if f.VehicleID != nil && t.VehicleID != *f.VehicleID {
		return false
	}
	if f.SalesPersonID != nil && t.SalesPersonID != *f.SalesPersonID {
		return false
	}
	if f.ScheduledFrom != nil && t.ScheduledAt.Before(*f.ScheduledFrom) {
		return false
	}
	if f.ScheduledTo != nil && !t.ScheduledAt.Before(*f.ScheduledTo) {
		return false
	}
	return true
}

func containsValue[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// stringValues converts typed string values for pq.Array
func stringValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
