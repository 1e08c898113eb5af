package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// memoryState is one consistent snapshot of the in-memory database. Stored entities are
// never mutated in place, so a transaction only needs its own copy of the maps.
type memoryState struct {
	leads        map[uuid.UUID]*models.Lead
	interactions map[uuid.UUID][]*models.Interaction
	proposals    map[uuid.UUID]*models.Proposal
	testDrives   map[uuid.UUID]*models.TestDrive
	evaluations  map[uuid.UUID]*models.Evaluation
	events       []models.DomainEvent
}

func newMemoryState() *memoryState {
	return &memoryState{
		leads:        map[uuid.UUID]*models.Lead{},
		interactions: map[uuid.UUID][]*models.Interaction{},
		proposals:    map[uuid.UUID]*models.Proposal{},
		testDrives:   map[uuid.UUID]*models.TestDrive{},
		evaluations:  map[uuid.UUID]*models.Evaluation{},
	}
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memoryState) fork() *memoryState {
	return &memoryState{
		leads:        copyMap(s.leads),
		interactions: copyMap(s.interactions),
		proposals:    copyMap(s.proposals),
		testDrives:   copyMap(s.testDrives),
		evaluations:  copyMap(s.evaluations),
		events:       s.events[:len(s.events):len(s.events)],
	}
}

// MemoryStore implements UnitOfWork in process memory. Transactions are serialized by a
// single mutex and applied copy-on-write, so a failed transaction leaves no trace.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
	sink  func(events []models.DomainEvent) error
	// committed events the sink has not accepted yet, oldest first
	unforwarded []models.DomainEvent
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithEventSink forwards committed events, in commit order, to sink. Events the sink refuses
// stay with the store and are offered again, ahead of newer ones, after the next commit.
func WithEventSink(sink func(events []models.DomainEvent) error) MemoryOption {
	return func(s *MemoryStore) {
		s.sink = sink
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{state: newMemoryState()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns repositories that lock the store for each call
func (s *MemoryStore) Store() Store {
	return &memoryView{access: &lockedAccess{store: s}}
}

// WithinTx runs fn against a private copy of the state and publishes it on success
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.fork()
	recordedBefore := len(working.events)
	if err := fn(ctx, &memoryView{access: &txAccess{state: working}}); err != nil {
		return err
	}

	s.state = working
	s.publish(ctx, working.events[recordedBefore:])
	return nil
}

// publish hands committed events to the sink. The commit already happened, so a refusal is
// logged and the events wait for the next attempt.
func (s *MemoryStore) publish(ctx context.Context, events []models.DomainEvent) {
	if s.sink == nil {
		return
	}
	s.unforwarded = append(s.unforwarded, events...)
	if len(s.unforwarded) == 0 {
		return
	}
	if err := s.sink(s.unforwarded); err != nil {
		logger.Warn(ctx, "Committed events not forwarded, retrying after the next commit",
			"events", len(s.unforwarded),
			"error", err.Error())
		return
	}
	s.unforwarded = nil
}

// FlushEvents offers the events the sink refused so far again
func (s *MemoryStore) FlushEvents(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sink == nil || len(s.unforwarded) == 0 {
		return nil
	}
	if err := s.sink(s.unforwarded); err != nil {
		return errors.Wrapf(err, "failed to forward %d committed events", len(s.unforwarded))
	}
	s.unforwarded = nil
	return nil
}

// HealthCheck fails while committed events cannot be handed to the sink
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return s.FlushEvents(ctx)
}

// UnforwardedEvents returns how many committed events are still waiting for the sink
func (s *MemoryStore) UnforwardedEvents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unforwarded)
}

// RecordedEvents returns every committed domain event in order
func (s *MemoryStore) RecordedEvents() []models.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.DomainEvent, len(s.state.events))
	copy(out, s.state.events)
	return out
}

// memoryAccess runs fn with exclusive access to a state
type memoryAccess interface {
	with(fn func(st *memoryState) error) error
	// record appends events; outside a transaction they are published immediately
	record(ctx context.Context, st *memoryState, event models.DomainEvent)
}

type lockedAccess struct {
	store *MemoryStore
}

func (a *lockedAccess) with(fn func(st *memoryState) error) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.state)
}

func (a *lockedAccess) record(ctx context.Context, st *memoryState, event models.DomainEvent) {
	st.events = append(st.events, event)
	a.store.publish(ctx, []models.DomainEvent{event})
}

type txAccess struct {
	state *memoryState
}

func (a *txAccess) with(fn func(st *memoryState) error) error {
	return fn(a.state)
}

func (a *txAccess) record(_ context.Context, st *memoryState, event models.DomainEvent) {
	st.events = append(st.events, event)
}

// memoryView binds the repositories to one access mode
type memoryView struct {
	access memoryAccess
}

func (v *memoryView) Leads() LeadRepository             { return &memoryLeadRepository{access: v.access} }
func (v *memoryView) Proposals() ProposalRepository     { return &memoryProposalRepository{access: v.access} }
func (v *memoryView) TestDrives() TestDriveRepository   { return &memoryTestDriveRepository{access: v.access} }
func (v *memoryView) Evaluations() EvaluationRepository { return &memoryEvaluationRepository{access: v.access} }
func (v *memoryView) Events() EventRecorder             { return &memoryEventRecorder{access: v.access} }

func missingReference(field string) error {
	return models.NewValidationError(field, models.ValidationReasonUnrecognizedValue, "referenced entity does not exist")
}

// page applies limit/offset to an already ordered slice
func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type memoryLeadRepository struct {
	access memoryAccess
}

func (r *memoryLeadRepository) Add(ctx context.Context, lead *models.Lead) error {
	return r.access.with(func(st *memoryState) error {
		if _, exists := st.leads[lead.ID]; exists {
			return errors.Errorf("lead %s already exists", lead.ID)
		}
		st.leads[lead.ID] = lead.Clone()
		return nil
	})
}

func (r *memoryLeadRepository) Update(ctx context.Context, lead *models.Lead) error {
	return r.access.with(func(st *memoryState) error {
		if _, exists := st.leads[lead.ID]; !exists {
			return models.NewNotFoundError("lead", lead.ID.String())
		}
		st.leads[lead.ID] = lead.Clone()
		return nil
	})
}

func (r *memoryLeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead *models.Lead
	err := r.access.with(func(st *memoryState) error {
		stored, ok := st.leads[id]
		if !ok {
			return models.NewNotFoundError("lead", id.String())
		}
		lead = stored.Clone()
		return nil
	})
	return lead, err
}

func (r *memoryLeadRepository) matching(st *memoryState, filter LeadFilter) []*models.Lead {
	var leads []*models.Lead
	for _, lead := range st.leads {
		if filter.Matches(lead) {
			leads = append(leads, lead)
		}
	}
	return leads
}

func (r *memoryLeadRepository) List(ctx context.Context, filter LeadFilter) ([]*models.Lead, error) {
	var out []*models.Lead
	err := r.access.with(func(st *memoryState) error {
		leads := r.matching(st, filter)
		sort.Slice(leads, func(i, j int) bool {
			a, b := leads[i], leads[j]
			if filter.OrderBy == LeadOrderHottest && a.Score().Rank() != b.Score().Rank() {
				return a.Score().Rank() > b.Score().Rank()
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID.String() < b.ID.String()
		})
		for _, lead := range page(leads, filter.Limit, filter.Offset) {
			out = append(out, lead.Clone())
		}
		return nil
	})
	if out == nil {
		out = []*models.Lead{}
	}
	return out, err
}

func (r *memoryLeadRepository) Count(ctx context.Context, filter LeadFilter) (int, error) {
	var count int
	err := r.access.with(func(st *memoryState) error {
		count = len(r.matching(st, filter))
		return nil
	})
	return count, err
}

func (r *memoryLeadRepository) CountByStatus(ctx context.Context, salesPersonID *uuid.UUID) (map[models.LeadStatus]int, error) {
	counts := map[models.LeadStatus]int{}
	err := r.access.with(func(st *memoryState) error {
		for _, lead := range r.matching(st, LeadFilter{SalesPersonID: salesPersonID}) {
			counts[lead.Status]++
		}
		return nil
	})
	return counts, err
}

func (r *memoryLeadRepository) AddInteraction(ctx context.Context, interaction *models.Interaction) error {
	return r.access.with(func(st *memoryState) error {
		if _, ok := st.leads[interaction.LeadID]; !ok {
			return missingReference("lead_id")
		}
		stored := *interaction
		existing := st.interactions[interaction.LeadID]
		updated := make([]*models.Interaction, 0, len(existing)+1)
		updated = append(updated, existing...)
		st.interactions[interaction.LeadID] = append(updated, &stored)
		return nil
	})
}

func (r *memoryLeadRepository) ListInteractions(ctx context.Context, leadID uuid.UUID) ([]*models.Interaction, error) {
	out := []*models.Interaction{}
	err := r.access.with(func(st *memoryState) error {
		for _, interaction := range st.interactions[leadID] {
			copied := *interaction
			out = append(out, &copied)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].RegisteredAt.After(out[j].RegisteredAt)
	})
	return out, err
}

type memoryProposalRepository struct {
	access memoryAccess
}

func (r *memoryProposalRepository) Add(ctx context.Context, proposal *models.Proposal) error {
	return r.access.with(func(st *memoryState) error {
		if _, exists := st.proposals[proposal.ID]; exists {
			return errors.Errorf("proposal %s already exists", proposal.ID)
		}
		if _, ok := st.leads[proposal.LeadID]; !ok {
			return missingReference("lead_id")
		}
		st.proposals[proposal.ID] = proposal.Clone()
		return nil
	})
}

func (r *memoryProposalRepository) Update(ctx context.Context, proposal *models.Proposal) error {
	return r.access.with(func(st *memoryState) error {
		if _, exists := st.proposals[proposal.ID]; !exists {
			return models.NewNotFoundError("proposal", proposal.ID.String())
		}
		st.proposals[proposal.ID] = proposal.Clone()
		return nil
	})
}

func (r *memoryProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal *models.Proposal
	err := r.access.with(func(st *memoryState) error {
		stored, ok := st.proposals[id]
		if !ok {
			return models.NewNotFoundError("proposal", id.String())
		}
		proposal = stored.Clone()
		return nil
	})
	return proposal, err
}

// GetByIDForUpdate needs no row lock: transactions already hold the store mutex
func (r *memoryProposalRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return r.GetByID(ctx, id)
}

func (r *memoryProposalRepository) matching(st *memoryState, filter ProposalFilter) []*models.Proposal {
	var proposals []*models.Proposal
	for _, proposal := range st.proposals {
		if filter.Matches(proposal) {
			proposals = append(proposals, proposal)
		}
	}
	return proposals
}

func (r *memoryProposalRepository) List(ctx context.Context, filter ProposalFilter) ([]*models.Proposal, error) {
	out := []*models.Proposal{}
	err := r.access.with(func(st *memoryState) error {
		proposals := r.matching(st, filter)
		sort.Slice(proposals, func(i, j int) bool {
			a, b := proposals[i], proposals[j]
			if filter.OrderBy == ProposalOrderStalest {
				if !a.UpdatedAt.Equal(b.UpdatedAt) {
					return a.UpdatedAt.Before(b.UpdatedAt)
				}
			} else if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID.String() < b.ID.String()
		})
		for _, proposal := range page(proposals, filter.Limit, filter.Offset) {
			out = append(out, proposal.Clone())
		}
		return nil
	})
	return out, err
}

func (r *memoryProposalRepository) Count(ctx context.Context, filter ProposalFilter) (int, error) {
	var count int
	err := r.access.with(func(st *memoryState) error {
		count = len(r.matching(st, filter))
		return nil
	})
	return count, err
}

type memoryTestDriveRepository struct {
	access memoryAccess
}

// conflicts mirrors the vehicle_slot exclusion constraint of the Postgres schema
func conflicts(st *memoryState, testDrive *models.TestDrive) bool {
	if testDrive.Status != models.TestDriveStatusScheduled {
		return false
	}
	return hasOverlap(st, testDrive.VehicleID, testDrive.ScheduledAt, testDrive.EndsAt(), testDrive.ID)
}

func hasOverlap(st *memoryState, vehicleID uuid.UUID, start, end time.Time, excludeID uuid.UUID) bool {
	for _, existing := range st.testDrives {
		if existing.ID == excludeID || existing.VehicleID != vehicleID {
			continue
		}
		if existing.Status == models.TestDriveStatusScheduled && existing.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func vehicleUnavailable() error {
	return models.NewDomainError(models.DomainCodeVehicleUnavailable, "vehicle already booked in the requested window")
}

func (r *memoryTestDriveRepository) Add(ctx context.Context, testDrive *models.TestDrive) error {
	return r.access.with(func(st *memoryState) error {
		if _, exists := st.testDrives[testDrive.ID]; exists {
			return errors.Errorf("test-drive %s already exists", testDrive.ID)
		}
		if _, ok := st.leads[testDrive.LeadID]; !ok {
			return missingReference("lead_id")
		}
		if conflicts(st, testDrive) {
			return vehicleUnavailable()
		}
		st.testDrives[testDrive.ID] = testDrive.Clone()
		return nil
	})
}

func (r *memoryTestDriveRepository) Update(ctx context.Context, testDrive *models.TestDrive) error {
	return r.access.with(func(st *memoryState) error {
		if _, exists := st.testDrives[testDrive.ID]; !exists {
			return models.NewNotFoundError("test-drive", testDrive.ID.String())
		}
		if conflicts(st, testDrive) {
			return vehicleUnavailable()
		}
		st.testDrives[testDrive.ID] = testDrive.Clone()
		return nil
	})
}

func (r *memoryTestDriveRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TestDrive, error) {
	var testDrive *models.TestDrive
	err := r.access.with(func(st *memoryState) error {
		stored, ok := st.testDrives[id]
		if !ok {
			return models.NewNotFoundError("test-drive", id.String())
		}
		testDrive = stored.Clone()
		return nil
	})
	return testDrive, err
}

func (r *memoryTestDriveRepository) matching(st *memoryState, filter TestDriveFilter) []*models.TestDrive {
	var testDrives []*models.TestDrive
	for _, testDrive := range st.testDrives {
		if filter.Matches(testDrive) {
			testDrives = append(testDrives, testDrive)
		}
	}
	return testDrives
}

func (r *memoryTestDriveRepository) List(ctx context.Context, filter TestDriveFilter) ([]*models.TestDrive, error) {
	out := []*models.TestDrive{}
	err := r.access.with(func(st *memoryState) error {
		testDrives := r.matching(st, filter)
		sort.Slice(testDrives, func(i, j int) bool {
			a, b := testDrives[i], testDrives[j]
			if !a.ScheduledAt.Equal(b.ScheduledAt) {
				return a.ScheduledAt.Before(b.ScheduledAt)
			}
			return a.ID.String() < b.ID.String()
		})
		for _, testDrive := range page(testDrives, filter.Limit, filter.Offset) {
			out = append(out, testDrive.Clone())
		}
		return nil
	})
	return out, err
}

func (r *memoryTestDriveRepository) Count(ctx context.Context, filter TestDriveFilter) (int, error) {
	var count int
	err := r.access.with(func(st *memoryState) error {
		count = len(r.matching(st, filter))
		return nil
	})
	return count, err
}

// LockVehicle is a no-op: transactions already hold the store mutex
func (r *memoryTestDriveRepository) LockVehicle(ctx context.Context, vehicleID uuid.UUID) error {
	return nil
}

func (r *memoryTestDriveRepository) HasOverlap(ctx context.Context, vehicleID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	var overlap bool
	err := r.access.with(func(st *memoryState) error {
		overlap = hasOverlap(st, vehicleID, start, end, excludeID)
		return nil
	})
	return overlap, err
}

type memoryEvaluationRepository struct {
	access memoryAccess
}

func (r *memoryEvaluationRepository) Add(ctx context.Context, evaluation *models.Evaluation) error {
	return r.access.with(func(st *memoryState) error {
		if _, exists := st.evaluations[evaluation.ID]; exists {
			return errors.Errorf("evaluation %s already exists", evaluation.ID)
		}
		if _, ok := st.proposals[evaluation.ProposalID]; !ok {
			return missingReference("proposal_id")
		}
		st.evaluations[evaluation.ID] = evaluation.Clone()
		return nil
	})
}

func (r *memoryEvaluationRepository) Update(ctx context.Context, evaluation *models.Evaluation) error {
	return r.access.with(func(st *memoryState) error {
		if _, exists := st.evaluations[evaluation.ID]; !exists {
			return models.NewNotFoundError("evaluation", evaluation.ID.String())
		}
		st.evaluations[evaluation.ID] = evaluation.Clone()
		return nil
	})
}

func (r *memoryEvaluationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Evaluation, error) {
	var evaluation *models.Evaluation
	err := r.access.with(func(st *memoryState) error {
		stored, ok := st.evaluations[id]
		if !ok {
			return models.NewNotFoundError("evaluation", id.String())
		}
		evaluation = stored.Clone()
		return nil
	})
	return evaluation, err
}

func (r *memoryEvaluationRepository) ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]*models.Evaluation, error) {
	out := []*models.Evaluation{}
	err := r.access.with(func(st *memoryState) error {
		for _, evaluation := range st.evaluations {
			if evaluation.ProposalID == proposalID {
				out = append(out, evaluation.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}

type memoryEventRecorder struct {
	access memoryAccess
}

func (r *memoryEventRecorder) Record(ctx context.Context, event models.DomainEvent) error {
	return r.access.with(func(st *memoryState) error {
		r.access.record(ctx, st, event)
		return nil
	})
}
