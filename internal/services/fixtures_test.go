package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
)

// Tuesday morning, UTC
var testStart = time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)

var testSeller = uuid.MustParse("0b3e4c1a-9d2f-4e8b-a6c7-5f1d2e3a4b5c")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testEnv struct {
	store       *repository.MemoryStore
	clock       *testClock
	leads       *LeadService
	proposals   *ProposalService
	testDrives  *TestDriveService
	evaluations *EvaluationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, repository.NewMemoryStore())
}

func newTestEnvWith(t *testing.T, store *repository.MemoryStore) *testEnv {
	t.Helper()
	clock := &testClock{now: testStart}
	return &testEnv{
		store:       store,
		clock:       clock,
		leads:       NewLeadService(store, nil, WithClock(clock.Now)),
		proposals:   NewProposalService(store, WithClock(clock.Now)),
		testDrives:  NewTestDriveService(store, WithClock(clock.Now)),
		evaluations: NewEvaluationService(store, WithClock(clock.Now)),
	}
}

func (e *testEnv) createLead(t *testing.T, name string) *models.Lead {
	t.Helper()
	lead, err := e.leads.Create(context.Background(), CreateLeadInput{
		Name:          name,
		Email:         "cliente@example.com",
		Phone:         "(11) 98765-4321",
		Source:        "Website",
		SalesPersonID: testSeller,
		Interest:      &models.Interest{Model: "Corolla"},
	})
	require.NoError(t, err)
	return lead
}

// createProposal opens a proposal priced at 100000.00, so 5% is 5000.00
func (e *testEnv) createProposal(t *testing.T, leadID uuid.UUID) *models.Proposal {
	t.Helper()
	proposal, err := e.proposals.Create(context.Background(), CreateProposalInput{
		LeadID:        leadID,
		SalesPersonID: testSeller,
		Vehicle:       models.VehicleTerms{Model: "Corolla", Trim: "XEi", Year: 2026},
		VehiclePrice:  models.MustMoney("100000.00"),
		Payment:       models.PaymentTerms{Method: models.PaymentMethodCash},
	})
	require.NoError(t, err)
	return proposal
}

func (e *testEnv) getLead(t *testing.T, id uuid.UUID) *models.Lead {
	t.Helper()
	lead, err := e.leads.Get(context.Background(), id)
	require.NoError(t, err)
	return lead
}

func (e *testEnv) getProposal(t *testing.T, id uuid.UUID) *models.Proposal {
	t.Helper()
	proposal, err := e.proposals.Get(context.Background(), id)
	require.NoError(t, err)
	return proposal
}

func (e *testEnv) eventTypes() []models.EventType {
	var types []models.EventType
	for _, event := range e.store.RecordedEvents() {
		types = append(types, event.EventType())
	}
	return types
}

func hotQualification() models.Qualification {
	return models.Qualification{
		PaymentMethod:             models.PaymentMethodCash,
		ExpectedPurchaseTimeframe: models.PurchaseTimeframeImmediate,
		InterestedInTestDrive:     true,
		HasTradeIn:                true,
		TradeInVehicle: &models.UsedVehicle{
			Brand:                       "Toyota",
			Model:                       "Etios",
			Year:                        2018,
			Mileage:                     80000,
			HasDealershipServiceHistory: true,
		},
	}
}

func tradeInVehicle() models.UsedVehicle {
	return models.UsedVehicle{
		Brand:     "Honda",
		Model:     "Fit",
		Year:      2019,
		Mileage:   62000,
		Plate:     "ABC1D23",
		Condition: models.VehicleConditionGood,
	}
}

// failingEventsUoW runs transactions whose outbox always fails
type failingEventsUoW struct {
	repository.UnitOfWork
}

func (u failingEventsUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	return u.UnitOfWork.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		return fn(ctx, failingEventsStore{tx})
	})
}

type failingEventsStore struct {
	repository.Store
}

func (failingEventsStore) Events() repository.EventRecorder { return failingRecorder{} }

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, models.DomainEvent) error {
	return errors.New("outbox unavailable")
}
