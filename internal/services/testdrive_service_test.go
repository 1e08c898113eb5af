package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
)

var testVehicle = uuid.MustParse("3c2b1a09-8f7e-4d6c-b5a4-9382716f5e4d")

func (e *testEnv) schedule(vehicleID, leadID uuid.UUID, at time.Time) (*models.TestDrive, error) {
	return e.testDrives.Schedule(context.Background(), ScheduleTestDriveInput{
		LeadID:        leadID,
		VehicleID:     vehicleID,
		ScheduledAt:   at,
		SalesPersonID: testSeller,
	})
}

func sampleChecklist() models.Checklist {
	return models.Checklist{
		InitialMileage: 1200,
		FinalMileage:   1215,
		FuelLevel:      models.FuelLevelThreeQuarter,
	}
}

func TestTestDriveService_Schedule(t *testing.T) {
	env := newTestEnv(t)
	lead := env.createLead(t, "Maria")
	at := testStart.Add(24 * time.Hour)

	td, err := env.schedule(testVehicle, lead.ID, at)
	require.NoError(t, err)

	assert.Equal(t, models.TestDriveStatusScheduled, td.Status)
	assert.Equal(t, at, td.ScheduledAt)
	assert.Equal(t, models.LeadStatusTestDriveScheduled, env.getLead(t, lead.ID).Status)

	events := env.store.RecordedEvents()
	require.Len(t, events, 1)
	scheduled, ok := events[0].(models.TestDriveScheduled)
	require.True(t, ok, "expected TestDriveScheduled, got %T", events[0])
	assert.Equal(t, td.ID, scheduled.TestDriveID)
	assert.Equal(t, testVehicle, scheduled.VehicleID)
}

func TestTestDriveService_ScheduleConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t, "Maria")
	other := env.createLead(t, "João")
	at := testStart.Add(24 * time.Hour)

	first, err := env.schedule(testVehicle, lead.ID, at)
	require.NoError(t, err)

	_, err = env.schedule(testVehicle, other.ID, at.Add(30*time.Minute))
	assert.True(t, models.HasDomainCode(err, models.DomainCodeVehicleUnavailable))

	_, err = env.schedule(testVehicle, other.ID, at.Add(-59*time.Minute))
	assert.True(t, models.HasDomainCode(err, models.DomainCodeVehicleUnavailable))

	// slots are half-open, back to back is fine
	_, err = env.schedule(testVehicle, other.ID, at.Add(time.Hour))
	assert.NoError(t, err)

	_, err = env.schedule(uuid.New(), other.ID, at)
	assert.NoError(t, err)

	_, err = env.testDrives.Cancel(ctx, first.ID, "cliente remarcou", testSeller)
	require.NoError(t, err)
	_, err = env.schedule(testVehicle, other.ID, at.Add(30*time.Minute))
	assert.NoError(t, err)
}

func TestTestDriveService_ConcurrentBookingsOfOneVehicle(t *testing.T) {
	env := newTestEnv(t)
	at := testStart.Add(48 * time.Hour)

	const contenders = 8
	leads := make([]uuid.UUID, contenders)
	for i := range leads {
		leads[i] = env.createLead(t, "Cliente").ID
	}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.schedule(testVehicle, leads[i], at.Add(time.Duration(i)*time.Minute))
			switch {
			case err == nil:
				succeeded.Add(1)
			case models.HasDomainCode(err, models.DomainCodeVehicleUnavailable):
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(contenders-1), conflicts.Load())

	page, err := env.testDrives.List(context.Background(), repository.TestDriveFilter{VehicleID: &testVehicle})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestTestDriveService_ScheduleValidation(t *testing.T) {
	env := newTestEnv(t)
	lead := env.createLead(t, "Maria")

	_, err := env.schedule(testVehicle, lead.ID, testStart.Add(-time.Minute))
	assert.True(t, models.IsValidationError(err))

	_, err = env.schedule(uuid.Nil, lead.ID, testStart.Add(time.Hour))
	assert.True(t, models.IsValidationError(err))

	_, err = env.schedule(testVehicle, uuid.New(), testStart.Add(time.Hour))
	assert.True(t, models.IsNotFound(err))

	assert.Empty(t, env.eventTypes())
	assert.Equal(t, models.LeadStatusNew, env.getLead(t, lead.ID).Status)
}

func TestTestDriveService_Complete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t, "Maria")
	td, err := env.schedule(testVehicle, lead.ID, testStart.Add(2*time.Hour))
	require.NoError(t, err)

	_, err = env.testDrives.Complete(ctx, td.ID, sampleChecklist(), "Gostou", testSeller)
	assert.True(t, models.HasDomainCode(err, models.DomainCodeTestDriveNotDue))

	env.clock.Advance(3 * time.Hour)

	bad := sampleChecklist()
	bad.FinalMileage = 1000
	_, err = env.testDrives.Complete(ctx, td.ID, bad, "", testSeller)
	assert.True(t, models.IsValidationError(err))

	completed, err := env.testDrives.Complete(ctx, td.ID, sampleChecklist(), " Gostou muito ", testSeller)
	require.NoError(t, err)
	assert.Equal(t, models.TestDriveStatusCompleted, completed.Status)
	assert.Equal(t, "Gostou muito", completed.CustomerFeedback)
	require.NotNil(t, completed.Checklist)
	assert.Equal(t, 1215, completed.Checklist.FinalMileage)

	assert.Equal(t, []models.EventType{
		models.EventTypeTestDriveScheduled,
		models.EventTypeTestDriveCompleted,
	}, env.eventTypes())

	_, err = env.testDrives.Cancel(ctx, td.ID, "tarde", testSeller)
	assert.True(t, models.HasDomainCode(err, models.DomainCodeInvalidTransition))
}

func TestTestDriveService_NoShowAndCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t, "Maria")

	missed, err := env.schedule(testVehicle, lead.ID, testStart.Add(time.Hour))
	require.NoError(t, err)
	_, err = env.testDrives.MarkNoShow(ctx, missed.ID, testSeller)
	assert.True(t, models.HasDomainCode(err, models.DomainCodeTestDriveNotDue))

	env.clock.Advance(2 * time.Hour)
	noShow, err := env.testDrives.MarkNoShow(ctx, missed.ID, testSeller)
	require.NoError(t, err)
	assert.Equal(t, models.TestDriveStatusNoShow, noShow.Status)

	booked, err := env.schedule(testVehicle, lead.ID, testStart.Add(26*time.Hour))
	require.NoError(t, err)

	_, err = env.testDrives.Cancel(ctx, booked.ID, " ", testSeller)
	assert.True(t, models.IsValidationError(err))

	cancelled, err := env.testDrives.Cancel(ctx, booked.ID, "cliente viajou", testSeller)
	require.NoError(t, err)
	assert.Equal(t, models.TestDriveStatusCancelled, cancelled.Status)
	assert.Equal(t, "cliente viajou", cancelled.CancellationReason)

	_, err = env.testDrives.Get(ctx, uuid.New())
	assert.True(t, models.IsNotFound(err))
}

func TestTestDriveService_List(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t, "Maria")
	_, err := env.schedule(testVehicle, lead.ID, testStart.Add(time.Hour))
	require.NoError(t, err)
	_, err = env.schedule(testVehicle, lead.ID, testStart.Add(25*time.Hour))
	require.NoError(t, err)

	from := testStart
	to := testStart.Add(24 * time.Hour)
	page, err := env.testDrives.List(ctx, repository.TestDriveFilter{
		LeadID:        &lead.ID,
		ScheduledFrom: &from,
		ScheduledTo:   &to,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, testStart.Add(time.Hour), page.Items[0].ScheduledAt)
}
