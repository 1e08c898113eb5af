package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
)

const testDriveEngine = "test_drive"

// ScheduleTestDriveInput carries a booking request
type ScheduleTestDriveInput struct {
	LeadID        uuid.UUID `json:"leadId"`
	VehicleID     uuid.UUID `json:"vehicleId"`
	ScheduledAt   time.Time `json:"scheduledAt"`
	SalesPersonID uuid.UUID `json:"salesPersonId"`
	Notes         string    `json:"notes,omitempty"`
}

// TestDriveService books vehicles and records test-drive outcomes
type TestDriveService struct {
	base
}

// NewTestDriveService creates a TestDriveService
func NewTestDriveService(uow repository.UnitOfWork, opts ...Option) *TestDriveService {
	return &TestDriveService{base: newBase(uow, opts)}
}

// Schedule books a vehicle for a lead. Concurrent bookings of one vehicle are serialized so
// that at most one of two overlapping requests succeeds.
func (s *TestDriveService) Schedule(ctx context.Context, in ScheduleTestDriveInput) (testDrive *models.TestDrive, err error) {
	ctx, finish := s.begin(ctx, testDriveEngine, "schedule", idAttr("lead.id", in.LeadID), idAttr("vehicle.id", in.VehicleID))
	defer finish(&err)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		lead, err := tx.Leads().GetByID(ctx, in.LeadID)
		if err != nil {
			return err
		}

		now := s.clock()
		testDrive, err = models.NewTestDrive(uuid.New(), lead.ID, in.VehicleID, in.SalesPersonID, in.ScheduledAt.UTC(), in.Notes, now)
		if err != nil {
			return err
		}

		if err := tx.TestDrives().LockVehicle(ctx, in.VehicleID); err != nil {
			return err
		}
		busy, err := tx.TestDrives().HasOverlap(ctx, in.VehicleID, testDrive.ScheduledAt, testDrive.EndsAt(), uuid.Nil)
		if err != nil {
			return err
		}
		if busy {
			return models.NewDomainError(models.DomainCodeVehicleUnavailable, "vehicle %s is already booked around %s", in.VehicleID, testDrive.ScheduledAt.Format(time.RFC3339))
		}
		if err := tx.TestDrives().Add(ctx, testDrive); err != nil {
			return err
		}

		old, err := lead.ChangeStatus(models.LeadStatusTestDriveScheduled, now)
		if err != nil {
			return err
		}
		if err := tx.Leads().Update(ctx, lead); err != nil {
			return err
		}
		logTransition(ctx, leadEngine, lead.ID, old, lead.Status)

		return tx.Events().Record(ctx, models.TestDriveScheduled{
			EventMeta:     models.NewEventMeta(in.SalesPersonID, now),
			TestDriveID:   testDrive.ID,
			LeadID:        lead.ID,
			VehicleID:     testDrive.VehicleID,
			SalesPersonID: testDrive.SalesPersonID,
			ScheduledAt:   testDrive.ScheduledAt,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(logger.WithEntityID(ctx, testDrive.ID), "Test-drive scheduled", "vehicle_id", testDrive.VehicleID.String(), "scheduled_at", testDrive.ScheduledAt.Format(time.RFC3339))
	return testDrive, nil
}

// Get returns a test-drive by id
func (s *TestDriveService) Get(ctx context.Context, id uuid.UUID) (testDrive *models.TestDrive, err error) {
	ctx, finish := s.begin(ctx, testDriveEngine, "get", idAttr("test_drive.id", id))
	defer finish(&err)

	return s.uow.Store().TestDrives().GetByID(ctx, id)
}

// List returns one page of test-drives matching the filter
func (s *TestDriveService) List(ctx context.Context, filter repository.TestDriveFilter) (page *Page[*models.TestDrive], err error) {
	ctx, finish := s.begin(ctx, testDriveEngine, "list")
	defer finish(&err)

	filter.Limit, filter.Offset = clampPaging(filter.Limit, filter.Offset)
	repo := s.uow.Store().TestDrives()

	items, err := repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page[*models.TestDrive]{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *TestDriveService) mutate(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx repository.Store, td *models.TestDrive, now time.Time) error) (*models.TestDrive, error) {
	var out *models.TestDrive
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		td, err := tx.TestDrives().GetByID(ctx, id)
		if err != nil {
			return err
		}
		before := td.Status
		if err := fn(ctx, tx, td, s.clock()); err != nil {
			return err
		}
		if err := tx.TestDrives().Update(ctx, td); err != nil {
			return err
		}
		logTransition(ctx, testDriveEngine, td.ID, before, td.Status)
		out = td
		return nil
	})
	return out, err
}

// Complete records the checklist and customer feedback
func (s *TestDriveService) Complete(ctx context.Context, id uuid.UUID, checklist models.Checklist, feedback string, completedBy uuid.UUID) (testDrive *models.TestDrive, err error) {
	ctx, finish := s.begin(ctx, testDriveEngine, "complete", idAttr("test_drive.id", id))
	defer finish(&err)

	return s.mutate(ctx, id, func(ctx context.Context, tx repository.Store, td *models.TestDrive, now time.Time) error {
		if err := td.Complete(checklist, feedback, completedBy, now); err != nil {
			return err
		}
		return tx.Events().Record(ctx, models.TestDriveCompleted{
			EventMeta:   models.NewEventMeta(completedBy, now),
			TestDriveID: td.ID,
			LeadID:      td.LeadID,
			VehicleID:   td.VehicleID,
			Checklist:   *td.Checklist,
		})
	})
}

// Cancel aborts a booking and frees the vehicle
func (s *TestDriveService) Cancel(ctx context.Context, id uuid.UUID, reason string, cancelledBy uuid.UUID) (testDrive *models.TestDrive, err error) {
	ctx, finish := s.begin(ctx, testDriveEngine, "cancel", idAttr("test_drive.id", id))
	defer finish(&err)

	return s.mutate(ctx, id, func(_ context.Context, _ repository.Store, td *models.TestDrive, now time.Time) error {
		return td.Cancel(reason, cancelledBy, now)
	})
}

// MarkNoShow records that the customer did not turn up
func (s *TestDriveService) MarkNoShow(ctx context.Context, id, by uuid.UUID) (testDrive *models.TestDrive, err error) {
	ctx, finish := s.begin(ctx, testDriveEngine, "no_show", idAttr("test_drive.id", id))
	defer finish(&err)

	testDrive, err = s.mutate(ctx, id, func(_ context.Context, _ repository.Store, td *models.TestDrive, now time.Time) error {
		return td.MarkNoShow(now)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(logger.WithActorID(ctx, by), "Test-drive no-show", "test_drive_id", id.String())
	return testDrive, nil
}
