package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

const testDriveColumns = `
	id, lead_id, vehicle_id, sales_person_id, status, scheduled_at, ends_at, notes,
	checklist, customer_feedback, completed_by, completed_at,
	cancellation_reason, cancelled_by, cancelled_at, created_at, updated_at`

type testDriveRow struct {
	ID                 uuid.UUID          `db:"id"`
	LeadID             uuid.UUID          `db:"lead_id"`
	VehicleID          uuid.UUID          `db:"vehicle_id"`
	SalesPersonID      uuid.UUID          `db:"sales_person_id"`
	Status             string             `db:"status"`
	ScheduledAt        time.Time          `db:"scheduled_at"`
	EndsAt             time.Time          `db:"ends_at"`
	Notes              string             `db:"notes"`
	Checklist          types.NullJSONText `db:"checklist"`
	CustomerFeedback   string             `db:"customer_feedback"`
	CompletedBy        uuid.NullUUID      `db:"completed_by"`
	CompletedAt        sql.NullTime       `db:"completed_at"`
	CancellationReason string             `db:"cancellation_reason"`
	CancelledBy        uuid.NullUUID      `db:"cancelled_by"`
	CancelledAt        sql.NullTime       `db:"cancelled_at"`
	CreatedAt          time.Time          `db:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at"`
}

func newTestDriveRow(t *models.TestDrive) (*testDriveRow, error) {
	checklist, err := nullJSON(t.Checklist, t.Checklist == nil)
	if err != nil {
		return nil, err
	}
	return &testDriveRow{
		ID:                 t.ID,
		LeadID:             t.LeadID,
		VehicleID:          t.VehicleID,
		SalesPersonID:      t.SalesPersonID,
		Status:             string(t.Status),
		ScheduledAt:        t.ScheduledAt,
		EndsAt:             t.EndsAt(),
		Notes:              t.Notes,
		Checklist:          checklist,
		CustomerFeedback:   t.CustomerFeedback,
		CompletedBy:        nullUUID(t.CompletedBy),
		CompletedAt:        nullTime(t.CompletedAt),
		CancellationReason: t.CancellationReason,
		CancelledBy:        nullUUID(t.CancelledBy),
		CancelledAt:        nullTime(t.CancelledAt),
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}, nil
}

func (r *testDriveRow) toModel() (*models.TestDrive, error) {
	t := &models.TestDrive{
		ID:                 r.ID,
		LeadID:             r.LeadID,
		VehicleID:          r.VehicleID,
		SalesPersonID:      r.SalesPersonID,
		Status:             models.TestDriveStatus(r.Status),
		ScheduledAt:        r.ScheduledAt,
		Notes:              r.Notes,
		CustomerFeedback:   r.CustomerFeedback,
		CompletedBy:        uuidPtr(r.CompletedBy),
		CompletedAt:        timePtr(r.CompletedAt),
		CancellationReason: r.CancellationReason,
		CancelledBy:        uuidPtr(r.CancelledBy),
		CancelledAt:        timePtr(r.CancelledAt),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.Checklist.Valid {
		t.Checklist = &models.Checklist{}
		if err := r.Checklist.Unmarshal(t.Checklist); err != nil {
			return nil, errors.Wrap(err, "failed to decode test-drive checklist")
		}
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// testDriveRepository is the PostgreSQL implementation of TestDriveRepository
type testDriveRepository struct {
	q sqlx.ExtContext
}

// NewTestDriveRepository creates a TestDriveRepository bound to the pool
func NewTestDriveRepository(db *sqlx.DB) TestDriveRepository {
	return &testDriveRepository{q: db}
}

// Add inserts a test-drive. The vehicle_slot exclusion constraint rejects overlapping
// Scheduled bookings even when callers skip LockVehicle.
func (r *testDriveRepository) Add(ctx context.Context, testDrive *models.TestDrive) error {
	row, err := newTestDriveRow(testDrive)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO test_drives (` + testDriveColumns + `)
		VALUES (
			:id, :lead_id, :vehicle_id, :sales_person_id, :status, :scheduled_at, :ends_at, :notes,
			:checklist, :customer_feedback, :completed_by, :completed_at,
			:cancellation_reason, :cancelled_by, :cancelled_at, :created_at, :updated_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, row); err != nil {
		return translateError(errors.Wrap(err, "failed to create test-drive"))
	}
	return nil
}

// Update replaces the stored test-drive
func (r *testDriveRepository) Update(ctx context.Context, testDrive *models.TestDrive) error {
	row, err := newTestDriveRow(testDrive)
	if err != nil {
		return err
	}

	query := `
		UPDATE test_drives
		SET status = :status, scheduled_at = :scheduled_at, ends_at = :ends_at, notes = :notes,
			checklist = :checklist, customer_feedback = :customer_feedback,
			completed_by = :completed_by, completed_at = :completed_at,
			cancellation_reason = :cancellation_reason, cancelled_by = :cancelled_by,
			cancelled_at = :cancelled_at, updated_at = :updated_at
		WHERE id = :id
	`
	bound, args, err := r.q.BindNamed(query, row)
	if err != nil {
		return errors.Wrap(err, "failed to bind test-drive update")
	}
	return execOne(ctx, r.q, "test-drive", testDrive.ID.String(), bound, args...)
}

// GetByID retrieves a test-drive by its ID
func (r *testDriveRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TestDrive, error) {
	var row testDriveRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+testDriveColumns+` FROM test_drives WHERE id = $1`, id)
	if err != nil {
		return nil, notFoundOr(err, "test-drive", id.String(), "get")
	}
	return row.toModel()
}

func (r *testDriveRepository) whereClause(filter TestDriveFilter) *whereBuilder {
	w := &whereBuilder{}
	if len(filter.Statuses) > 0 {
		w.add("status = ANY(?)", pq.Array(stringValues(filter.Statuses)))
	}
	if filter.LeadID != nil {
		w.add("lead_id = ?", *filter.LeadID)
	}
	if filter.VehicleID != nil {
		w.add("vehicle_id = ?", *filter.VehicleID)
	}
	if filter.SalesPersonID != nil {
		w.add("sales_person_id = ?", *filter.SalesPersonID)
	}
	if filter.ScheduledFrom != nil {
		w.add("scheduled_at >= ?", *filter.ScheduledFrom)
	}
	if filter.ScheduledTo != nil {
		w.add("scheduled_at < ?", *filter.ScheduledTo)
	}
	return w
}

// List returns the test-drives matching the filter, soonest first
func (r *testDriveRepository) List(ctx context.Context, filter TestDriveFilter) ([]*models.TestDrive, error) {
	w := r.whereClause(filter)
	query := `SELECT ` + testDriveColumns + ` FROM test_drives` + w.where() +
		` ORDER BY scheduled_at ASC, id` + w.paging(filter.Limit, filter.Offset)

	var rows []testDriveRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "failed to list test-drives")
	}

	testDrives := make([]*models.TestDrive, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		testDrives = append(testDrives, t)
	}
	return testDrives, nil
}

// Count returns how many test-drives match the filter
func (r *testDriveRepository) Count(ctx context.Context, filter TestDriveFilter) (int, error) {
	w := r.whereClause(filter)
	var count int
	if err := sqlx.GetContext(ctx, r.q, &count, `SELECT COUNT(*) FROM test_drives`+w.where(), w.args...); err != nil {
		return 0, errors.Wrap(err, "failed to count test-drives")
	}
	return count, nil
}

// LockVehicle takes a transaction-scoped advisory lock keyed by the vehicle id
func (r *testDriveRepository) LockVehicle(ctx context.Context, vehicleID uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, vehicleID.String()); err != nil {
		return errors.Wrap(err, "failed to lock vehicle")
	}
	return nil
}

// HasOverlap reports whether a Scheduled booking intersects [start, end)
func (r *testDriveRepository) HasOverlap(ctx context.Context, vehicleID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM test_drives
			WHERE vehicle_id = $1
				AND status = $2
				AND scheduled_at < $4
				AND ends_at > $3
				AND id <> $5
		)
	`
	var exists bool
	err := sqlx.GetContext(ctx, r.q, &exists, query, vehicleID, models.TestDriveStatusScheduled, start, end, excludeID)
	if err != nil {
		return false, errors.Wrap(err, "failed to check vehicle availability")
	}
	return exists, nil
}
