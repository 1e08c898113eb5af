package queue

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// DefaultClaimLease is how long a dequeued event stays invisible to other workers
const DefaultClaimLease = 5 * time.Minute

const outboxColumns = `
	id, event_id, event_type, aggregate_id, payload, status, attempts, last_error,
	next_run_at, occurred_at, created_at, updated_at`

// Insert stores a pending outbox event through q, which may be a transaction.
// The generated id is written back to event.ID.
func Insert(ctx context.Context, q sqlx.ExtContext, event *models.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (
			event_id, event_type, aggregate_id, payload, status, attempts,
			next_run_at, occurred_at, created_at, updated_at
		) VALUES (
			:event_id, :event_type, :aggregate_id, :payload, :status, :attempts,
			:next_run_at, :occurred_at, :created_at, :updated_at
		)
		RETURNING id
	`
	bound, args, err := q.BindNamed(query, event)
	if err != nil {
		return errors.Wrap(err, "failed to bind outbox event")
	}
	if err := q.QueryRowxContext(ctx, bound, args...).Scan(&event.ID); err != nil {
		if isDatabaseUnavailable(err) {
			return errors.Wrapf(ErrQueueUnavailable, "%v", err)
		}
		return errors.Wrapf(err, "failed to record %s event", event.Type)
	}
	return nil
}

// DBQueue implements Queue over the outbox_events table
type DBQueue struct {
	db    *sqlx.DB
	lease time.Duration
}

// NewDBQueue creates a new database-backed queue
func NewDBQueue(db *sqlx.DB, lease time.Duration) (*DBQueue, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	if lease <= 0 {
		lease = DefaultClaimLease
	}
	return &DBQueue{db: db, lease: lease}, nil
}

// Enqueue stores a pending event
func (q *DBQueue) Enqueue(ctx context.Context, event *models.OutboxEvent) error {
	return Insert(ctx, q.db, event)
}

// Dequeue claims the next due event. A claimed event is leased rather than locked,
// so an event whose worker died becomes due again once the lease expires.
func (q *DBQueue) Dequeue(ctx context.Context) (*models.OutboxEvent, error) {
	query := `
		UPDATE outbox_events
		SET attempts = attempts + 1, next_run_at = NOW() + $2::bigint * INTERVAL '1 millisecond', updated_at = NOW()
		WHERE id = (
			SELECT id FROM outbox_events
			WHERE status = $1 AND next_run_at <= NOW()
			ORDER BY next_run_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + outboxColumns

	var event models.OutboxEvent
	err := q.db.GetContext(ctx, &event, query, models.OutboxStatusPending, q.lease.Milliseconds())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		if isDatabaseUnavailable(err) {
			return nil, errors.Wrapf(ErrQueueUnavailable, "%v", err)
		}
		return nil, errors.Wrap(err, "failed to dequeue event")
	}
	return &event, nil
}

// Complete marks an event as delivered
func (q *DBQueue) Complete(ctx context.Context, eventID int64) error {
	query := `
		UPDATE outbox_events
		SET status = $2, last_error = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return q.execOne(ctx, "complete", query, eventID, models.OutboxStatusDelivered)
}

// Retry reschedules an event for another attempt after delay
func (q *DBQueue) Retry(ctx context.Context, eventID int64, delay time.Duration, errorMsg string) error {
	query := `
		UPDATE outbox_events
		SET status = $2, next_run_at = $3, last_error = $4, updated_at = NOW()
		WHERE id = $1
	`
	return q.execOne(ctx, "retry", query, eventID, models.OutboxStatusPending, time.Now().Add(delay), errorMsg)
}

// Fail marks an event as permanently failed
func (q *DBQueue) Fail(ctx context.Context, eventID int64, errorMsg string) error {
	query := `
		UPDATE outbox_events
		SET status = $2, last_error = $3, updated_at = NOW()
		WHERE id = $1
	`
	return q.execOne(ctx, "fail", query, eventID, models.OutboxStatusFailed, errorMsg)
}

func (q *DBQueue) execOne(ctx context.Context, action, query string, eventID int64, args ...interface{}) error {
	result, err := q.db.ExecContext(ctx, query, append([]interface{}{eventID}, args...)...)
	if err != nil {
		return errors.Wrapf(err, "failed to %s event", action)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(ErrEventNotFound, "event %d", eventID)
	}
	return nil
}

// HealthCheck verifies the queue is operational
func (q *DBQueue) HealthCheck(ctx context.Context) error {
	var result int
	if err := q.db.QueryRowContext(ctx, `SELECT 1`).Scan(&result); err != nil {
		return errors.Wrap(err, "queue health check failed")
	}
	return nil
}

// Close is a no-op; DBQueue does not own the connection pool
func (q *DBQueue) Close() error {
	return nil
}

// isDatabaseUnavailable checks if an error indicates database unavailability
func isDatabaseUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"too many connections",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
