package repository

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// DeliveryAttemptRepository defines the persistence operations for outbox delivery attempts
type DeliveryAttemptRepository interface {
	// CreateDeliveryAttempt creates a new delivery attempt record
	CreateDeliveryAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error

	// GetDeliveryAttemptsByEventID retrieves all delivery attempts for an outbox event
	GetDeliveryAttemptsByEventID(ctx context.Context, eventID int64) ([]*models.DeliveryAttempt, error)

	// GetLatestDeliveryAttempt retrieves the most recent delivery attempt for an outbox event
	GetLatestDeliveryAttempt(ctx context.Context, eventID int64) (*models.DeliveryAttempt, error)

	// CountDeliveryAttempts returns the number of delivery attempts for an outbox event
	CountDeliveryAttempts(ctx context.Context, eventID int64) (int, error)
}

func eventIDString(eventID int64) string {
	return strconv.FormatInt(eventID, 10)
}

const deliveryAttemptColumns = `
	id, event_id, attempt_no, publisher, requested_at, response_status,
	response_body, error_message, success, created_at`

// deliveryAttemptRepository is the PostgreSQL implementation of DeliveryAttemptRepository
type deliveryAttemptRepository struct {
	db *sqlx.DB
}

// NewDeliveryAttemptRepository creates a new DeliveryAttemptRepository instance
func NewDeliveryAttemptRepository(db *sqlx.DB) DeliveryAttemptRepository {
	return &deliveryAttemptRepository{db: db}
}

func stampAttempt(attempt *models.DeliveryAttempt) {
	now := time.Now()
	if attempt.RequestedAt.IsZero() {
		attempt.RequestedAt = now
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
}

// CreateDeliveryAttempt creates a new delivery attempt record
func (r *deliveryAttemptRepository) CreateDeliveryAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error {
	stampAttempt(attempt)

	query := `
		INSERT INTO event_delivery_attempts (
			event_id, attempt_no, publisher, requested_at, response_status,
			response_body, error_message, success, created_at
		) VALUES (
			:event_id, :attempt_no, :publisher, :requested_at, :response_status,
			:response_body, :error_message, :success, :created_at
		)
		RETURNING id
	`
	bound, args, err := r.db.BindNamed(query, attempt)
	if err != nil {
		return errors.Wrap(err, "failed to bind delivery attempt")
	}
	if err := r.db.QueryRowxContext(ctx, bound, args...).Scan(&attempt.ID); err != nil {
		return errors.Wrap(err, "failed to create delivery attempt")
	}
	return nil
}

// GetDeliveryAttemptsByEventID retrieves all delivery attempts for an outbox event
func (r *deliveryAttemptRepository) GetDeliveryAttemptsByEventID(ctx context.Context, eventID int64) ([]*models.DeliveryAttempt, error) {
	query := `SELECT ` + deliveryAttemptColumns + ` FROM event_delivery_attempts WHERE event_id = $1 ORDER BY attempt_no ASC`

	attempts := []*models.DeliveryAttempt{}
	if err := r.db.SelectContext(ctx, &attempts, query, eventID); err != nil {
		return nil, errors.Wrap(err, "failed to query delivery attempts")
	}
	return attempts, nil
}

// GetLatestDeliveryAttempt retrieves the most recent delivery attempt for an outbox event
func (r *deliveryAttemptRepository) GetLatestDeliveryAttempt(ctx context.Context, eventID int64) (*models.DeliveryAttempt, error) {
	query := `SELECT ` + deliveryAttemptColumns + ` FROM event_delivery_attempts WHERE event_id = $1 ORDER BY attempt_no DESC LIMIT 1`

	attempt := &models.DeliveryAttempt{}
	err := r.db.GetContext(ctx, attempt, query, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("delivery attempt", eventIDString(eventID))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest delivery attempt")
	}
	return attempt, nil
}

// CountDeliveryAttempts returns the number of delivery attempts for an outbox event
func (r *deliveryAttemptRepository) CountDeliveryAttempts(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM event_delivery_attempts WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count delivery attempts")
	}
	return count, nil
}

// MemoryDeliveryAttemptRepository keeps delivery attempts in process memory
type MemoryDeliveryAttemptRepository struct {
	mu       sync.Mutex
	attempts []*models.DeliveryAttempt
	nextID   int64
}

// NewMemoryDeliveryAttemptRepository creates an empty in-memory repository
func NewMemoryDeliveryAttemptRepository() *MemoryDeliveryAttemptRepository {
	return &MemoryDeliveryAttemptRepository{}
}

// CreateDeliveryAttempt stores a copy of the attempt
func (r *MemoryDeliveryAttemptRepository) CreateDeliveryAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stampAttempt(attempt)
	r.nextID++
	attempt.ID = r.nextID
	stored := *attempt
	r.attempts = append(r.attempts, &stored)
	return nil
}

func (r *MemoryDeliveryAttemptRepository) forEvent(eventID int64) []*models.DeliveryAttempt {
	var out []*models.DeliveryAttempt
	for _, attempt := range r.attempts {
		if attempt.EventID == eventID {
			copied := *attempt
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AttemptNo < out[j].AttemptNo })
	return out
}

// GetDeliveryAttemptsByEventID returns the event's attempts in attempt order
func (r *MemoryDeliveryAttemptRepository) GetDeliveryAttemptsByEventID(ctx context.Context, eventID int64) ([]*models.DeliveryAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempts := r.forEvent(eventID)
	if attempts == nil {
		attempts = []*models.DeliveryAttempt{}
	}
	return attempts, nil
}

// GetLatestDeliveryAttempt returns the highest-numbered attempt
func (r *MemoryDeliveryAttemptRepository) GetLatestDeliveryAttempt(ctx context.Context, eventID int64) (*models.DeliveryAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempts := r.forEvent(eventID)
	if len(attempts) == 0 {
		return nil, models.NewNotFoundError("delivery attempt", eventIDString(eventID))
	}
	return attempts[len(attempts)-1], nil
}

// CountDeliveryAttempts returns how many attempts were recorded for the event
func (r *MemoryDeliveryAttemptRepository) CountDeliveryAttempts(ctx context.Context, eventID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.forEvent(eventID)), nil
}
