package queue

import (
	"context"
	"time"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// Queue hands recorded domain events to the relay worker
type Queue interface {
	// Enqueue stores a pending event outside of any business transaction
	Enqueue(ctx context.Context, event *models.OutboxEvent) error

	// Dequeue claims the next due event and increments its attempt counter.
	// Returns nil if no events are due.
	Dequeue(ctx context.Context) (*models.OutboxEvent, error)

	// Complete marks an event as delivered
	Complete(ctx context.Context, eventID int64) error

	// Retry reschedules an event after a delay, keeping the last error
	Retry(ctx context.Context, eventID int64, delay time.Duration, errorMsg string) error

	// Fail marks an event as permanently failed
	Fail(ctx context.Context, eventID int64, errorMsg string) error

	// HealthCheck verifies the queue is operational
	HealthCheck(ctx context.Context) error

	// Close releases queue resources
	Close() error
}
