package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// MemoryQueue implements Queue in process memory for the in-memory storage driver
type MemoryQueue struct {
	mu     sync.Mutex
	events []*models.OutboxEvent
	nextID int64
	lease  time.Duration
	now    func() time.Time
	closed bool
}

// NewMemoryQueue creates an empty in-memory queue
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{lease: DefaultClaimLease, now: time.Now}
}

// Push serializes committed domain events into pending outbox records. Either every event
// is stored or none is.
func (q *MemoryQueue) Push(events []models.DomainEvent) error {
	records := make([]*models.OutboxEvent, 0, len(events))
	for _, event := range events {
		record, err := models.NewOutboxEvent(event)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	for _, record := range records {
		q.store(record)
	}
	return nil
}

// Enqueue stores a pending event
func (q *MemoryQueue) Enqueue(ctx context.Context, event *models.OutboxEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.store(event)
	return nil
}

func (q *MemoryQueue) store(event *models.OutboxEvent) {
	q.nextID++
	stored := *event
	stored.ID = q.nextID
	event.ID = stored.ID
	q.events = append(q.events, &stored)
}

// Dequeue claims the earliest due pending event
func (q *MemoryQueue) Dequeue(ctx context.Context) (*models.OutboxEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	now := q.now()
	var due []*models.OutboxEvent
	for _, event := range q.events {
		if event.Status == models.OutboxStatusPending && !event.NextRunAt.After(now) {
			due = append(due, event)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].NextRunAt.Equal(due[j].NextRunAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].NextRunAt.Before(due[j].NextRunAt)
	})

	claimed := due[0]
	claimed.Attempts++
	claimed.NextRunAt = now.Add(q.lease)
	claimed.UpdatedAt = now

	out := *claimed
	return &out, nil
}

// Complete marks an event as delivered
func (q *MemoryQueue) Complete(ctx context.Context, eventID int64) error {
	return q.update(eventID, func(event *models.OutboxEvent) {
		event.Status = models.OutboxStatusDelivered
		event.LastError = nil
	})
}

// Retry reschedules an event for another attempt after delay
func (q *MemoryQueue) Retry(ctx context.Context, eventID int64, delay time.Duration, errorMsg string) error {
	return q.update(eventID, func(event *models.OutboxEvent) {
		event.Status = models.OutboxStatusPending
		event.NextRunAt = q.now().Add(delay)
		event.LastError = &errorMsg
	})
}

// Fail marks an event as permanently failed
func (q *MemoryQueue) Fail(ctx context.Context, eventID int64, errorMsg string) error {
	return q.update(eventID, func(event *models.OutboxEvent) {
		event.Status = models.OutboxStatusFailed
		event.LastError = &errorMsg
	})
}

func (q *MemoryQueue) update(eventID int64, fn func(event *models.OutboxEvent)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, event := range q.events {
		if event.ID == eventID {
			fn(event)
			event.UpdatedAt = q.now()
			return nil
		}
	}
	return errors.Wrapf(ErrEventNotFound, "event %d", eventID)
}

// Snapshot returns copies of every stored event in insertion order
func (q *MemoryQueue) Snapshot() []models.OutboxEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.OutboxEvent, len(q.events))
	for i, event := range q.events {
		out[i] = *event
	}
	return out
}

// HealthCheck fails once the queue is closed
func (q *MemoryQueue) HealthCheck(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	return nil
}

// Close stops the queue from accepting operations
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	return nil
}
