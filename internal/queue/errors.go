package queue

import "errors"

var (
	// ErrQueueUnavailable indicates the queue is not available
	ErrQueueUnavailable = errors.New("queue is unavailable")

	// ErrEventNotFound indicates the requested outbox event was not found
	ErrEventNotFound = errors.New("outbox event not found")

	// ErrQueueClosed indicates the queue no longer accepts operations
	ErrQueueClosed = errors.New("queue is closed")
)

// IsUnavailableError checks if an error indicates queue unavailability
func IsUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrQueueUnavailable)
}
