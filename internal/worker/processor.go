package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/metrics"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/queue"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
)

// Publisher delivers one outbox event to a downstream consumer
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event *models.OutboxEvent) (*models.DeliveryReceipt, error)
}

// maxBackoff caps the retry delay
const maxBackoff = time.Hour

// Processor relays recorded domain events from the outbox to a Publisher
type Processor struct {
	queue               queue.Queue
	deliveryAttemptRepo repository.DeliveryAttemptRepository
	publisher           Publisher
	metrics             *metrics.Metrics
	pollInterval        time.Duration
	batchSize           int
	maxAttempts         int
	backoff             func(attempt int) time.Duration
	shutdownChan        chan struct{}
}

// ProcessorConfig holds configuration for the outbox relay
type ProcessorConfig struct {
	Queue               queue.Queue
	DeliveryAttemptRepo repository.DeliveryAttemptRepository
	Publisher           Publisher
	Metrics             *metrics.Metrics
	PollInterval        time.Duration
	BatchSize           int
	MaxAttempts         int
	BackoffBase         time.Duration

	// Backoff overrides the exponential schedule derived from BackoffBase
	Backoff func(attempt int) time.Duration
}

// NewProcessor creates a new outbox relay
func NewProcessor(config ProcessorConfig) *Processor {
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 5
	}
	if config.BackoffBase == 0 {
		config.BackoffBase = 30 * time.Second
	}
	if config.Backoff == nil {
		base := config.BackoffBase
		config.Backoff = func(attempt int) time.Duration { return Backoff(base, attempt) }
	}

	return &Processor{
		queue:               config.Queue,
		deliveryAttemptRepo: config.DeliveryAttemptRepo,
		publisher:           config.Publisher,
		metrics:             config.Metrics,
		pollInterval:        config.PollInterval,
		batchSize:           config.BatchSize,
		maxAttempts:         config.MaxAttempts,
		backoff:             config.Backoff,
		shutdownChan:        make(chan struct{}),
	}
}

// Backoff returns the delay before retrying after the given attempt: base, 2*base, 4*base...
// capped at one hour
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff || delay <= 0 {
			return maxBackoff
		}
	}
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

// Start begins the relay polling loop with graceful shutdown
func (p *Processor) Start(ctx context.Context) error {
	logger.Info(ctx, "Starting outbox relay",
		"poll_interval", p.pollInterval,
		"batch_size", p.batchSize,
		"publisher", p.publisher.Name())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context cancelled, shutting down gracefully")
			return ctx.Err()

		case <-sigChan:
			logger.Info(ctx, "Received shutdown signal, shutting down gracefully")
			return nil

		case <-p.shutdownChan:
			logger.Info(ctx, "Shutdown requested, shutting down gracefully")
			return nil

		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				logger.LogError(ctx, "Error relaying outbox events", err)
				// keep polling
			}
		}
	}
}

// Shutdown signals the relay to stop gracefully
func (p *Processor) Shutdown() {
	close(p.shutdownChan)
}

// ProcessBatch claims and delivers up to batchSize due events, returning how many were claimed
func (p *Processor) ProcessBatch(ctx context.Context) (int, error) {
	claimed := 0
	defer func() { p.metrics.SetBatchSize(claimed) }()

	for claimed < p.batchSize {
		processed, err := p.ProcessNext(ctx)
		if err != nil {
			return claimed, err
		}
		if !processed {
			break
		}
		claimed++
	}
	return claimed, nil
}

// ProcessNext claims one due event and delivers it. Returns false when nothing is due.
func (p *Processor) ProcessNext(ctx context.Context) (bool, error) {
	event, err := p.queue.Dequeue(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to dequeue event: %w", err)
	}
	if event == nil {
		return false, nil
	}

	ctx = logger.WithEntityID(ctx, event.AggregateID)
	if err := p.deliver(ctx, event); err != nil {
		return true, err
	}
	return true, nil
}

// deliver publishes one claimed event and settles it in the queue
func (p *Processor) deliver(ctx context.Context, event *models.OutboxEvent) error {
	startTime := time.Now()
	defer func() { logger.LogSlowOperation(ctx, "relay_event", time.Since(startTime)) }()

	logger.Info(ctx, "Publishing event",
		"event_id", event.EventID.String(),
		"event_type", string(event.Type),
		"attempt_no", event.Attempts,
		"max_attempts", p.maxAttempts)

	attempt := models.NewDeliveryAttempt(event.ID, event.Attempts, p.publisher.Name())
	receipt, pubErr := p.publisher.Publish(ctx, event)
	p.metrics.ObservePublish(string(event.Type), p.publisher.Name(), pubErr == nil)

	if pubErr == nil {
		if receipt == nil {
			receipt = &models.DeliveryReceipt{}
		}
		attempt.MarkSuccess(receipt.StatusCode, receipt.Body)
		p.recordAttempt(ctx, attempt)

		if err := p.queue.Complete(ctx, event.ID); err != nil {
			return fmt.Errorf("failed to complete event %d: %w", event.ID, err)
		}
		logger.LogStatusTransition(ctx, "outbox_event", event.EventID,
			string(models.OutboxStatusPending), string(models.OutboxStatusDelivered))
		return nil
	}

	retriable := true
	var statusCode *int
	var delErr *models.DeliveryError
	if errors.As(pubErr, &delErr) {
		retriable = delErr.IsRetriable()
		if delErr.StatusCode != 0 {
			code := delErr.StatusCode
			statusCode = &code
		}
	}
	attempt.MarkFailure(statusCode, pubErr.Error())
	p.recordAttempt(ctx, attempt)

	logger.Info(ctx, "Delivery attempt failed",
		"event_id", event.EventID.String(),
		"attempt_no", event.Attempts,
		"retriable", retriable,
		"error", pubErr.Error())

	if !retriable || event.Attempts >= p.maxAttempts {
		if !retriable {
			logger.Info(ctx, "Non-retriable error encountered, marking as failed")
		} else {
			logger.Info(ctx, "Max attempts exhausted, marking as failed")
		}
		if err := p.queue.Fail(ctx, event.ID, pubErr.Error()); err != nil {
			return fmt.Errorf("failed to fail event %d: %w", event.ID, err)
		}
		logger.LogStatusTransition(ctx, "outbox_event", event.EventID,
			string(models.OutboxStatusPending), string(models.OutboxStatusFailed))
		return nil
	}

	delay := p.backoff(event.Attempts)
	logger.Info(ctx, "Scheduling retry", "attempt_no", event.Attempts, "delay", delay)
	if err := p.queue.Retry(ctx, event.ID, delay, pubErr.Error()); err != nil {
		return fmt.Errorf("failed to reschedule event %d: %w", event.ID, err)
	}
	return nil
}

// recordAttempt stores the attempt; a failure here must not block settling the event
func (p *Processor) recordAttempt(ctx context.Context, attempt *models.DeliveryAttempt) {
	if p.deliveryAttemptRepo == nil {
		return
	}
	if err := p.deliveryAttemptRepo.CreateDeliveryAttempt(ctx, attempt); err != nil {
		logger.LogError(ctx, "Failed to record delivery attempt", err, "event_id", attempt.EventID)
	}
}
