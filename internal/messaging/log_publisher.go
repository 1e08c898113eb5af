package messaging

import (
	"context"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// LogPublisherName identifies log-only deliveries
const LogPublisherName = "log"

// LogPublisher writes each event to the structured log and always succeeds.
// Used in development when neither Kafka nor a webhook is configured.
type LogPublisher struct{}

// NewLogPublisher creates a log-only publisher
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Name returns the publisher name
func (p *LogPublisher) Name() string {
	return LogPublisherName
}

// Publish logs the event
func (p *LogPublisher) Publish(ctx context.Context, event *models.OutboxEvent) (*models.DeliveryReceipt, error) {
	logger.Info(logger.WithEntityID(ctx, event.AggregateID), "Domain event published",
		"event_id", event.EventID.String(),
		"event_type", string(event.Type),
		"payload", string(event.Payload),
	)
	return &models.DeliveryReceipt{Body: LogPublisherName}, nil
}
