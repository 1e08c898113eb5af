package messaging

import (
	"context"
	"fmt"

	"github.com/tassosgomes/GestAuto-sub000/internal/client"
	"github.com/tassosgomes/GestAuto-sub000/internal/config"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// Publisher delivers one outbox event to a downstream consumer
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event *models.OutboxEvent) (*models.DeliveryReceipt, error)
}

// FromConfig builds the publisher selected by EVENTS_PUBLISHER. The returned close func
// releases its connections and is never nil.
func FromConfig(cfg config.EventsConfig) (Publisher, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Publisher {
	case config.PublisherKafka:
		p := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, p.Close, nil
	case config.PublisherWebhook:
		return client.NewOrdersWebhookClient(cfg.WebhookURL, cfg.WebhookToken, cfg.WebhookTimeout), noop, nil
	case config.PublisherLog, "":
		return NewLogPublisher(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown publisher %q", cfg.Publisher)
	}
}
