package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// KafkaPublisherName identifies Kafka deliveries in attempt records and metrics
const KafkaPublisherName = "kafka"

// Message header keys
const (
	HeaderEventID    = "event_id"
	HeaderEventType  = "event_type"
	HeaderOccurredAt = "occurred_at"
)

// messageWriter is the part of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes outbox events to one topic, keyed by aggregate id so that the events
// of one proposal, test-drive or evaluation stay ordered within a partition
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaWriter creates a synchronous writer that waits for all in-sync replicas
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

// NewKafkaPublisher creates a publisher over a dedicated writer for brokers and topic
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: NewKafkaWriter(brokers, topic), topic: topic}
}

func newKafkaPublisherWithWriter(writer messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic}
}

// Name returns the publisher name
func (p *KafkaPublisher) Name() string {
	return KafkaPublisherName
}

// Message builds the Kafka record for an outbox event
func Message(event *models.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(event.AggregateID.String()),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(event.EventID.String())},
			{Key: HeaderEventType, Value: []byte(event.Type)},
			{Key: HeaderOccurredAt, Value: []byte(event.OccurredAt.UTC().Format(time.RFC3339Nano))},
		},
	}
}

// Publish writes one event. Broker errors that Kafka marks as permanent are not retried.
func (p *KafkaPublisher) Publish(ctx context.Context, event *models.OutboxEvent) (*models.DeliveryReceipt, error) {
	if err := p.writer.WriteMessages(ctx, Message(event)); err != nil {
		return nil, models.NewDeliveryError(0, "kafka write to "+p.topic+" failed", isRetriableKafkaError(err), err)
	}
	return &models.DeliveryReceipt{Body: p.topic}, nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func isRetriableKafkaError(err error) bool {
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	// network and timeout errors
	return true
}
