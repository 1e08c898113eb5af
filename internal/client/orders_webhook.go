package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// PublisherName identifies webhook deliveries in attempt records and metrics
const PublisherName = "webhook"

// maxResponseBody caps how much of a response is kept for the attempt record
const maxResponseBody = 4096

// Envelope is the body posted for every domain event
type Envelope struct {
	EventID     uuid.UUID        `json:"eventId"`
	EventType   models.EventType `json:"eventType"`
	AggregateID uuid.UUID        `json:"aggregateId"`
	OccurredAt  time.Time        `json:"occurredAt"`
	Payload     json.RawMessage  `json:"payload"`
}

// OrdersWebhookClient posts domain events to the order/finance subsystem
type OrdersWebhookClient struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewOrdersWebhookClient creates a new webhook client
func NewOrdersWebhookClient(url, token string, timeout time.Duration) *OrdersWebhookClient {
	return &OrdersWebhookClient{
		url:   url,
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the publisher name
func (c *OrdersWebhookClient) Name() string {
	return PublisherName
}

// Publish posts one outbox event.
// Failures are returned as *models.DeliveryError with the Retriable flag set.
func (c *OrdersWebhookClient) Publish(ctx context.Context, event *models.OutboxEvent) (*models.DeliveryReceipt, error) {
	body, err := json.Marshal(Envelope{
		EventID:     event.EventID,
		EventType:   event.Type,
		AggregateID: event.AggregateID,
		OccurredAt:  event.OccurredAt,
		Payload:     event.Payload,
	})
	if err != nil {
		return nil, models.NewDeliveryError(0, "failed to marshal event", false, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, models.NewDeliveryError(0, "failed to create request", false, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(event.Type))
	// receivers deduplicate redeliveries on this key
	req.Header.Set("Idempotency-Key", event.EventID.String())
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors are retriable
		return nil, models.NewDeliveryError(0, "network error", true, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, models.NewDeliveryError(resp.StatusCode, "failed to read response body", true, err)
	}
	bodyString := string(bodyBytes)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &models.DeliveryReceipt{StatusCode: resp.StatusCode, Body: bodyString}, nil
	}

	message := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, bodyString)
	return nil, models.NewDeliveryError(resp.StatusCode, message, isRetriableStatusCode(resp.StatusCode), nil)
}

// isRetriableStatusCode determines if an HTTP status code should trigger a retry
func isRetriableStatusCode(statusCode int) bool {
	// 5xx errors are retriable (server errors)
	if statusCode >= 500 && statusCode < 600 {
		return true
	}

	// 429 Too Many Requests is retriable
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	// Other status codes (4xx, 3xx) are not retriable
	return false
}
