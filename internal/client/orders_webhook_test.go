package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

func saleClosedEvent(t *testing.T) *models.OutboxEvent {
	t.Helper()
	event, err := models.NewOutboxEvent(models.SaleClosed{
		EventMeta:     models.NewEventMeta(uuid.New(), time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)),
		ProposalID:    uuid.New(),
		LeadID:        uuid.New(),
		SalesPersonID: uuid.New(),
		Vehicle:       models.VehicleTerms{Model: "Corolla", Year: 2026},
		VehiclePrice:  models.MustMoney("100000.00"),
		Discount:      models.ZeroMoney,
		TradeInValue:  models.ZeroMoney,
		TotalValue:    models.MustMoney("100000.00"),
		PaymentMethod: models.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("Failed to build outbox event: %v", err)
	}
	event.ID = 42
	return event
}

func asDeliveryError(t *testing.T, err error) *models.DeliveryError {
	t.Helper()
	var deliveryErr *models.DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("Expected *models.DeliveryError, got %T", err)
	}
	return deliveryErr
}

func TestPublish_Success(t *testing.T) {
	event := saleClosedEvent(t)
	var received Envelope

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if contentType := r.Header.Get("Content-Type"); contentType != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %s", contentType)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token-123" {
			t.Errorf("Expected bearer token, got %s", auth)
		}
		if got := r.Header.Get("Idempotency-Key"); got != event.EventID.String() {
			t.Errorf("Expected Idempotency-Key %s, got %s", event.EventID, got)
		}
		if got := r.Header.Get("X-Event-Type"); got != string(models.EventTypeSaleClosed) {
			t.Errorf("Expected X-Event-Type %s, got %s", models.EventTypeSaleClosed, got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}

		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"orderId": "ord-123"}`))
	}))
	defer server.Close()

	client := NewOrdersWebhookClient(server.URL, "test-token-123", 30*time.Second)

	receipt, err := client.Publish(context.Background(), event)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if receipt.StatusCode != http.StatusAccepted {
		t.Errorf("Expected status code 202, got %d", receipt.StatusCode)
	}
	if receipt.Body != `{"orderId": "ord-123"}` {
		t.Errorf("Expected response body to be kept, got %q", receipt.Body)
	}

	if received.EventID != event.EventID || received.AggregateID != event.AggregateID {
		t.Errorf("Expected envelope ids to match the event, got %+v", received)
	}
	var sale map[string]interface{}
	if err := json.Unmarshal(received.Payload, &sale); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if sale["totalValue"] != 100000.0 {
		t.Errorf("Expected totalValue 100000 in payload, got %v", sale["totalValue"])
	}
}

func TestPublish_WithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("Expected no Authorization header, got %s", auth)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewOrdersWebhookClient(server.URL, "", 30*time.Second)
	if _, err := client.Publish(context.Background(), saleClosedEvent(t)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestPublish_StatusClassification(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		retriable  bool
	}{
		{"400 Bad Request", http.StatusBadRequest, false},
		{"401 Unauthorized", http.StatusUnauthorized, false},
		{"404 Not Found", http.StatusNotFound, false},
		{"409 Conflict", http.StatusConflict, false},
		{"422 Unprocessable Entity", http.StatusUnprocessableEntity, false},
		{"429 Too Many Requests", http.StatusTooManyRequests, true},
		{"500 Internal Server Error", http.StatusInternalServerError, true},
		{"502 Bad Gateway", http.StatusBadGateway, true},
		{"503 Service Unavailable", http.StatusServiceUnavailable, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				w.Write([]byte(`{"error": "nope"}`))
			}))
			defer server.Close()

			client := NewOrdersWebhookClient(server.URL, "token", 30*time.Second)

			receipt, err := client.Publish(context.Background(), saleClosedEvent(t))
			if err == nil {
				t.Fatalf("Expected error for %d response, got nil", tc.statusCode)
			}
			if receipt != nil {
				t.Errorf("Expected no receipt for a failed delivery, got %+v", receipt)
			}

			deliveryErr := asDeliveryError(t, err)
			if deliveryErr.IsRetriable() != tc.retriable {
				t.Errorf("Expected retriable=%v for %d, got %v", tc.retriable, tc.statusCode, deliveryErr.IsRetriable())
			}
			if deliveryErr.StatusCode != tc.statusCode {
				t.Errorf("Expected status code %d, got %d", tc.statusCode, deliveryErr.StatusCode)
			}
		})
	}
}

func TestPublish_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewOrdersWebhookClient(url, "token", time.Second)

	_, err := client.Publish(context.Background(), saleClosedEvent(t))
	if err == nil {
		t.Fatal("Expected network error, got nil")
	}
	if !asDeliveryError(t, err).IsRetriable() {
		t.Error("Expected network error to be retriable")
	}
}

func TestPublish_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewOrdersWebhookClient(server.URL, "token", 50*time.Millisecond)

	_, err := client.Publish(context.Background(), saleClosedEvent(t))
	if err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
	if !asDeliveryError(t, err).IsRetriable() {
		t.Error("Expected timeout error to be retriable")
	}
}

func TestPublish_InvalidPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected no request for an unencodable event")
	}))
	defer server.Close()

	event := saleClosedEvent(t)
	event.Payload = json.RawMessage(`{not json`)

	client := NewOrdersWebhookClient(server.URL, "token", 30*time.Second)

	_, err := client.Publish(context.Background(), event)
	if err == nil {
		t.Fatal("Expected error for invalid payload, got nil")
	}
	if asDeliveryError(t, err).IsRetriable() {
		t.Error("Expected marshal error to be non-retriable")
	}
}

func TestPublish_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewOrdersWebhookClient(server.URL, "token", 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Publish(ctx, saleClosedEvent(t))
	if err == nil {
		t.Fatal("Expected error for cancelled context, got nil")
	}
	if !asDeliveryError(t, err).IsRetriable() {
		t.Error("Expected context cancellation to be retriable")
	}
}

func TestIsRetriableStatusCode(t *testing.T) {
	testCases := []struct {
		statusCode int
		want       bool
	}{
		{http.StatusMovedPermanently, false},
		{http.StatusBadRequest, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusGatewayTimeout, true},
	}
	for _, tc := range testCases {
		if got := isRetriableStatusCode(tc.statusCode); got != tc.want {
			t.Errorf("isRetriableStatusCode(%d) = %v, want %v", tc.statusCode, got, tc.want)
		}
	}
}

func TestName(t *testing.T) {
	if name := NewOrdersWebhookClient("http://localhost", "", time.Second).Name(); name != PublisherName {
		t.Errorf("Expected publisher name %q, got %q", PublisherName, name)
	}
}
