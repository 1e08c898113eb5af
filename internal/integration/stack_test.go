package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tassosgomes/GestAuto-sub000/internal/client"
	"github.com/tassosgomes/GestAuto-sub000/internal/config"
	"github.com/tassosgomes/GestAuto-sub000/internal/handlers"
	"github.com/tassosgomes/GestAuto-sub000/internal/metrics"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/queue"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
	"github.com/tassosgomes/GestAuto-sub000/internal/services"
	"github.com/tassosgomes/GestAuto-sub000/internal/worker"
)

var (
	salesPerson  = uuid.MustParse("3b0c5a52-8d7e-4f61-9a3c-2e5d1f4b6a70")
	salesManager = uuid.MustParse("c4e1a7d9-0b2f-4c86-8e5a-7d3f9b1c2a64")
)

type role struct {
	id   uuid.UUID
	name string
}

var (
	seller  = &role{id: salesPerson, name: handlers.RoleSalesPerson}
	manager = &role{id: salesManager, name: handlers.RoleManager}
)

// stack is the API and the outbox relay running over the in-memory store, as cmd/api wires
// them with STORAGE_DRIVER=memory
type stack struct {
	server   *httptest.Server
	store    *repository.MemoryStore
	outbox   *queue.MemoryQueue
	attempts *repository.MemoryDeliveryAttemptRepository
	relay    *worker.Processor
}

type stackOptions struct {
	publisher   worker.Publisher
	maxAttempts int
	backoff     func(attempt int) time.Duration
}

func newStack(t *testing.T, opts stackOptions) *stack {
	t.Helper()

	outbox := queue.NewMemoryQueue()
	store := repository.NewMemoryStore(repository.WithEventSink(outbox.Push))
	attempts := repository.NewMemoryDeliveryAttemptRepository()
	m := metrics.New(prometheus.NewRegistry())

	svcOpts := []services.Option{services.WithMetrics(m)}
	leads := services.NewLeadService(store, nil, svcOpts...)
	router := handlers.NewRouter(&config.Config{}, handlers.Services{
		Leads:       leads,
		Capture:     services.NewLeadCaptureService(leads, services.NewMapper(salesPerson)),
		Proposals:   services.NewProposalService(store, svcOpts...),
		TestDrives:  services.NewTestDriveService(store, svcOpts...),
		Evaluations: services.NewEvaluationService(store, svcOpts...),
		Dashboard:   services.NewDashboardService(store, time.UTC, nil, svcOpts...),
	}, handlers.RouterOptions{
		HealthChecks: map[string]handlers.HealthCheck{"queue": outbox.HealthCheck, "outbox": store.HealthCheck},
	})

	if opts.maxAttempts == 0 {
		opts.maxAttempts = 5
	}
	if opts.backoff == nil {
		opts.backoff = func(int) time.Duration { return 0 }
	}
	relay := worker.NewProcessor(worker.ProcessorConfig{
		Queue:               outbox,
		DeliveryAttemptRepo: attempts,
		Publisher:           opts.publisher,
		Metrics:             m,
		PollInterval:        10 * time.Millisecond,
		BatchSize:           10,
		MaxAttempts:         opts.maxAttempts,
		Backoff:             opts.backoff,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		outbox.Close()
	})

	return &stack{server: server, store: store, outbox: outbox, attempts: attempts, relay: relay}
}

// call sends a JSON request and decodes a JSON object response
func (s *stack) call(t *testing.T, actor *role, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set(handlers.HeaderActorID, actor.id.String())
		req.Header.Set(handlers.HeaderActorRole, actor.name)
	}

	resp, err := s.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
		t.Fatalf("%s %s: failed to decode response: %v", method, path, err)
	}
	return resp.StatusCode, decoded
}

// mustCall fails the test unless the response has the wanted status
func (s *stack) mustCall(t *testing.T, want int, actor *role, method, path string, body interface{}) map[string]interface{} {
	t.Helper()
	status, decoded := s.call(t, actor, method, path, body)
	if status != want {
		t.Fatalf("%s %s: expected status %d, got %d: %v", method, path, want, status, decoded)
	}
	return decoded
}

// drain runs relay batches until nothing is due
func (s *stack) drain(t *testing.T) {
	t.Helper()
	for i := 0; i < 50; i++ {
		n, err := s.relay.ProcessBatch(context.Background())
		if err != nil {
			t.Fatalf("Relay batch failed: %v", err)
		}
		if n == 0 {
			return
		}
	}
	t.Fatal("Relay did not drain the outbox")
}

// outboxEvents returns the outbox records in enqueue order
func (s *stack) outboxEvents() []models.OutboxEvent {
	return s.outbox.Snapshot()
}

func (s *stack) attemptsFor(t *testing.T, eventID int64) []*models.DeliveryAttempt {
	t.Helper()
	attempts, err := s.attempts.GetDeliveryAttemptsByEventID(context.Background(), eventID)
	if err != nil {
		t.Fatalf("Failed to load delivery attempts: %v", err)
	}
	return attempts
}

// ordersReceiver is a stand-in for the order subsystem's event webhook
type ordersReceiver struct {
	mu        sync.Mutex
	envelopes []client.Envelope
	keys      []string
	responses []int
	server    *httptest.Server
}

// newOrdersReceiver answers with responses in turn, then 201 for everything after
func newOrdersReceiver(t *testing.T, responses ...int) *ordersReceiver {
	t.Helper()
	r := &ordersReceiver{responses: responses}
	r.server = httptest.NewServer(http.HandlerFunc(r.handle))
	t.Cleanup(r.server.Close)
	return r
}

func (r *ordersReceiver) handle(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.keys = append(r.keys, req.Header.Get("Idempotency-Key"))
	status := http.StatusCreated
	if len(r.responses) > 0 {
		status, r.responses = r.responses[0], r.responses[1:]
	}
	if status >= 200 && status < 300 {
		var envelope client.Envelope
		if err := json.NewDecoder(req.Body).Decode(&envelope); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		r.envelopes = append(r.envelopes, envelope)
	}
	w.WriteHeader(status)
	w.Write([]byte(`{"status":"ok"}`))
}

func (r *ordersReceiver) publisher() worker.Publisher {
	return client.NewOrdersWebhookClient(r.server.URL, "orders-token", 2*time.Second)
}

func (r *ordersReceiver) received() ([]client.Envelope, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]client.Envelope(nil), r.envelopes...), append([]string(nil), r.keys...)
}
