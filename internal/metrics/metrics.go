package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gestauto_sales"

// Outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the Prometheus collectors of the sales backend
type Metrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	eventsPublished   *prometheus.CounterVec
	dashboardCache    *prometheus.CounterVec
	outboxBacklog     prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg skips registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Application operations by engine, operation and outcome.",
		}, []string{"engine", "operation", "outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of application operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"engine", "operation"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Outbox delivery attempts by event type, publisher and outcome.",
		}, []string{"event_type", "publisher", "outcome"}),
		dashboardCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_cache_requests_total",
			Help:      "Dashboard snapshot cache lookups by result.",
		}, []string{"result"}),
		outboxBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_batch_size",
			Help:      "Events claimed by the relay in its last polling cycle.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.operationDuration, m.eventsPublished, m.dashboardCache, m.outboxBacklog)
	}
	return m
}

// ObserveOperation records the outcome and latency of one application operation
func (m *Metrics) ObserveOperation(engine, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(engine, operation, outcome).Inc()
	m.operationDuration.WithLabelValues(engine, operation).Observe(elapsed.Seconds())
}

// ObservePublish records one outbox delivery attempt
func (m *Metrics) ObservePublish(eventType, publisher string, ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeError
	}
	m.eventsPublished.WithLabelValues(eventType, publisher, outcome).Inc()
}

// ObserveCache records a dashboard cache hit or miss
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.dashboardCache.WithLabelValues(result).Inc()
}

// SetBatchSize records how many events the relay claimed in its last cycle
func (m *Metrics) SetBatchSize(n int) {
	if m == nil {
		return
	}
	m.outboxBacklog.Set(float64(n))
}
