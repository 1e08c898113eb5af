package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/metrics"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
)

const tracerName = "github.com/tassosgomes/GestAuto-sub000/internal/services"

// Option configures an application service
type Option func(*base)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

// WithMetrics records operation counters and latencies
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) {
		b.metrics = m
	}
}

// WithTracer overrides the OpenTelemetry tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(b *base) {
		b.tracer = tracer
	}
}

// base carries what every application service needs
type base struct {
	uow     repository.UnitOfWork
	now     func() time.Time
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func newBase(uow repository.UnitOfWork, opts []Option) base {
	b := base{
		uow:    uow,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// clock returns the current time in UTC, truncated to what Postgres stores
func (b *base) clock() time.Time {
	return b.now().UTC().Truncate(time.Microsecond)
}

// begin opens a span for one operation. The returned finish records the outcome of *errp.
func (b *base) begin(ctx context.Context, engine, operation string, attrs ...attribute.KeyValue) (context.Context, func(errp *error)) {
	name := engine + "." + operation
	ctx, span := b.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	started := time.Now()

	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		outcome := classify(err)
		switch outcome {
		case metrics.OutcomeError:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.LogError(ctx, "Operation failed", err, "operation", name)
		case metrics.OutcomeRejected:
			span.SetAttributes(attribute.String("rejection", err.Error()))
			logger.Debug(ctx, "Operation rejected", "operation", name, "error", err.Error())
		}
		span.End()

		elapsed := time.Since(started)
		b.metrics.ObserveOperation(engine, operation, outcome, elapsed)
		logger.LogSlowOperation(ctx, name, elapsed)
	}
}

// classify separates caller mistakes and rule violations from infrastructure failures
func classify(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case models.IsValidationError(err), models.IsNotFound(err), models.IsDomainError(err):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

// idAttr is the span attribute for the id of the entity an operation targets
func idAttr(key string, id uuid.UUID) attribute.KeyValue {
	return attribute.String(key, id.String())
}

// logTransition logs a status change when there was one
func logTransition[S ~string](ctx context.Context, entity string, id uuid.UUID, from, to S) {
	if from == to {
		return
	}
	logger.LogStatusTransition(ctx, entity, id, string(from), string(to))
}

// Page is one page of a listing plus the total number of matches
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// MaxPageSize caps listing requests
const MaxPageSize = 100

func clampPaging(limit, offset int) (int, int) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
