package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys used in logging
type ContextKey string

const (
	// CorrelationIDKey is the context key for correlation_id
	CorrelationIDKey ContextKey = "correlation_id"
	// ActorIDKey is the context key for the acting user's id
	ActorIDKey ContextKey = "actor_id"
	// EntityIDKey is the context key for the id of the entity being processed
	EntityIDKey ContextKey = "entity_id"
)

// SlowOperationThreshold is the duration above which LogSlowOperation warns
const SlowOperationThreshold = time.Second

var defaultLogger = newLogger(os.Stdout, logrus.InfoLevel, "json")

func newLogger(out io.Writer, level logrus.Level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if format == "text" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	return l
}

// Init configures the global structured logger. format is "json" or "text".
func Init(level, format string) error {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	defaultLogger = newLogger(os.Stdout, lvl, format)
	return nil
}

// SetOutput redirects the global logger, keeping its level and formatter
func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

// WithCorrelationID returns a context carrying the correlation id
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// WithActorID returns a context carrying the acting user's id
func WithActorID(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, ActorIDKey, actorID)
}

// WithEntityID returns a context carrying the id of the entity being processed
func WithEntityID(ctx context.Context, entityID uuid.UUID) context.Context {
	return context.WithValue(ctx, EntityIDKey, entityID)
}

// WithContext creates a log entry with the context values (correlation_id, actor_id, entity_id)
func WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(defaultLogger)
	if ctx == nil {
		return entry
	}

	if correlationID, ok := ctx.Value(CorrelationIDKey).(string); ok && correlationID != "" {
		entry = entry.WithField(string(CorrelationIDKey), correlationID)
	}
	if actorID, ok := ctx.Value(ActorIDKey).(uuid.UUID); ok {
		entry = entry.WithField(string(ActorIDKey), actorID.String())
	}
	if entityID, ok := ctx.Value(EntityIDKey).(uuid.UUID); ok {
		entry = entry.WithField(string(EntityIDKey), entityID.String())
	}
	return entry
}

// fields turns alternating key/value arguments into logrus fields
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 >= len(args) {
			f["!BADKEY"] = key
			break
		}
		f[key] = args[i+1]
	}
	return f
}

// Info logs an info message with context
func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).WithFields(fields(args)).Info(msg)
}

// Error logs an error message with context
func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).WithFields(fields(args)).Error(msg)
}

// Warn logs a warning message with context
func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).WithFields(fields(args)).Warn(msg)
}

// Debug logs a debug message with context
func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).WithFields(fields(args)).Debug(msg)
}

// LogStatusTransition logs an entity status transition
func LogStatusTransition(ctx context.Context, entity string, id uuid.UUID, oldStatus, newStatus string) {
	WithContext(ctx).WithFields(logrus.Fields{
		"entity":     entity,
		"id":         id.String(),
		"old_status": oldStatus,
		"new_status": newStatus,
	}).Info("Status transition")
}

// LogSlowOperation logs operations that exceed SlowOperationThreshold
func LogSlowOperation(ctx context.Context, operation string, duration time.Duration) {
	if duration > SlowOperationThreshold {
		WithContext(ctx).WithFields(logrus.Fields{
			"operation":   operation,
			"duration_ms": duration.Milliseconds(),
		}).Warn("Slow operation detected")
	}
}

// LogError logs an error with additional key/value context
func LogError(ctx context.Context, msg string, err error, args ...any) {
	WithContext(ctx).WithFields(fields(args)).WithError(err).Error(msg)
}
