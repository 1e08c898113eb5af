package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/config"
	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
)

// Actor roles
const (
	RoleSalesPerson = "salesperson"
	RoleManager     = "manager"
)

// Actor headers
const (
	HeaderActorID       = "X-Actor-ID"
	HeaderActorRole     = "X-Actor-Role"
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderSharedSecret  = "X-Shared-Secret"
)

type actorKey struct{}

// Actor is the pre-authenticated caller of a request
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsManager reports whether the actor may approve discounts
func (a Actor) IsManager() bool {
	return a.Role == RoleManager
}

func contextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(r *http.Request) (Actor, bool) {
	actor, ok := r.Context().Value(actorKey{}).(Actor)
	return actor, ok
}

// CorrelationID reuses the caller's X-Correlation-ID or assigns a new one, and logs the request
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		id := r.Header.Get(HeaderCorrelationID)
		if id == "" {
			id = uuid.New().String()
		}
		ctx := logger.WithCorrelationID(r.Context(), id)
		w.Header().Set(HeaderCorrelationID, id)

		next.ServeHTTP(w, r.WithContext(ctx))

		logger.Debug(ctx, "Handled request", "method", r.Method, "path", r.URL.Path)
		logger.LogSlowOperation(ctx, r.Method+" "+r.URL.Path, time.Since(startTime))
	})
}

// ActorIdentity reads X-Actor-ID and X-Actor-Role when present. Identity is asserted by the
// gateway in front of this service, so nothing is verified here.
func ActorIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderActorID))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			respondError(w, r.Context(), http.StatusBadRequest, "invalid "+HeaderActorID+" header")
			return
		}
		role := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole)))
		if role == "" {
			role = RoleSalesPerson
		}
		if role != RoleSalesPerson && role != RoleManager {
			respondError(w, r.Context(), http.StatusBadRequest, "invalid "+HeaderActorRole+" header")
			return
		}

		ctx := logger.WithActorID(r.Context(), id)
		ctx = contextWithActor(ctx, Actor{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActor rejects requests without an actor identity
func RequireActor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorFrom(r); !ok {
			respondError(w, r.Context(), http.StatusUnauthorized, "missing "+HeaderActorID+" header")
			return
		}
		next(w, r)
	}
}

// RequireManager rejects requests whose actor is not a manager
func RequireManager(next http.HandlerFunc) http.HandlerFunc {
	return RequireActor(func(w http.ResponseWriter, r *http.Request) {
		actor, _ := actorFrom(r)
		if !actor.IsManager() {
			logger.Warn(r.Context(), "Manager role required", "role", actor.Role, "path", r.URL.Path)
			respondError(w, r.Context(), http.StatusForbidden, "manager role required")
			return
		}
		next(w, r)
	})
}

// AuthMiddleware provides authentication middleware for webhook endpoints
type AuthMiddleware struct {
	config *config.Config
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{
		config: cfg,
	}
}

// Authenticate validates the shared secret header if authentication is enabled
func (m *AuthMiddleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.config.Auth.Enabled {
			next(w, r)
			return
		}

		providedSecret := r.Header.Get(HeaderSharedSecret)

		if providedSecret == "" {
			logger.Warn(r.Context(), "Authentication failed: missing shared secret header")
			respondError(w, r.Context(), http.StatusUnauthorized, "missing authentication header")
			return
		}

		if subtle.ConstantTimeCompare([]byte(providedSecret), []byte(m.config.Auth.SharedSecret)) != 1 {
			logger.Warn(r.Context(), "Authentication failed: invalid shared secret")
			respondError(w, r.Context(), http.StatusUnauthorized, "invalid authentication credentials")
			return
		}

		next(w, r)
	}
}

// Recover wraps a handler with panic recovery
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(r.Context(), "Panic recovered", "panic", rec, "path", r.URL.Path)
				respondError(w, r.Context(), http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
