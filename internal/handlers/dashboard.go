package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/services"
)

// DashboardHandler serves the sales funnel summary
type DashboardHandler struct {
	dashboards *services.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboards *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// HandleGet handles GET /dashboard?salesPersonId=
func (h *DashboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	salesPersonID, err := queryUUID(r.URL.Query(), "salesPersonId")
	if err != nil {
		writeError(w, ctx, err)
		return
	}

	dashboard, err := h.dashboards.Get(ctx, salesPersonID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, dashboard)
}

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports the state of the service's dependencies
type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler creates a HealthHandler over named checks
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleHealth handles GET /health. Any failing check turns the response into a 503.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.Warn(ctx, "Health check failed", "check", name, "error", err.Error())
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	respondJSON(w, r.Context(), status, resp)
}
