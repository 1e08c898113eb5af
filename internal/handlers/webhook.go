package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/services"
)

// WebhookHandler handles website form submissions
type WebhookHandler struct {
	capture *services.LeadCaptureService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(capture *services.LeadCaptureService) *WebhookHandler {
	return &WebhookHandler{
		capture: capture,
	}
}

// WebhookResponse represents the response returned to webhook callers
type WebhookResponse struct {
	LeadID            uuid.UUID `json:"lead_id"`
	Status            string    `json:"status"`
	Score             string    `json:"score,omitempty"`
	OmittedAttributes []string  `json:"omitted_attributes,omitempty"`
	CorrelationID     string    `json:"correlation_id"`
}

// HandleLeadWebhook handles POST /webhooks/leads
func (h *WebhookHandler) HandleLeadWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := r.Context()

	logger.Info(ctx, "Received webhook request",
		"remote_addr", r.RemoteAddr,
		"method", r.Method,
	)

	if r.Method != http.MethodPost {
		respondError(w, ctx, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logger.LogError(ctx, "Failed to read request body", err)
		respondError(w, ctx, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var payload services.FormPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		logger.Warn(ctx, "Malformed JSON payload")
		respondError(w, ctx, http.StatusBadRequest, "malformed JSON payload")
		return
	}

	result, err := h.capture.Capture(ctx, payload)
	if err != nil {
		writeError(w, ctx, err)
		return
	}

	ctx = logger.WithEntityID(ctx, result.Lead.ID)
	logger.Info(ctx, "Captured lead", "status", string(result.Lead.Status), "source", string(result.Lead.Source))
	logger.LogSlowOperation(ctx, "webhook_request", time.Since(startTime))

	respondJSON(w, ctx, http.StatusCreated, WebhookResponse{
		LeadID:            result.Lead.ID,
		Status:            string(result.Lead.Status),
		Score:             string(result.Lead.Score()),
		OmittedAttributes: result.OmittedAttributes,
		CorrelationID:     correlationID(ctx),
	})
}
