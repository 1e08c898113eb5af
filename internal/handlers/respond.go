package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	Field         string `json:"field,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func correlationID(ctx context.Context) string {
	id, _ := ctx.Value(logger.CorrelationIDKey).(string)
	return id
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, ctx context.Context, statusCode int, data interface{}) {
	if id := correlationID(ctx); id != "" {
		w.Header().Set("X-Correlation-ID", id)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.LogError(ctx, "Failed to encode response", err)
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, ctx context.Context, statusCode int, message string) {
	respondJSON(w, ctx, statusCode, ErrorResponse{
		Error:         message,
		CorrelationID: correlationID(ctx),
	})
}

// writeError maps a service error onto an HTTP status:
// validation 400, not found 404, business rule 409, anything else 500
func writeError(w http.ResponseWriter, ctx context.Context, err error) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		domainErr     *models.DomainError
	)

	resp := ErrorResponse{Error: err.Error(), CorrelationID: correlationID(ctx)}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		resp.Code = validationErr.Reason.String()
		resp.Field = validationErr.Field
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
		resp.Code = "NOT_FOUND"
	case errors.As(err, &domainErr):
		status = http.StatusConflict
		resp.Code = string(domainErr.Code)
		resp.Error = domainErr.Message
	default:
		logger.LogError(ctx, "Request failed", err)
		resp.Error = "internal server error"
	}

	respondJSON(w, ctx, status, resp)
}

// decodeJSON reads a JSON body into dst. Decoding failures come back as validation errors.
func decodeJSON(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return models.NewValidationError("body", models.ValidationReasonInvalidFormat, "failed to read request body")
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, dst); err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			return validationErr
		}
		return models.NewValidationError("body", models.ValidationReasonInvalidFormat, "malformed JSON payload")
	}
	return nil
}
