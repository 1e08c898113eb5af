package handlers

import (
	"net/http"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/services"
)

// EvaluationHandler exposes trade-in evaluations
type EvaluationHandler struct {
	evaluations *services.EvaluationService
}

// NewEvaluationHandler creates a new EvaluationHandler
func NewEvaluationHandler(evaluations *services.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations}
}

type appraisalRequest struct {
	Value models.Money `json:"value"`
}

type responseRequest struct {
	Accepted        bool   `json:"accepted"`
	RejectionReason string `json:"rejectionReason"`
}

// HandleRequest handles POST /proposals/{id}/evaluations
func (h *EvaluationHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFrom(r)
	proposalID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var vehicle models.UsedVehicle
	if err := decodeJSON(r, &vehicle); err != nil {
		writeError(w, ctx, err)
		return
	}
	evaluation, err := h.evaluations.Request(ctx, proposalID, vehicle, actor.ID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusCreated, evaluation)
}

// HandleListByProposal handles GET /proposals/{id}/evaluations
func (h *EvaluationHandler) HandleListByProposal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	proposalID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	evaluations, err := h.evaluations.ListByProposal(ctx, proposalID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	if evaluations == nil {
		evaluations = []*models.Evaluation{}
	}
	respondJSON(w, ctx, http.StatusOK, evaluations)
}

// HandleGet handles GET /evaluations/{id}
func (h *EvaluationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	evaluation, err := h.evaluations.Get(ctx, id)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, evaluation)
}

// HandleAppraisal handles POST /evaluations/{id}/appraisal, the appraisal team's callback
func (h *EvaluationHandler) HandleAppraisal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFrom(r)
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var req appraisalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ctx, err)
		return
	}
	evaluation, err := h.evaluations.RegisterAppraisal(ctx, id, req.Value, actor.ID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, evaluation)
}

// HandleCustomerResponse handles POST /evaluations/{id}/response
func (h *EvaluationHandler) HandleCustomerResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFrom(r)
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var req responseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ctx, err)
		return
	}
	evaluation, err := h.evaluations.RegisterCustomerResponse(ctx, id, req.Accepted, req.RejectionReason, actor.ID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, evaluation)
}
