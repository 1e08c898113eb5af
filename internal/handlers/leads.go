package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
	"github.com/tassosgomes/GestAuto-sub000/internal/services"
)

// LeadHandler exposes the lead lifecycle
type LeadHandler struct {
	leads *services.LeadService
}

// NewLeadHandler creates a new LeadHandler
func NewLeadHandler(leads *services.LeadService) *LeadHandler {
	return &LeadHandler{leads: leads}
}

type textRequest struct {
	Value string `json:"value"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type interactionRequest struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// HandleCreate handles POST /leads. The owner defaults to the acting sales person.
func (h *LeadHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in services.CreateLeadInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, ctx, err)
		return
	}
	if actor, ok := actorFrom(r); ok && in.SalesPersonID == uuid.Nil {
		in.SalesPersonID = actor.ID
	}

	lead, err := h.leads.Create(ctx, in)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusCreated, lead)
}

// HandleGet handles GET /leads/{id}
func (h *LeadHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	lead, err := h.leads.Get(ctx, id)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, lead)
}

// HandleList handles GET /leads?status=&score=&salesPersonId=&createdFrom=&createdTo=&order=&limit=&offset=
func (h *LeadHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := leadFilterFromQuery(r)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	page, err := h.leads.List(ctx, filter)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, page)
}

func leadFilterFromQuery(r *http.Request) (repository.LeadFilter, error) {
	q := r.URL.Query()
	var filter repository.LeadFilter
	var err error

	if filter.Statuses, err = parseList(queryList(q, "status"), models.ParseLeadStatus); err != nil {
		return filter, err
	}
	if filter.Scores, err = parseList(queryList(q, "score"), parseScore); err != nil {
		return filter, err
	}
	if filter.SalesPersonID, err = queryUUID(q, "salesPersonId"); err != nil {
		return filter, err
	}
	if filter.CreatedFrom, err = queryTime(q, "createdFrom"); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = queryTime(q, "createdTo"); err != nil {
		return filter, err
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "newest":
		filter.OrderBy = repository.LeadOrderNewest
	case "hottest":
		filter.OrderBy = repository.LeadOrderHottest
	default:
		return filter, models.NewValidationError("order", models.ValidationReasonUnrecognizedValue, q.Get("order"))
	}
	filter.Limit, filter.Offset, err = paging(q)
	return filter, err
}

func parseScore(label string) (models.Score, error) {
	for _, s := range []models.Score{models.ScoreDiamond, models.ScoreGold, models.ScoreSilver, models.ScoreBronze} {
		if strings.EqualFold(label, string(s)) {
			return s, nil
		}
	}
	return models.ScoreUnset, models.NewValidationError("score", models.ValidationReasonUnrecognizedValue, label)
}

// HandleChangeStatus handles PUT /leads/{id}/status
func (h *LeadHandler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ctx, err)
		return
	}
	lead, err := h.leads.ChangeStatus(ctx, id, req.Status)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, lead)
}

// textField builds the PUT handler for a single-value lead field: name, email or phone
func (h *LeadHandler) textField(update func(context.Context, uuid.UUID, string) (*models.Lead, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathUUID(r, "id")
		if err != nil {
			writeError(w, ctx, err)
			return
		}
		var req textRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, ctx, err)
			return
		}
		lead, err := update(ctx, id, req.Value)
		if err != nil {
			writeError(w, ctx, err)
			return
		}
		respondJSON(w, ctx, http.StatusOK, lead)
	}
}

// HandleUpdateName handles PUT /leads/{id}/name
func (h *LeadHandler) HandleUpdateName(w http.ResponseWriter, r *http.Request) {
	h.textField(h.leads.UpdateName)(w, r)
}

// HandleUpdateEmail handles PUT /leads/{id}/email
func (h *LeadHandler) HandleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	h.textField(h.leads.UpdateEmail)(w, r)
}

// HandleUpdatePhone handles PUT /leads/{id}/phone
func (h *LeadHandler) HandleUpdatePhone(w http.ResponseWriter, r *http.Request) {
	h.textField(h.leads.UpdatePhone)(w, r)
}

// HandleUpdateInterest handles PUT /leads/{id}/interest. A JSON null clears the interest.
func (h *LeadHandler) HandleUpdateInterest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var interest *models.Interest
	if err := decodeJSON(r, &interest); err != nil {
		writeError(w, ctx, err)
		return
	}
	lead, err := h.leads.UpdateInterest(ctx, id, interest)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, lead)
}

// HandleRegisterInteraction handles POST /leads/{id}/interactions
func (h *LeadHandler) HandleRegisterInteraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var req interactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ctx, err)
		return
	}
	if req.OccurredAt.IsZero() {
		req.OccurredAt = time.Now()
	}
	interaction, err := h.leads.RegisterInteraction(ctx, id, req.Type, req.Description, req.OccurredAt)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusCreated, interaction)
}

// HandleListInteractions handles GET /leads/{id}/interactions
func (h *LeadHandler) HandleListInteractions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	interactions, err := h.leads.ListInteractions(ctx, id)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	if interactions == nil {
		interactions = []*models.Interaction{}
	}
	respondJSON(w, ctx, http.StatusOK, interactions)
}

// HandleQualify handles PUT /leads/{id}/qualification
func (h *LeadHandler) HandleQualify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var q models.Qualification
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, ctx, err)
		return
	}
	lead, err := h.leads.Qualify(ctx, id, q)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, lead)
}
