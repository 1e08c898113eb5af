package handlers

import (
	"net/http"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
	"github.com/tassosgomes/GestAuto-sub000/internal/services"
)

// ProposalHandler exposes pricing, discounts and closing of proposals
type ProposalHandler struct {
	proposals *services.ProposalService
}

// NewProposalHandler creates a new ProposalHandler
func NewProposalHandler(proposals *services.ProposalService) *ProposalHandler {
	return &ProposalHandler{proposals: proposals}
}

type itemRequest struct {
	Description string       `json:"description"`
	Price       models.Money `json:"price"`
}

type discountRequest struct {
	Amount models.Money `json:"amount"`
	Reason string       `json:"reason"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type vehicleRequest struct {
	Vehicle models.VehicleTerms `json:"vehicle"`
	Price   models.Money        `json:"price"`
}

// HandleCreate handles POST /proposals
func (h *ProposalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in services.CreateProposalInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, ctx, err)
		return
	}
	proposal, err := h.proposals.Create(ctx, in)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusCreated, proposal)
}

// HandleGet handles GET /proposals/{id}
func (h *ProposalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	proposal, err := h.proposals.Get(ctx, id)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, proposal)
}

// HandleList handles GET /proposals?status=&leadId=&salesPersonId=&limit=&offset=
func (h *ProposalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	var filter repository.ProposalFilter
	var err error

	if filter.Statuses, err = parseList(queryList(q, "status"), models.ParseProposalStatus); err == nil {
		if filter.LeadID, err = queryUUID(q, "leadId"); err == nil {
			if filter.SalesPersonID, err = queryUUID(q, "salesPersonId"); err == nil {
				filter.Limit, filter.Offset, err = paging(q)
			}
		}
	}
	if err != nil {
		writeError(w, ctx, err)
		return
	}

	page, err := h.proposals.List(ctx, filter)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, page)
}

// HandleAddItem handles POST /proposals/{id}/items
func (h *ProposalHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ctx, err)
		return
	}
	item, err := h.proposals.AddItem(ctx, id, req.Description, req.Price)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusCreated, item)
}

// HandleRemoveItem handles DELETE /proposals/{id}/items/{itemId}
func (h *ProposalHandler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	itemID, err := pathUUID(r, "itemId")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	proposal, err := h.proposals.RemoveItem(ctx, id, itemID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, proposal)
}

// HandleApplyDiscount handles POST /proposals/{id}/discount
func (h *ProposalHandler) HandleApplyDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFrom(r)
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var req discountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ctx, err)
		return
	}
	proposal, err := h.proposals.ApplyDiscount(ctx, id, req.Amount, req.Reason, actor.ID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, proposal)
}

// HandleApproveDiscount handles POST /proposals/{id}/discount/approve. Managers only.
func (h *ProposalHandler) HandleApproveDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFrom(r)
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	proposal, err := h.proposals.ApproveDiscount(ctx, id, actor.ID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, proposal)
}

// HandleRejectDiscount handles POST /proposals/{id}/discount/reject. Managers only.
func (h *ProposalHandler) HandleRejectDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFrom(r)
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	proposal, err := h.proposals.RejectDiscount(ctx, id, actor.ID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, proposal)
}

// HandleClose handles POST /proposals/{id}/close
func (h *ProposalHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFrom(r)
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	proposal, err := h.proposals.Close(ctx, id, actor.ID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, proposal)
}

// HandleMarkLost handles POST /proposals/{id}/lost
func (h *ProposalHandler) HandleMarkLost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFrom(r)
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ctx, err)
		return
	}
	proposal, err := h.proposals.MarkLost(ctx, id, req.Reason, actor.ID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, proposal)
}

// HandleUpdateVehicle handles PUT /proposals/{id}/vehicle
func (h *ProposalHandler) HandleUpdateVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFrom(r)
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var req vehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ctx, err)
		return
	}
	proposal, err := h.proposals.UpdateVehicleInfo(ctx, id, req.Vehicle, req.Price, actor.ID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, proposal)
}

// HandleUpdatePayment handles PUT /proposals/{id}/payment
func (h *ProposalHandler) HandleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var payment models.PaymentTerms
	if err := decodeJSON(r, &payment); err != nil {
		writeError(w, ctx, err)
		return
	}
	proposal, err := h.proposals.UpdatePaymentInfo(ctx, id, payment)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, proposal)
}
