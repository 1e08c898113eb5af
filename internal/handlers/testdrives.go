package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
	"github.com/tassosgomes/GestAuto-sub000/internal/services"
)

// TestDriveHandler exposes vehicle bookings and their outcomes
type TestDriveHandler struct {
	testDrives *services.TestDriveService
}

// NewTestDriveHandler creates a new TestDriveHandler
func NewTestDriveHandler(testDrives *services.TestDriveService) *TestDriveHandler {
	return &TestDriveHandler{testDrives: testDrives}
}

type completeRequest struct {
	Checklist models.Checklist `json:"checklist"`
	Feedback  string           `json:"feedback"`
}

// HandleSchedule handles POST /test-drives
func (h *TestDriveHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in services.ScheduleTestDriveInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, ctx, err)
		return
	}
	if actor, ok := actorFrom(r); ok && in.SalesPersonID == uuid.Nil {
		in.SalesPersonID = actor.ID
	}
	testDrive, err := h.testDrives.Schedule(ctx, in)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusCreated, testDrive)
}

// HandleGet handles GET /test-drives/{id}
func (h *TestDriveHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	testDrive, err := h.testDrives.Get(ctx, id)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, testDrive)
}

// HandleList handles GET /test-drives?status=&leadId=&vehicleId=&salesPersonId=&from=&to=&limit=&offset=
func (h *TestDriveHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := testDriveFilterFromQuery(r)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	page, err := h.testDrives.List(ctx, filter)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, page)
}

func testDriveFilterFromQuery(r *http.Request) (repository.TestDriveFilter, error) {
	q := r.URL.Query()
	var filter repository.TestDriveFilter
	var err error

	if filter.Statuses, err = parseList(queryList(q, "status"), models.ParseTestDriveStatus); err != nil {
		return filter, err
	}
	if filter.LeadID, err = queryUUID(q, "leadId"); err != nil {
		return filter, err
	}
	if filter.VehicleID, err = queryUUID(q, "vehicleId"); err != nil {
		return filter, err
	}
	if filter.SalesPersonID, err = queryUUID(q, "salesPersonId"); err != nil {
		return filter, err
	}
	if filter.ScheduledFrom, err = queryTime(q, "from"); err != nil {
		return filter, err
	}
	if filter.ScheduledTo, err = queryTime(q, "to"); err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset, err = paging(q)
	return filter, err
}

// HandleComplete handles POST /test-drives/{id}/complete
func (h *TestDriveHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFrom(r)
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, ctx, err)
		return
	}
	testDrive, err := h.testDrives.Complete(ctx, id, req.Checklist, req.Feedback, actor.ID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, testDrive)
}

// HandleCancel handles POST /test-drives/{id}/cancel
func (h *TestDriveHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
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
	testDrive, err := h.testDrives.Cancel(ctx, id, req.Reason, actor.ID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, testDrive)
}

// HandleNoShow handles POST /test-drives/{id}/no-show
func (h *TestDriveHandler) HandleNoShow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFrom(r)
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	testDrive, err := h.testDrives.MarkNoShow(ctx, id, actor.ID)
	if err != nil {
		writeError(w, ctx, err)
		return
	}
	respondJSON(w, ctx, http.StatusOK, testDrive)
}
