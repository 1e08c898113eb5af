package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

func TestLeadRoutes(t *testing.T) {
	h := newAPIHarness(t, nil)
	id := h.createLead(t)

	rr := h.do(t, nil, http.MethodGet, "/leads/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	lead := decodeBody(t, rr)
	assert.Equal(t, "Maria Souza", lead["name"])
	assert.Equal(t, "11987654321", lead["phone"])
	assert.Equal(t, seller.String(), lead["salesPersonId"], "owner defaults to the acting sales person")

	rr = h.do(t, asSeller, http.MethodPut, "/leads/"+id+"/qualification", map[string]interface{}{
		"paymentMethod":             "Cash",
		"expectedPurchaseTimeframe": "Immediate",
		"interestedInTestDrive":     true,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Gold", decodeBody(t, rr)["score"])

	rr = h.do(t, asSeller, http.MethodPut, "/leads/"+id+"/status", map[string]string{"status": "Contacted"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, string(models.LeadStatusInContact), decodeBody(t, rr)["status"])

	rr = h.do(t, asSeller, http.MethodPut, "/leads/"+id+"/email", map[string]string{"value": "MARIA.S@Example.com "})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "maria.s@example.com", decodeBody(t, rr)["email"])

	rr = h.do(t, asSeller, http.MethodPost, "/leads/"+id+"/interactions", map[string]string{
		"type":        "Call",
		"description": "Cliente pediu retorno amanhã",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = h.do(t, nil, http.MethodGet, "/leads/"+id+"/interactions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Cliente pediu retorno amanhã")

	rr = h.do(t, nil, http.MethodGet, "/leads?status=InContact&score=gold&order=hottest", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.EqualValues(t, 1, decodeBody(t, rr)["total"])

	rr = h.do(t, nil, http.MethodGet, "/leads?status=New", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 0, decodeBody(t, rr)["total"])
}

func TestErrorMapping(t *testing.T) {
	h := newAPIHarness(t, nil)
	id := h.createLead(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"malformed json", http.MethodPost, "/leads", `{"name":`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"bad email", http.MethodPut, "/leads/" + id + "/email", map[string]string{"value": "nope"}, http.StatusBadRequest, "INVALID_FORMAT"},
		{"unknown status", http.MethodPut, "/leads/" + id + "/status", map[string]string{"status": "Sleeping"}, http.StatusBadRequest, "UNRECOGNIZED_VALUE"},
		{"bad path id", http.MethodGet, "/leads/not-a-uuid", nil, http.StatusBadRequest, "INVALID_FORMAT"},
		{"missing lead", http.MethodGet, "/leads/" + uuid.NewString(), nil, http.StatusNotFound, "NOT_FOUND"},
		{"bad filter", http.MethodGet, "/leads?createdFrom=yesterday", nil, http.StatusBadRequest, "INVALID_FORMAT"},
		{"empty interaction", http.MethodPost, "/leads/" + id + "/interactions", map[string]string{"type": "Call"}, http.StatusBadRequest, "MISSING_REQUIRED_FIELD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := h.do(t, asSeller, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			body := decodeBody(t, rr)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, rr.Header().Get(HeaderCorrelationID))
		})
	}
}

func TestProposalDiscountApprovalFlow(t *testing.T) {
	h := newAPIHarness(t, nil)
	proposalID := h.createProposal(t, h.createLead(t))
	base := "/proposals/" + proposalID

	rr := h.do(t, asSeller, http.MethodPost, base+"/discount", map[string]string{"amount": "7000.00", "reason": "Cliente fiel"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, string(models.ProposalStatusAwaitingDiscountApproval), decodeBody(t, rr)["status"])

	rr = h.do(t, asSeller, http.MethodPost, base+"/close", nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, string(models.DomainCodeDiscountPendingApproval), decodeBody(t, rr)["code"])

	rr = h.do(t, asSeller, http.MethodPost, base+"/discount/approve", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(t, nil, http.MethodPost, base+"/discount/approve", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = h.do(t, asManager, http.MethodPost, base+"/discount/approve", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	approved := decodeBody(t, rr)
	assert.Equal(t, string(models.ProposalStatusApproved), approved["status"])
	assert.Equal(t, 93000.0, approved["total"])

	rr = h.do(t, asSeller, http.MethodPost, base+"/close", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, string(models.ProposalStatusClosed), decodeBody(t, rr)["status"])

	rr = h.do(t, asSeller, http.MethodPost, base+"/items", map[string]string{"description": "Tapetes", "price": "300.00"})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, string(models.DomainCodeProposalLocked), decodeBody(t, rr)["code"])

	var sawSale bool
	for _, event := range h.store.RecordedEvents() {
		if event.EventType() == models.EventTypeSaleClosed {
			sawSale = true
		}
	}
	assert.True(t, sawSale, "closing records SaleClosed")
}

func TestProposalItemsAndTerms(t *testing.T) {
	h := newAPIHarness(t, nil)
	leadID := h.createLead(t)
	proposalID := h.createProposal(t, leadID)
	base := "/proposals/" + proposalID

	rr := h.do(t, asSeller, http.MethodPost, base+"/items", map[string]string{"description": "Película", "price": "900.00"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	itemID := decodeBody(t, rr)["id"].(string)

	rr = h.do(t, asSeller, http.MethodPut, base+"/payment", map[string]interface{}{"method": "Financing", "downPayment": "30000.00", "installments": 48})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = h.do(t, asSeller, http.MethodPut, base+"/vehicle", map[string]interface{}{
		"vehicle": map[string]interface{}{"model": "Corolla Cross", "year": 2026},
		"price":   "120000.00",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 120900.0, decodeBody(t, rr)["total"])

	rr = h.do(t, asSeller, http.MethodDelete, base+"/items/"+itemID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 120000.0, decodeBody(t, rr)["total"])

	rr = h.do(t, nil, http.MethodGet, "/proposals?leadId="+leadID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, decodeBody(t, rr)["total"])

	rr = h.do(t, asSeller, http.MethodPost, base+"/lost", map[string]string{"reason": ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(t, asSeller, http.MethodPost, base+"/lost", map[string]string{"reason": "Comprou na concorrência"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, string(models.ProposalStatusLost), decodeBody(t, rr)["status"])
}

func TestTradeInEvaluationRoutes(t *testing.T) {
	h := newAPIHarness(t, nil)
	proposalID := h.createProposal(t, h.createLead(t))

	rr := h.do(t, asSeller, http.MethodPost, "/proposals/"+proposalID+"/evaluations", map[string]interface{}{
		"brand":     "Honda",
		"model":     "Fit",
		"year":      2019,
		"mileage":   52000,
		"plate":     "ABC1D23",
		"condition": "Good",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	evaluationID := decodeBody(t, rr)["id"].(string)

	rr = h.do(t, asSeller, http.MethodPost, "/evaluations/"+evaluationID+"/response", map[string]interface{}{"accepted": true})
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	assert.Equal(t, string(models.DomainCodeEvaluationNotCompleted), decodeBody(t, rr)["code"])

	rr = h.do(t, asManager, http.MethodPost, "/evaluations/"+evaluationID+"/appraisal", map[string]string{"value": "45000.00"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = h.do(t, asSeller, http.MethodPost, "/evaluations/"+evaluationID+"/response", map[string]interface{}{"accepted": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = h.do(t, nil, http.MethodGet, "/proposals/"+proposalID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	proposal := decodeBody(t, rr)
	assert.Equal(t, 45000.0, proposal["tradeInValue"])
	assert.Equal(t, 55000.0, proposal["total"])

	rr = h.do(t, nil, http.MethodGet, "/proposals/"+proposalID+"/evaluations", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), evaluationID)

	rr = h.do(t, nil, http.MethodGet, "/evaluations/"+evaluationID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestTestDriveRoutes(t *testing.T) {
	h := newAPIHarness(t, nil)
	leadID := h.createLead(t)
	vehicleID := uuid.NewString()
	at := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Hour)

	rr := h.do(t, asSeller, http.MethodPost, "/test-drives", map[string]interface{}{
		"leadId":      leadID,
		"vehicleId":   vehicleID,
		"scheduledAt": at,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	testDriveID := decodeBody(t, rr)["id"].(string)

	rr = h.do(t, asSeller, http.MethodPost, "/test-drives", map[string]interface{}{
		"leadId":      leadID,
		"vehicleId":   vehicleID,
		"scheduledAt": at.Add(30 * time.Minute),
	})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, string(models.DomainCodeVehicleUnavailable), decodeBody(t, rr)["code"])

	rr = h.do(t, asSeller, http.MethodPost, "/test-drives/"+testDriveID+"/complete", map[string]interface{}{
		"checklist": map[string]interface{}{"initialMileage": 100, "finalMileage": 112, "fuelLevel": "Full"},
	})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, string(models.DomainCodeTestDriveNotDue), decodeBody(t, rr)["code"])

	rr = h.do(t, nil, http.MethodGet, "/test-drives?vehicleId="+vehicleID+"&from="+at.Add(-time.Hour).Format(time.RFC3339), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.EqualValues(t, 1, decodeBody(t, rr)["total"])

	rr = h.do(t, asSeller, http.MethodPost, "/test-drives/"+testDriveID+"/cancel", map[string]string{"reason": "Cliente viajou"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Cancelled", decodeBody(t, rr)["status"])

	rr = h.do(t, asSeller, http.MethodPost, "/test-drives/"+testDriveID+"/no-show", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = h.do(t, nil, http.MethodGet, "/test-drives/"+testDriveID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestDashboardRoute(t *testing.T) {
	h := newAPIHarness(t, nil)
	h.createLead(t)

	rr := h.do(t, nil, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.EqualValues(t, 1, body["newLeads"])
	assert.NotNil(t, body["hotLeads"])

	rr = h.do(t, nil, http.MethodGet, "/dashboard?salesPersonId="+manager.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 0, decodeBody(t, rr)["newLeads"])

	rr = h.do(t, nil, http.MethodGet, "/dashboard?salesPersonId=someone", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthRoute(t *testing.T) {
	h := newAPIHarness(t, nil)

	rr := h.do(t, nil, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody(t, rr)["status"])
}

func TestMutatingRoutesRequireActor(t *testing.T) {
	h := newAPIHarness(t, nil)

	rr := h.do(t, nil, http.MethodPost, "/leads", map[string]string{"name": "Sem Dono"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = h.do(t, nil, http.MethodGet, "/leads", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
