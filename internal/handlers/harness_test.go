package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/tassosgomes/GestAuto-sub000/internal/config"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
	"github.com/tassosgomes/GestAuto-sub000/internal/services"
)

var (
	seller  = uuid.MustParse("7c1d9e2f-3a4b-4c5d-8e6f-a1b2c3d4e5f6")
	manager = uuid.MustParse("9f8e7d6c-5b4a-4392-8170-6f5e4d3c2b1a")
)

type apiHarness struct {
	router *mux.Router
	store  *repository.MemoryStore
}

func newAPIHarness(t *testing.T, cfg *config.Config) *apiHarness {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	store := repository.NewMemoryStore()
	leads := services.NewLeadService(store, nil)
	svc := Services{
		Leads:       leads,
		Capture:     services.NewLeadCaptureService(leads, services.NewMapper(seller)),
		Proposals:   services.NewProposalService(store),
		TestDrives:  services.NewTestDriveService(store),
		Evaluations: services.NewEvaluationService(store),
		Dashboard:   services.NewDashboardService(store, time.UTC, nil),
	}
	return &apiHarness{router: NewRouter(cfg, svc, RouterOptions{}), store: store}
}

type actorHeaders struct {
	id   uuid.UUID
	role string
}

var (
	asSeller  = &actorHeaders{id: seller, role: RoleSalesPerson}
	asManager = &actorHeaders{id: manager, role: RoleManager}
)

func (h *apiHarness) do(t *testing.T, actor *actorHeaders, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(encoded)
		}
		reader = bytes.NewReader([]byte(raw))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set(HeaderActorID, actor.id.String())
		req.Header.Set(HeaderActorRole, actor.role)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return out
}

func (h *apiHarness) createLead(t *testing.T) string {
	t.Helper()
	rr := h.do(t, asSeller, http.MethodPost, "/leads", map[string]interface{}{
		"name":   "Maria Souza",
		"email":  "maria@example.com",
		"phone":  "(11) 98765-4321",
		"source": "Instagram",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody(t, rr)["id"].(string)
}

func (h *apiHarness) createProposal(t *testing.T, leadID string) string {
	t.Helper()
	rr := h.do(t, asSeller, http.MethodPost, "/proposals", map[string]interface{}{
		"leadId":       leadID,
		"vehicle":      map[string]interface{}{"model": "Corolla", "trim": "XEi", "year": 2026},
		"vehiclePrice": "100000.00",
		"payment":      map[string]interface{}{"method": "Cash"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody(t, rr)["id"].(string)
}
