package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tassosgomes/GestAuto-sub000/internal/config"
	"github.com/tassosgomes/GestAuto-sub000/internal/services"
)

// Services bundles the application services the router exposes
type Services struct {
	Leads       *services.LeadService
	Capture     *services.LeadCaptureService
	Proposals   *services.ProposalService
	TestDrives  *services.TestDriveService
	Evaluations *services.EvaluationService
	Dashboard   *services.DashboardService
}

// RouterOptions holds the optional parts of the router
type RouterOptions struct {
	HealthChecks map[string]HealthCheck
	// Metrics is mounted at /metrics when set
	Metrics http.Handler
}

// NewRouter wires every route. Mutating routes require an actor; discount approval requires
// a manager; the lead webhook is guarded by the shared secret instead.
func NewRouter(cfg *config.Config, svc Services, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()
	r.Use(Recover, CorrelationID, ActorIdentity)

	auth := NewAuthMiddleware(cfg)
	health := NewHealthHandler(opts.HealthChecks)
	r.HandleFunc("/health", health.HandleHealth).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}

	webhook := NewWebhookHandler(svc.Capture)
	r.HandleFunc("/webhooks/leads", auth.Authenticate(webhook.HandleLeadWebhook)).Methods(http.MethodPost)

	leads := NewLeadHandler(svc.Leads)
	r.HandleFunc("/leads", RequireActor(leads.HandleCreate)).Methods(http.MethodPost)
	r.HandleFunc("/leads", leads.HandleList).Methods(http.MethodGet)
	r.HandleFunc("/leads/{id}", leads.HandleGet).Methods(http.MethodGet)
	r.HandleFunc("/leads/{id}/status", RequireActor(leads.HandleChangeStatus)).Methods(http.MethodPut)
	r.HandleFunc("/leads/{id}/name", RequireActor(leads.HandleUpdateName)).Methods(http.MethodPut)
	r.HandleFunc("/leads/{id}/email", RequireActor(leads.HandleUpdateEmail)).Methods(http.MethodPut)
	r.HandleFunc("/leads/{id}/phone", RequireActor(leads.HandleUpdatePhone)).Methods(http.MethodPut)
	r.HandleFunc("/leads/{id}/interest", RequireActor(leads.HandleUpdateInterest)).Methods(http.MethodPut)
	r.HandleFunc("/leads/{id}/interactions", RequireActor(leads.HandleRegisterInteraction)).Methods(http.MethodPost)
	r.HandleFunc("/leads/{id}/interactions", leads.HandleListInteractions).Methods(http.MethodGet)
	r.HandleFunc("/leads/{id}/qualification", RequireActor(leads.HandleQualify)).Methods(http.MethodPut)

	proposals := NewProposalHandler(svc.Proposals)
	evaluations := NewEvaluationHandler(svc.Evaluations)
	r.HandleFunc("/proposals", RequireActor(proposals.HandleCreate)).Methods(http.MethodPost)
	r.HandleFunc("/proposals", proposals.HandleList).Methods(http.MethodGet)
	r.HandleFunc("/proposals/{id}", proposals.HandleGet).Methods(http.MethodGet)
	r.HandleFunc("/proposals/{id}/items", RequireActor(proposals.HandleAddItem)).Methods(http.MethodPost)
	r.HandleFunc("/proposals/{id}/items/{itemId}", RequireActor(proposals.HandleRemoveItem)).Methods(http.MethodDelete)
	r.HandleFunc("/proposals/{id}/discount", RequireActor(proposals.HandleApplyDiscount)).Methods(http.MethodPost)
	r.HandleFunc("/proposals/{id}/discount/approve", RequireManager(proposals.HandleApproveDiscount)).Methods(http.MethodPost)
	r.HandleFunc("/proposals/{id}/discount/reject", RequireManager(proposals.HandleRejectDiscount)).Methods(http.MethodPost)
	r.HandleFunc("/proposals/{id}/close", RequireActor(proposals.HandleClose)).Methods(http.MethodPost)
	r.HandleFunc("/proposals/{id}/lost", RequireActor(proposals.HandleMarkLost)).Methods(http.MethodPost)
	r.HandleFunc("/proposals/{id}/vehicle", RequireActor(proposals.HandleUpdateVehicle)).Methods(http.MethodPut)
	r.HandleFunc("/proposals/{id}/payment", RequireActor(proposals.HandleUpdatePayment)).Methods(http.MethodPut)
	r.HandleFunc("/proposals/{id}/evaluations", RequireActor(evaluations.HandleRequest)).Methods(http.MethodPost)
	r.HandleFunc("/proposals/{id}/evaluations", evaluations.HandleListByProposal).Methods(http.MethodGet)

	r.HandleFunc("/evaluations/{id}", evaluations.HandleGet).Methods(http.MethodGet)
	r.HandleFunc("/evaluations/{id}/appraisal", RequireActor(evaluations.HandleAppraisal)).Methods(http.MethodPost)
	r.HandleFunc("/evaluations/{id}/response", RequireActor(evaluations.HandleCustomerResponse)).Methods(http.MethodPost)

	testDrives := NewTestDriveHandler(svc.TestDrives)
	r.HandleFunc("/test-drives", RequireActor(testDrives.HandleSchedule)).Methods(http.MethodPost)
	r.HandleFunc("/test-drives", testDrives.HandleList).Methods(http.MethodGet)
	r.HandleFunc("/test-drives/{id}", testDrives.HandleGet).Methods(http.MethodGet)
	r.HandleFunc("/test-drives/{id}/complete", RequireActor(testDrives.HandleComplete)).Methods(http.MethodPost)
	r.HandleFunc("/test-drives/{id}/cancel", RequireActor(testDrives.HandleCancel)).Methods(http.MethodPost)
	r.HandleFunc("/test-drives/{id}/no-show", RequireActor(testDrives.HandleNoShow)).Methods(http.MethodPost)

	dashboard := NewDashboardHandler(svc.Dashboard)
	r.HandleFunc("/dashboard", dashboard.HandleGet).Methods(http.MethodGet)

	return r
}
