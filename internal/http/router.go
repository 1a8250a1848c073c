package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rental-backend/internal/apperror"
	"rental-backend/internal/handlers"
	"rental-backend/internal/middleware"
	"rental-backend/pkg/utils"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	totpHandler *handlers.TOTPHandler,
	apartmentHandler *handlers.ApartmentHandler,
	unitHandler *handlers.UnitHandler,
	reportHandler *handlers.ReportHandler,
	razorpayHandler *handlers.RazorpayHandler,
	auditHandler *handlers.AuditHandler,
	healthHandler *handlers.HealthHandler,
	eventsHandler http.HandlerFunc,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, apperror.NotFound("Route"), false)
	})

	// Ops endpoints
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Gateway callbacks authenticate by signature, not by token
	r.HandleFunc("/webhooks/razorpay", razorpayHandler.HandleWebhook).Methods("POST")

	// Websocket handshake authenticates with ?token=
	r.HandleFunc("/api/events", eventsHandler).Methods("GET")

	// Public API routes - Authentication
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/login/2fa", authHandler.CompleteLogin).Methods("POST")

	// Protected API routes - Profile and 2FA
	authAPI := r.PathPrefix("/api/auth").Subrouter()
	authAPI.Use(authMiddleware.Authenticate)
	authAPI.HandleFunc("/profile", authHandler.Profile).Methods("GET")
	authAPI.HandleFunc("/profile", authHandler.UpdateProfile).Methods("PUT")
	authAPI.HandleFunc("/change-password", authHandler.ChangePassword).Methods("POST")
	authAPI.HandleFunc("/2fa/setup", totpHandler.Setup).Methods("POST")
	authAPI.HandleFunc("/2fa/enable", totpHandler.Enable).Methods("POST")
	authAPI.HandleFunc("/2fa/disable", totpHandler.Disable).Methods("POST")

	// Protected API routes - Apartments
	apartmentsAPI := r.PathPrefix("/api/apartments").Subrouter()
	apartmentsAPI.Use(authMiddleware.Authenticate)
	apartmentsAPI.HandleFunc("", apartmentHandler.Create).Methods("POST")
	apartmentsAPI.HandleFunc("", apartmentHandler.List).Methods("GET")
	apartmentsAPI.HandleFunc("/{id}", apartmentHandler.Get).Methods("GET")
	apartmentsAPI.HandleFunc("/{id}", apartmentHandler.Update).Methods("PUT")
	apartmentsAPI.HandleFunc("/{id}", apartmentHandler.Delete).Methods("DELETE")
	apartmentsAPI.HandleFunc("/{id}/stats", apartmentHandler.Stats).Methods("GET")

	// Protected API routes - Units, tenancy and manual payments
	unitsAPI := r.PathPrefix("/api/units").Subrouter()
	unitsAPI.Use(authMiddleware.Authenticate)
	unitsAPI.HandleFunc("/rent-logs/{rentLogId}/pay", unitHandler.RecordPayment).Methods("POST")
	unitsAPI.HandleFunc("/{id}", unitHandler.Details).Methods("GET")
	unitsAPI.HandleFunc("/{id}/tenant", unitHandler.AssignTenant).Methods("POST")
	unitsAPI.HandleFunc("/{id}/move-out", unitHandler.MoveOut).Methods("POST")
	unitsAPI.HandleFunc("/{id}/rent", unitHandler.UpdateRent).Methods("PUT")
	unitsAPI.HandleFunc("/{id}/payments", unitHandler.PaymentHistory).Methods("GET")

	// Protected API routes - Payments
	paymentsAPI := r.PathPrefix("/api/payments").Subrouter()
	paymentsAPI.Use(authMiddleware.Authenticate)
	paymentsAPI.HandleFunc("/online/verify", razorpayHandler.VerifyCheckout).Methods("POST")
	paymentsAPI.HandleFunc("/{id}/receipt", reportHandler.Receipt).Methods("GET")

	rentLogsAPI := r.PathPrefix("/api/rent-logs").Subrouter()
	rentLogsAPI.Use(authMiddleware.Authenticate)
	rentLogsAPI.HandleFunc("/{id}/online-order", razorpayHandler.CreateOrder).Methods("POST")

	// Protected API routes - Reports
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.Use(authMiddleware.Authenticate)
	reportsAPI.HandleFunc("/monthly", reportHandler.Monthly).Methods("GET")
	reportsAPI.HandleFunc("/occupancy", reportHandler.Occupancy).Methods("GET")
	reportsAPI.HandleFunc("/overdue", reportHandler.Overdue).Methods("GET")
	reportsAPI.HandleFunc("/export", reportHandler.Export).Methods("GET")
	reportsAPI.HandleFunc("/export/archive", reportHandler.Archive).Methods("POST")

	// Protected API routes - Audit trail
	auditAPI := r.PathPrefix("/api/audit-logs").Subrouter()
	auditAPI.Use(authMiddleware.Authenticate)
	auditAPI.HandleFunc("", auditHandler.List).Methods("GET")

	return r
}
