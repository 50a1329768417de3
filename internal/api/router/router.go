package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bookline-ai/bookline/internal/http/handlers"
	httpmiddleware "github.com/bookline-ai/bookline/internal/http/middleware"
	"github.com/bookline-ai/bookline/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	Webhook         *handlers.WebhookHandler
	Simulate        *handlers.SimulateHandler
	Availability    *handlers.AvailabilityHandler
	Appointments    *handlers.AppointmentHandler
	Catalog         *handlers.CatalogHandler
	MetricsHandler  http.Handler
	AdminAuthSecret string
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: webhook and health.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.Webhook != nil {
			public.Post("/messaging/twilio/webhook", cfg.Webhook.TwilioWebhook)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Admin/internal surface behind the HMAC JWT.
	r.Group(func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.Simulate != nil {
			admin.Post("/internal/simulate", cfg.Simulate.Simulate)
		}
		if cfg.Availability != nil {
			admin.Post("/api/availability/query", cfg.Availability.Query)
		}
		if cfg.Catalog != nil {
			admin.Get("/api/catalog/layout", cfg.Catalog.Layout)
		}
		if cfg.Appointments != nil {
			admin.Route("/api/appointments", func(r chi.Router) {
				r.Post("/", cfg.Appointments.Create)
				r.Post("/{id}/reschedule", cfg.Appointments.Reschedule)
				r.Post("/{id}/confirm", cfg.Appointments.Confirm)
				r.Post("/{id}/cancel", cfg.Appointments.Cancel)
				r.Post("/{id}/complete", cfg.Appointments.Complete)
				r.Post("/{id}/rating", cfg.Appointments.Rate)
			})
		}
	})

	return r
}
