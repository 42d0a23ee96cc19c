// Package router assembles the portal's HTTP surface on chi: public
// auth and navigation endpoints, then the session-gated portal routes.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/http/handlers"
	httpmiddleware "github.com/vaishnavimodi30/healthsphere-portal/internal/http/middleware"
	"github.com/vaishnavimodi30/healthsphere-portal/internal/session"
	"github.com/vaishnavimodi30/healthsphere-portal/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	SessionStore session.Store

	AuthHandler         *handlers.AuthHandler
	RoutesHandler       *handlers.RoutesHandler
	DirectoryHandler    *handlers.DirectoryHandler
	BookingHandler      *handlers.BookingHandler
	AppointmentsHandler *handlers.AppointmentsHandler
	RecordsHandler      *handlers.RecordsHandler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a chi router with all portal routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: health, metrics, login, and the route resolver.
	// The resolver sees the session when one is presented but answers
	// logged-out callers too.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Post("/portal/auth/login", cfg.AuthHandler.Login)
		public.With(httpmiddleware.OptionalSession(cfg.SessionStore)).
			Get("/portal/routes/resolve", cfg.RoutesHandler.Resolve)
	})

	// Everything below requires a live session.
	r.Group(func(authed chi.Router) {
		authed.Use(httpmiddleware.SessionAuth(cfg.SessionStore, cfg.Logger))

		authed.Get("/portal/auth/me", cfg.AuthHandler.Me)
		authed.Post("/portal/auth/logout", cfg.AuthHandler.Logout)

		authed.With(httpmiddleware.RequireRoles(session.RolePatient)).
			Get("/portal/doctors", cfg.DirectoryHandler.List)

		authed.Route("/portal/booking", func(booking chi.Router) {
			booking.Use(httpmiddleware.RequireRoles(session.RolePatient))
			booking.Get("/", cfg.BookingHandler.State)
			booking.Post("/doctor", cfg.BookingHandler.SelectDoctor)
			booking.Post("/date", cfg.BookingHandler.SelectDate)
			booking.Post("/slot", cfg.BookingHandler.SelectSlot)
			booking.Post("/slots/refresh", cfg.BookingHandler.RefreshSlots)
			booking.Post("/reason", cfg.BookingHandler.SetReason)
			booking.Post("/submit", cfg.BookingHandler.Submit)
			booking.Post("/reset", cfg.BookingHandler.Reset)
		})

		authed.With(httpmiddleware.RequireRoles(session.RolePatient, session.RoleDoctor)).
			Get("/portal/appointments", cfg.AppointmentsHandler.List)

		authed.With(httpmiddleware.RequireRoles(session.RolePatient)).
			Get("/portal/records", cfg.RecordsHandler.List)
	})

	return r
}
