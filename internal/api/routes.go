package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rtlmb/member-sync/internal/config"
	"github.com/rtlmb/member-sync/internal/worker"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, cfg config.Config, limiter *worker.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://rtlmb.org", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/newsletter", func(r chi.Router) {
			r.With(rateLimit(limiter, "newsletter_subscribe",
				cfg.RateLimit.SubscribeLimit, cfg.RateLimit.SubscribeWindow)).
				Post("/subscribe", h.Subscribe)
			r.Get("/subscribe", h.SubscribeUsage)
		})

		// Admin routes: bearer secret first (auth failures short-circuit
		// before any work), then the per-IP fixed window.
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth(cfg.Admin.Secret))
			r.Use(rateLimit(limiter, "admin_operations",
				cfg.RateLimit.AdminLimit, cfg.RateLimit.AdminWindow))

			r.Post("/import-members", h.ImportMembers)
			r.Get("/import-members", h.ImportMembersUsage)
			r.Post("/resync-contact", h.ResyncContact)
			r.Get("/resync-contact", h.ResyncContactUsage)
			r.Get("/import-runs/{id}", h.GetImportRun)
		})
	})

	return r
}
