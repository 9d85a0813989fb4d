package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/orgs/{orgID}", func(r chi.Router) {
			// Category registry
			r.Get("/categories", h.ListCategories)
			r.Post("/categories/seed", h.SeedCategories)
			r.Route("/categories/{slug}", func(r chi.Router) {
				r.Put("/", h.UpsertCategory)
				r.Delete("/", h.DeleteCategory)
				r.Get("/alert-rules", h.ListAlertRules)
				r.Post("/alert-rules", h.AddAlertRule)
			})

			// Archive records
			r.Get("/records", h.ListRecords)
			r.Post("/records", h.CreateRecord)
		})

		r.Route("/records/{recordID}", func(r chi.Router) {
			r.Get("/", h.GetRecord)
			r.Get("/alerts", h.GetRecordAlerts)
			r.Get("/holds", h.ListRecordHolds)
			r.Post("/freeze", h.FreezeRecord)
			r.Post("/release", h.ReleaseRecord)
			r.Post("/override", h.OverrideRecordState)
		})

		r.Delete("/alert-rules/{ruleID}", h.DeleteAlertRule)
		r.Get("/sweeps", h.ListSweepRuns)
	})

	return r
}
