package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"service":"planwright","version":"0.1.0"}`))
		})

		// Plans
		r.Post("/plans", h.CreatePlan)
		r.Get("/plans", h.ListPlans)
		r.Get("/plans/{id}", h.GetPlan)
		r.Put("/plans/{id}", h.UpdatePlan)
		r.Delete("/plans/{id}", h.DeletePlan)

		// Model-backed plan rework
		r.Post("/plans/{id}/feedback", h.RefinePlan)
		r.Post("/plans/{id}/instructions", h.InstructPlan)

		// Analytics
		r.Get("/plans/{id}/insights", h.PlanInsights)

		// Health
		r.Get("/health/generator", h.GeneratorHealth)
	})
}
