package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers engine, evaluation and domain routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/engine", func(r chi.Router) {
		r.Post("/score", h.HandleScore)
		r.Post("/classify", h.HandleClassify)
		r.Post("/trend", h.HandleTrend)
		r.Post("/forecast", h.HandleForecast)
		r.Post("/eligibility", h.HandleEligibility)
		r.Post("/recommend", h.HandleRecommend)
	})

	r.Get("/api/evaluations/id/{id}", h.HandleGetEvaluation)

	r.Route("/api/evaluations/{domain}/{entityID}", func(r chi.Router) {
		// Provider calls may be slow; bound the whole pipeline
		r.Use(middleware.Timeout(30 * time.Second))

		r.Post("/", h.HandleEvaluate)
		r.Get("/", h.HandleHistory)
		r.Get("/current", h.HandleCurrent)
	})

	r.Route("/api/domains", func(r chi.Router) {
		r.Get("/", h.HandleListDomains)
		r.Get("/{domain}", h.HandleGetDomain)
	})
}
