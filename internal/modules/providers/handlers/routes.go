package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers history ingestion routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/history/{domain}/{entityID}", func(r chi.Router) {
		r.Put("/snapshot", h.HandlePutSnapshot)
		r.Get("/snapshot", h.HandleGetSnapshot)
		r.Post("/series", h.HandleAppendSeries)
		r.Get("/series", h.HandleGetSeries)
	})
}
