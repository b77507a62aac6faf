package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers claim routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/claims", func(r chi.Router) {
		r.Post("/", h.HandleFile)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/assess", h.HandleAssess)
	})
}
