package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers lending routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/loans", func(r chi.Router) {
		r.Post("/applications", h.HandleApply)
		r.Get("/applications/{id}", h.HandleGet)
		r.Get("/farmers/{farmerID}/applications", h.HandleListByFarmer)
	})
}
