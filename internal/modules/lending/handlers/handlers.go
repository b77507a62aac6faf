// Package handlers provides HTTP handlers for loan applications.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/agrisentinel/agrisentinel/internal/modules/lending"
	"github.com/agrisentinel/agrisentinel/internal/utils"
)

// Handler handles loan application requests
type Handler struct {
	service *lending.Service
	log     zerolog.Logger
}

// NewHandler creates a new lending handler
func NewHandler(service *lending.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "lending").Logger(),
	}
}

// HandleApply handles POST /api/loans/applications.
// Rejected applications are still created and returned with 201.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	var req lending.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	app, err := h.service.Apply(r.Context(), req)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, app)
}

// HandleGet handles GET /api/loans/applications/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

// HandleListByFarmer handles GET /api/loans/farmers/{farmerID}/applications
func (h *Handler) HandleListByFarmer(w http.ResponseWriter, r *http.Request) {
	apps, err := h.service.ListByFarmer(r.Context(), chi.URLParam(r, "farmerID"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"applications": apps,
		"count":        len(apps),
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	status := utils.StatusForError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	h.writeError(w, status, err.Error())
}
