// Package handlers provides HTTP handlers for insurance claims.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/agrisentinel/agrisentinel/internal/modules/claims"
	"github.com/agrisentinel/agrisentinel/internal/utils"
)

// Handler handles claim requests
type Handler struct {
	service *claims.Service
	log     zerolog.Logger
}

// NewHandler creates a new claims handler
func NewHandler(service *claims.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "claims").Logger(),
	}
}

// HandleFile handles POST /api/claims
func (h *Handler) HandleFile(w http.ResponseWriter, r *http.Request) {
	var req claims.FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	claim, err := h.service.File(r.Context(), req)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, claim)
}

// HandleGet handles GET /api/claims/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	claim, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, claim)
}

// HandleAssess handles POST /api/claims/{id}/assess
func (h *Handler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	claim, err := h.service.Assess(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, claim)
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
	if errors.Is(err, claims.ErrInvalidStatusTransition) {
		status = http.StatusConflict
	}
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	h.writeError(w, status, err.Error())
}
