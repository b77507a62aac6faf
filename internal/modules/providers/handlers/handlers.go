// Package handlers provides HTTP ingestion of entity snapshots and time series
// into the local history store.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/modules/domains"
	"github.com/agrisentinel/agrisentinel/internal/modules/providers"
	"github.com/agrisentinel/agrisentinel/internal/utils"
)

// SeriesInvalidator drops a cached series after new points arrive
type SeriesInvalidator interface {
	Invalidate(ctx context.Context, domainKey, entityID string) error
}

// Handler handles history ingestion requests
type Handler struct {
	history  *providers.HistoryRepository
	registry *domains.Registry
	cache    SeriesInvalidator
	log      zerolog.Logger
	now      func() time.Time
}

// NewHandler creates a new history handler. cache may be nil.
func NewHandler(history *providers.HistoryRepository, registry *domains.Registry, cache SeriesInvalidator, log zerolog.Logger) *Handler {
	return &Handler{
		history:  history,
		registry: registry,
		cache:    cache,
		log:      log.With().Str("handler", "history").Logger(),
		now:      time.Now,
	}
}

type seriesRequest struct {
	Points []domain.TimeSeriesPoint `json:"points"`
}

// HandlePutSnapshot handles PUT /api/history/{domain}/{entityID}/snapshot
func (h *Handler) HandlePutSnapshot(w http.ResponseWriter, r *http.Request) {
	domainKey, entityID, ok := h.target(w, r)
	if !ok {
		return
	}

	var snapshot domain.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(snapshot) == 0 {
		h.writeError(w, http.StatusBadRequest, "snapshot must not be empty")
		return
	}

	if err := h.history.SaveSnapshot(r.Context(), domainKey, entityID, snapshot, h.now().UTC()); err != nil {
		h.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSnapshot handles GET /api/history/{domain}/{entityID}/snapshot
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	domainKey, entityID, ok := h.target(w, r)
	if !ok {
		return
	}

	snapshot, err := h.history.Snapshot(r.Context(), domainKey, entityID)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// HandleAppendSeries handles POST /api/history/{domain}/{entityID}/series.
// Points with an existing timestamp replace the stored value.
func (h *Handler) HandleAppendSeries(w http.ResponseWriter, r *http.Request) {
	domainKey, entityID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req seriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Points) == 0 {
		h.writeError(w, http.StatusBadRequest, "points must not be empty")
		return
	}

	if err := h.history.AppendSeries(r.Context(), domainKey, entityID, req.Points); err != nil {
		h.writeFailure(w, err)
		return
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context(), domainKey, entityID); err != nil {
			h.log.Warn().Err(err).Str("domain", domainKey).Str("entity_id", entityID).Msg("Failed to invalidate cached series")
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"domain":    domainKey,
		"entity_id": entityID,
		"accepted":  len(req.Points),
	})
}

// HandleGetSeries handles GET /api/history/{domain}/{entityID}/series
func (h *Handler) HandleGetSeries(w http.ResponseWriter, r *http.Request) {
	domainKey, entityID, ok := h.target(w, r)
	if !ok {
		return
	}

	points, err := h.history.Series(r.Context(), domainKey, entityID)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"points": points,
		"count":  len(points),
	})
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	cfg, err := h.registry.Get(chi.URLParam(r, "domain"))
	if err != nil {
		h.writeFailure(w, err)
		return "", "", false
	}
	return cfg.Key, chi.URLParam(r, "entityID"), true
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
