// Package handlers provides HTTP handlers for the engine operations, the evaluation
// pipeline and the domain catalogue.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/modules/evaluation"
	"github.com/agrisentinel/agrisentinel/internal/modules/recommendations"
	"github.com/agrisentinel/agrisentinel/internal/utils"
)

// Handler handles engine and evaluation HTTP requests
type Handler struct {
	service *evaluation.Service
	engine  *evaluation.Engine
	log     zerolog.Logger
	now     func() time.Time
}

// NewHandler creates a new evaluation handler
func NewHandler(service *evaluation.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		engine:  service.Engine(),
		log:     log.With().Str("handler", "evaluation").Logger(),
		now:     time.Now,
	}
}

type scoreRequest struct {
	Snapshot domain.Snapshot `json:"snapshot"`
	Domain   string          `json:"domain"`
	EntityID string          `json:"entity_id"`
}

// HandleScore handles POST /api/engine/score
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Snapshot == nil {
		h.writeError(w, http.StatusBadRequest, "snapshot is required")
		return
	}

	score, err := h.engine.Score(req.Domain, req.EntityID, req.Snapshot, h.now().UTC())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, score)
}

type classifyRequest struct {
	Score  *float64 `json:"score"`
	Domain string   `json:"domain"`
}

// HandleClassify handles POST /api/engine/classify
func (h *Handler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Score == nil {
		h.writeError(w, http.StatusBadRequest, "score is required")
		return
	}

	rating, err := h.engine.Classify(req.Domain, *req.Score)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"domain": req.Domain,
		"score":  *req.Score,
		"rating": rating,
	})
}

type seriesRequest struct {
	WindowDays  *int                     `json:"window_days,omitempty"`
	HorizonDays *int                     `json:"horizon_days,omitempty"`
	Domain      string                   `json:"domain"`
	Series      []domain.TimeSeriesPoint `json:"series"`
}

// HandleTrend handles POST /api/engine/trend
func (h *Handler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	var req seriesRequest
	if !h.decode(w, r, &req) {
		return
	}

	trend, err := h.engine.Trend(req.Domain, req.Series, req.WindowDays)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trend)
}

// HandleForecast handles POST /api/engine/forecast
func (h *Handler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	var req seriesRequest
	if !h.decode(w, r, &req) {
		return
	}

	forecast, err := h.engine.Forecast(req.Domain, req.Series, req.HorizonDays)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, forecast)
}

type eligibilityRequest struct {
	Score            *float64 `json:"score"`
	MinimumThreshold *float64 `json:"minimum_threshold,omitempty"`
	Domain           string   `json:"domain,omitempty"`
}

// HandleEligibility handles POST /api/engine/eligibility. The threshold comes from
// the request or, when absent, from the domain's eligibility gate.
func (h *Handler) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	var req eligibilityRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Score == nil {
		h.writeError(w, http.StatusBadRequest, "score is required")
		return
	}

	if req.MinimumThreshold != nil && req.Domain == "" {
		h.writeJSON(w, http.StatusOK, recommendations.CheckEligibility(*req.Score, *req.MinimumThreshold))
		return
	}

	cfg, err := h.engine.Registry().Get(req.Domain)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if req.MinimumThreshold != nil {
		// Explicit threshold, domain wording
		gate := recommendations.Gate{MinimumScore: *req.MinimumThreshold}
		if cfg.Eligibility != nil {
			gate.Reason = cfg.Eligibility.Reason
		}
		h.writeJSON(w, http.StatusOK, gate.Check(*req.Score))
		return
	}
	if cfg.Eligibility == nil {
		h.writeError(w, http.StatusBadRequest, "domain "+cfg.Key+" has no eligibility gate; pass minimum_threshold")
		return
	}
	h.writeJSON(w, http.StatusOK, cfg.Eligibility.Check(*req.Score))
}

type recommendRequest struct {
	Score         *domain.CompositeScore `json:"score,omitempty"`
	Trend         *domain.TrendAnalysis  `json:"trend,omitempty"`
	Forecast      *domain.Forecast       `json:"forecast,omitempty"`
	ForecastDelta *float64               `json:"forecast_delta,omitempty"`
	Snapshot      domain.Snapshot        `json:"snapshot,omitempty"`
	Flags         map[string]bool        `json:"flags,omitempty"`
	Domain        string                 `json:"domain"`
}

// HandleRecommend handles POST /api/engine/recommend
func (h *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !h.decode(w, r, &req) {
		return
	}

	outcome, err := h.engine.Recommend(req.Domain, recommendations.Inputs{
		Score:         req.Score,
		Trend:         req.Trend,
		Forecast:      req.Forecast,
		ForecastDelta: req.ForecastDelta,
		Snapshot:      req.Snapshot,
		Flags:         req.Flags,
	})
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, outcome)
}

// HandleEvaluate handles POST /api/evaluations/{domain}/{entityID}
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	eval, err := h.service.Evaluate(r.Context(), chi.URLParam(r, "domain"), chi.URLParam(r, "entityID"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, eval)
}

// HandleHistory handles GET /api/evaluations/{domain}/{entityID}?limit=N
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	history, err := h.service.History(r.Context(), chi.URLParam(r, "domain"), chi.URLParam(r, "entityID"), limit)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluations": history,
		"count":       len(history),
	})
}

// HandleCurrent handles GET /api/evaluations/{domain}/{entityID}/current
func (h *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	eval, err := h.service.Current(r.Context(), chi.URLParam(r, "domain"), chi.URLParam(r, "entityID"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, eval)
}

// HandleGetEvaluation handles GET /api/evaluations/id/{id}
func (h *Handler) HandleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	eval, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, eval)
}

type domainSummary struct {
	Key          string   `json:"key"`
	Kind         string   `json:"kind"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Series       string   `json:"series,omitempty"`
	ValidityDays int      `json:"validity_days"`
	Ratings      []string `json:"ratings"`
	Gated        bool     `json:"gated"`
	HasTrend     bool     `json:"has_trend"`
}

// HandleListDomains handles GET /api/domains
func (h *Handler) HandleListDomains(w http.ResponseWriter, r *http.Request) {
	all := h.engine.Registry().All()
	out := make([]domainSummary, 0, len(all))
	for _, cfg := range all {
		out = append(out, domainSummary{
			Key:          cfg.Key,
			Kind:         string(cfg.Kind),
			Name:         cfg.Name,
			Description:  cfg.Description,
			Series:       cfg.Series,
			ValidityDays: cfg.ValidityDays,
			Ratings:      cfg.Thresholds.Labels(),
			Gated:        cfg.Gated(),
			HasTrend:     cfg.HasTrend(),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"domains": out})
}

// HandleGetDomain handles GET /api/domains/{domain}
func (h *Handler) HandleGetDomain(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.engine.Registry().Get(chi.URLParam(r, "domain"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
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
