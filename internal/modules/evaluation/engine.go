package evaluation

import (
	"time"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/modules/domains"
	"github.com/agrisentinel/agrisentinel/internal/modules/recommendations"
	"github.com/agrisentinel/agrisentinel/internal/modules/scoring"
	"github.com/agrisentinel/agrisentinel/internal/modules/trends"
	"github.com/agrisentinel/agrisentinel/pkg/formulas"
)

// Engine runs the pure engine operations against the registered domain configurations.
// It performs no I/O and is safe for concurrent use.
type Engine struct {
	registry *domains.Registry
}

// NewEngine creates an engine over a loaded registry
func NewEngine(registry *domains.Registry) *Engine {
	return &Engine{registry: registry}
}

// Registry returns the domain registry
func (e *Engine) Registry() *domains.Registry {
	return e.registry
}

// Score extracts, aggregates and classifies one snapshot
func (e *Engine) Score(domainKey, entityID string, snapshot domain.Snapshot, now time.Time) (domain.CompositeScore, error) {
	cfg, err := e.registry.Get(domainKey)
	if err != nil {
		return domain.CompositeScore{}, err
	}
	return scoring.ScoreEntity(entityID, snapshot, cfg.Scoring(), now)
}

// Classify maps a score onto the domain's rating labels
func (e *Engine) Classify(domainKey string, score float64) (string, error) {
	cfg, err := e.registry.Get(domainKey)
	if err != nil {
		return "", err
	}
	if !formulas.IsFinite(score) {
		return "", domain.NewComputationError("classify", "score is not finite")
	}
	return scoring.Classify(score, cfg.Thresholds), nil
}

// Trend analyzes a series; a nil window uses the domain's configured window
func (e *Engine) Trend(domainKey string, series []domain.TimeSeriesPoint, windowDays *int) (domain.TrendAnalysis, error) {
	cfg, err := e.registry.Get(domainKey)
	if err != nil {
		return domain.TrendAnalysis{}, err
	}
	window := trendSettings(cfg).WindowDays
	if windowDays != nil {
		window = *windowDays
	}
	return trends.AnalyzeTrend(domainKey, series, window)
}

// Forecast projects a series; a nil horizon uses the domain's configured horizon
func (e *Engine) Forecast(domainKey string, series []domain.TimeSeriesPoint, horizonDays *int) (domain.Forecast, error) {
	cfg, err := e.registry.Get(domainKey)
	if err != nil {
		return domain.Forecast{}, err
	}
	settings := trendSettings(cfg)
	horizon := settings.HorizonDays
	if horizonDays != nil {
		horizon = *horizonDays
	}
	return trends.Forecast(series, horizon, settings)
}

// Recommend runs the domain's gate (if any) and rule table over prepared inputs
func (e *Engine) Recommend(domainKey string, in recommendations.Inputs) (recommendations.Outcome, error) {
	cfg, err := e.registry.Get(domainKey)
	if err != nil {
		return recommendations.Outcome{}, err
	}
	if in.Flags == nil && in.Snapshot != nil {
		if in.Flags, err = recommendations.DeriveFlags(in.Snapshot, cfg.Flags); err != nil {
			return recommendations.Outcome{}, err
		}
	}
	return recommendations.Decide(cfg.Eligibility, in, cfg.Rules), nil
}

// Run executes the whole pipeline on already-fetched data. The series is ignored by
// domains without trend settings.
func (e *Engine) Run(domainKey, entityID string, snapshot domain.Snapshot, series []domain.TimeSeriesPoint, now time.Time) (*Evaluation, error) {
	cfg, err := e.registry.Get(domainKey)
	if err != nil {
		return nil, err
	}

	score, err := scoring.ScoreEntity(entityID, snapshot, cfg.Scoring(), now)
	if err != nil {
		return nil, err
	}
	flags, err := recommendations.DeriveFlags(snapshot, cfg.Flags)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{
		Domain:     cfg.Key,
		EntityID:   entityID,
		Score:      score,
		Flags:      flags,
		ComputedAt: score.ComputedAt,
		ValidUntil: score.ValidUntil,
	}
	in := recommendations.Inputs{Score: &eval.Score, Snapshot: snapshot, Flags: flags}

	if cfg.HasTrend() {
		trend, err := trends.AnalyzeTrend(cfg.Key, series, cfg.Trend.WindowDays)
		if err != nil {
			return nil, err
		}
		forecast, err := trends.Forecast(series, cfg.Trend.HorizonDays, *cfg.Trend)
		if err != nil {
			return nil, err
		}
		eval.Trend = &trend
		eval.Forecast = &forecast
		in.Trend = eval.Trend
		in.Forecast = eval.Forecast
		if delta, ok := trends.ForecastDelta(series, forecast); ok {
			in.ForecastDelta = &delta
		}
	}

	outcome := recommendations.Decide(cfg.Eligibility, in, cfg.Rules)
	eval.Eligibility = outcome.Eligibility
	eval.Recommendations = outcome.Recommendations
	return eval, nil
}

func trendSettings(cfg *domains.Config) trends.Settings {
	if cfg.Trend != nil {
		return *cfg.Trend
	}
	return trends.DefaultSettings()
}
