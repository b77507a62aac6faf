// Package domain provides the data contracts shared by the decision engine.
// Every value here is created fresh per evaluation and never mutated afterwards;
// a re-evaluation produces a new record instead of editing an old one.
package domain

import "time"

// Snapshot is a raw entity snapshot: named attributes of numeric, enum, duration or boolean type
type Snapshot map[string]interface{}

// Direction is the directional characterization of a time series
type Direction string

const (
	DirectionRising           Direction = "rising"
	DirectionFalling          Direction = "falling"
	DirectionStable           Direction = "stable"
	DirectionInsufficientData Direction = "insufficient_data"
)

// Severity is assigned by the rule definition, never derived at runtime
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is one of the known severities
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// ScoreFactor is one normalized factor produced by the extractor
type ScoreFactor struct {
	RawValue        interface{} `json:"raw_value"`
	Name            string      `json:"name"`
	Category        string      `json:"category"`
	NormalizedScore float64     `json:"normalized_score"`
	CategoryMax     float64     `json:"category_max"`
}

// CompositeScore is the bounded aggregate for one entity/domain evaluation.
// Invariants: 0 <= TotalScore <= domain max, ValidUntil > ComputedAt.
type CompositeScore struct {
	ComputedAt time.Time          `json:"computed_at"`
	ValidUntil time.Time          `json:"valid_until"`
	Breakdown  map[string]float64 `json:"breakdown"`
	Factors    []ScoreFactor      `json:"factors,omitempty"`
	EntityID   string             `json:"entity_id"`
	Domain     string             `json:"domain"`
	Rating     string             `json:"rating"`
	TotalScore float64            `json:"total_score"`
}

// TimeSeriesPoint is an externally supplied observation, read-only to the engine
type TimeSeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// TrendAnalysis describes a series over a lookback window
type TrendAnalysis struct {
	Domain        string    `json:"domain"`
	Direction     Direction `json:"direction"`
	WindowDays    int       `json:"window_days"`
	Points        int       `json:"points"`
	ChangePercent float64   `json:"change_percent"`
	Volatility    float64   `json:"volatility"`
	Average       float64   `json:"average"`
	Min           float64   `json:"min"`
	Max           float64   `json:"max"`
	MovingAverage float64   `json:"moving_average"`
}

// Forecast is a short-horizon linear projection.
// Invariants: Confidence in [0,100]; empty PredictedValues implies Confidence == 0.
type Forecast struct {
	PredictedValues []float64 `json:"predicted_values"`
	HorizonDays     int       `json:"horizon_days"`
	Confidence      float64   `json:"confidence"`
	Slope           float64   `json:"slope"`
	Intercept       float64   `json:"intercept"`
}

// Recommendation is a rule-triggered, severity-tagged actionable message
type Recommendation struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	Action      string   `json:"action"`
	TriggeredBy string   `json:"triggered_by"`
}

// EligibilityDecision is the outcome of a gate evaluated before any recommendation.
// A negative decision short-circuits the rest of the pipeline.
type EligibilityDecision struct {
	Reason           string  `json:"reason"`
	Score            float64 `json:"score"`
	MinimumThreshold float64 `json:"minimum_threshold"`
	Eligible         bool    `json:"eligible"`
}
