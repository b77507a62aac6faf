package recommendations

import (
	"strings"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// Inputs is everything a rule may test. Nil members are unavailable.
type Inputs struct {
	Score         *domain.CompositeScore
	Trend         *domain.TrendAnalysis
	Forecast      *domain.Forecast
	ForecastDelta *float64
	Snapshot      domain.Snapshot
	Flags         map[string]bool
}

func (in Inputs) lookup(field string) (interface{}, bool) {
	switch {
	case strings.HasPrefix(field, "factor."):
		if in.Score == nil {
			return nil, false
		}
		name := strings.TrimPrefix(field, "factor.")
		for _, f := range in.Score.Factors {
			if f.Name == name {
				return f.NormalizedScore, true
			}
		}
		return nil, false
	case strings.HasPrefix(field, "raw."):
		v, ok := in.Snapshot[strings.TrimPrefix(field, "raw.")]
		return v, ok && v != nil
	case strings.HasPrefix(field, "flag."):
		v, ok := in.Flags[strings.TrimPrefix(field, "flag.")]
		return v, ok
	}

	switch field {
	case "score":
		if in.Score != nil {
			return in.Score.TotalScore, true
		}
	case "rating":
		if in.Score != nil && in.Score.Rating != "" {
			return in.Score.Rating, true
		}
	case "forecast_delta":
		if in.ForecastDelta != nil {
			return *in.ForecastDelta, true
		}
	case "forecast_confidence":
		if in.Forecast != nil && len(in.Forecast.PredictedValues) > 0 {
			return in.Forecast.Confidence, true
		}
	default:
		return in.trendField(field)
	}
	return nil, false
}

func (in Inputs) trendField(field string) (interface{}, bool) {
	t := in.Trend
	if t == nil {
		return nil, false
	}
	if field == "direction" {
		return string(t.Direction), true
	}
	// Aggregates are undefined without data
	if t.Points == 0 {
		return nil, false
	}
	switch field {
	case "change_percent":
		return t.ChangePercent, t.Direction != domain.DirectionInsufficientData
	case "volatility":
		return t.Volatility, true
	case "average":
		return t.Average, true
	case "min":
		return t.Min, true
	case "max":
		return t.Max, true
	case "moving_average":
		return t.MovingAverage, true
	}
	return nil, false
}
