// Package trends provides directional trend analysis and short-horizon linear forecasts
// over externally supplied time series. Every function is a pure computation.
package trends

import (
	"sort"
	"time"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/pkg/formulas"
)

// DirectionFor maps a percent change onto a direction under the fixed ±5% thresholds
func DirectionFor(changePercent float64) domain.Direction {
	switch {
	case changePercent > RisingThreshold:
		return domain.DirectionRising
	case changePercent < FallingThreshold:
		return domain.DirectionFalling
	default:
		return domain.DirectionStable
	}
}

// AnalyzeTrend describes the series over the last windowDays days, measured back from
// the newest point. windowDays <= 0 uses the whole series. Fewer than two points is
// reported as insufficient_data rather than an error.
func AnalyzeTrend(domainKey string, series []domain.TimeSeriesPoint, windowDays int) (domain.TrendAnalysis, error) {
	if err := checkFinite(series); err != nil {
		return domain.TrendAnalysis{}, err
	}

	values := windowValues(series, windowDays)
	result := domain.TrendAnalysis{
		Domain:     domainKey,
		WindowDays: windowDays,
		Points:     len(values),
		Direction:  domain.DirectionInsufficientData,
	}

	switch len(values) {
	case 0:
		return result, nil
	case 1:
		v := values[0]
		result.Average, result.Min, result.Max, result.MovingAverage = v, v, v, v
		return result, nil
	}

	first, last := values[0], values[len(values)-1]
	result.ChangePercent = formulas.ChangePercent(first, last)
	result.Direction = DirectionFor(result.ChangePercent)
	result.Volatility = formulas.PopStdDev(values)
	result.Average = formulas.Mean(values)
	result.Min, result.Max = formulas.MinMax(values)
	result.MovingAverage = formulas.TrailingSMA(values, MovingAverageLength)

	for _, v := range []float64{result.ChangePercent, result.Volatility, result.Average, result.MovingAverage} {
		if !formulas.IsFinite(v) {
			return domain.TrendAnalysis{}, domain.NewComputationError("trend", "aggregation produced a non-finite value")
		}
	}
	return result, nil
}

// Ordered returns a copy of series sorted by timestamp; equal timestamps keep input order
func Ordered(series []domain.TimeSeriesPoint) []domain.TimeSeriesPoint {
	out := make([]domain.TimeSeriesPoint, len(series))
	copy(out, series)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Values extracts the ordered values of series
func Values(series []domain.TimeSeriesPoint) []float64 {
	ordered := Ordered(series)
	out := make([]float64, len(ordered))
	for i, p := range ordered {
		out[i] = p.Value
	}
	return out
}

func windowValues(series []domain.TimeSeriesPoint, windowDays int) []float64 {
	ordered := Ordered(series)
	if windowDays <= 0 || len(ordered) == 0 {
		return Values(ordered)
	}

	cutoff := ordered[len(ordered)-1].Timestamp.Add(-time.Duration(windowDays) * 24 * time.Hour)
	out := make([]float64, 0, len(ordered))
	for _, p := range ordered {
		if !p.Timestamp.Before(cutoff) {
			out = append(out, p.Value)
		}
	}
	return out
}

func checkFinite(series []domain.TimeSeriesPoint) error {
	for i, p := range series {
		if !formulas.IsFinite(p.Value) {
			return domain.NewComputationError("trend", "series value at index %d is not finite", i)
		}
	}
	return nil
}
