package trends

import (
	"math"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/pkg/formulas"
)

// Forecast projects the next horizonDays values with an OLS fit over (index, value).
// The regressor is the position in the ordered series, not elapsed time.
func Forecast(series []domain.TimeSeriesPoint, horizonDays int, settings Settings) (domain.Forecast, error) {
	if horizonDays > MaxHorizonDays {
		return domain.Forecast{}, domain.NewInputError("horizon_days", "must not exceed %d", MaxHorizonDays)
	}
	if err := checkFinite(series); err != nil {
		return domain.Forecast{}, err
	}

	result := domain.Forecast{
		HorizonDays:     horizonDays,
		PredictedValues: []float64{},
	}

	values := Values(series)
	if horizonDays <= 0 {
		return result, nil
	}
	fit, ok := formulas.FitIndexed(values)
	if !ok {
		return result, nil
	}
	if !formulas.IsFinite(fit.Slope) || !formulas.IsFinite(fit.Intercept) {
		return domain.Forecast{}, domain.NewComputationError("forecast", "regression produced a non-finite fit")
	}

	n := len(values)
	predicted := make([]float64, horizonDays)
	for i := range predicted {
		predicted[i] = fit.Predict(float64(n + i))
	}
	if !formulas.AllFinite(predicted) {
		return domain.Forecast{}, domain.NewComputationError("forecast", "prediction is not finite")
	}

	result.PredictedValues = predicted
	result.Slope = fit.Slope
	result.Intercept = fit.Intercept
	result.Confidence = Confidence(n, fit.Slope, settings)
	return result, nil
}

// Confidence is the heuristic forecast confidence: base 50, a sample-size bonus,
// a slope-stability bonus, capped at the domain ceiling
func Confidence(n int, slope float64, settings Settings) float64 {
	if n < 2 {
		return 0
	}

	confidence := BaseConfidence
	switch {
	case n > LargeSampleSize:
		confidence += LargeSampleBonus
	case n > MediumSampleSize:
		confidence += MediumSampleBonus
	}

	magnitude := math.Abs(slope)
	switch {
	case magnitude < settings.StableSlope:
		confidence += StableSlopeBonus
	case magnitude < settings.ModerateSlope:
		confidence += settings.ModerateBonus
	}

	ceiling := settings.Ceiling
	if ceiling <= 0 {
		ceiling = 100
	}
	return formulas.Clamp(confidence, 0, ceiling)
}

// ForecastDelta is the difference between the last projected value and the last observed value
func ForecastDelta(series []domain.TimeSeriesPoint, f domain.Forecast) (float64, bool) {
	if len(f.PredictedValues) == 0 || len(series) == 0 {
		return 0, false
	}
	values := Values(series)
	return f.PredictedValues[len(f.PredictedValues)-1] - values[len(values)-1], true
}
