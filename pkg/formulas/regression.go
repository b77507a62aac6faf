package formulas

import (
	"gonum.org/v1/gonum/stat"
)

// LinearFit is the result of an ordinary least-squares fit y = Slope*x + Intercept
type LinearFit struct {
	Slope     float64
	Intercept float64
	N         int
}

// Predict evaluates the fitted line at x
func (f LinearFit) Predict(x float64) float64 {
	return f.Slope*x + f.Intercept
}

// FitIndexed fits a line through (i, values[i]) for i = 0..n-1.
// The independent variable is the position in the series, not wall-clock time.
// Returns ok=false when fewer than two points are supplied.
func FitIndexed(values []float64) (LinearFit, bool) {
	n := len(values)
	if n < 2 {
		return LinearFit{N: n}, false
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	// alpha is the intercept, beta the slope
	alpha, beta := stat.LinearRegression(xs, values, nil, false)
	return LinearFit{Slope: beta, Intercept: alpha, N: n}, true
}
