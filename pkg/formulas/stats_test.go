package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopStdDev(t *testing.T) {
	tests := []struct {
		name      string
		data      []float64
		expected  float64
		tolerance float64
	}{
		{name: "empty", data: nil, expected: 0},
		{name: "single value", data: []float64{42}, expected: 0},
		{name: "constant", data: []float64{5, 5, 5, 5}, expected: 0},
		// population variance of 2,4,4,4,5,5,7,9 is 4
		{name: "textbook example", data: []float64{2, 4, 4, 4, 5, 5, 7, 9}, expected: 2, tolerance: 1e-12},
		{name: "price series", data: []float64{100, 105, 110, 95, 90}, expected: math.Sqrt(50), tolerance: 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, PopStdDev(tt.data), tt.tolerance)
		})
	}
}

func TestMinMax(t *testing.T) {
	lo, hi := MinMax([]float64{3, -1, 7, 2})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 7.0, hi)

	lo, hi = MinMax(nil)
	assert.Zero(t, lo)
	assert.Zero(t, hi)
}

func TestChangePercent(t *testing.T) {
	assert.InDelta(t, -10.0, ChangePercent(100, 90), 1e-12)
	assert.InDelta(t, 50.0, ChangePercent(2, 3), 1e-12)
	assert.Zero(t, ChangePercent(0, 10), "zero base must not divide")
}

func TestFinite(t *testing.T) {
	assert.True(t, AllFinite([]float64{1, 2, 3}))
	assert.False(t, AllFinite([]float64{1, math.NaN()}))
	assert.False(t, AllFinite([]float64{math.Inf(-1)}))
	assert.True(t, AllFinite(nil))
}

func TestClampAndRound(t *testing.T) {
	assert.Equal(t, 10.0, Clamp(12, 0, 10))
	assert.Equal(t, 0.0, Clamp(-3, 0, 10))
	assert.Equal(t, 4.0, Clamp(4, 0, 10))
	assert.Equal(t, 1.23, Round(1.2345, 2))
}

func TestFitIndexed_NoiselessLine(t *testing.T) {
	tests := []struct {
		name      string
		slope     float64
		intercept float64
		n         int
	}{
		{"two points", 3, 1, 2},
		{"rising", 2.5, 10, 20},
		{"falling", -1.25, 100, 45},
		{"flat", 0, 7, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]float64, tt.n)
			for i := range values {
				values[i] = tt.slope*float64(i) + tt.intercept
			}

			fit, ok := FitIndexed(values)
			require.True(t, ok)
			assert.InDelta(t, tt.slope, fit.Slope, 1e-9)
			assert.InDelta(t, tt.intercept, fit.Intercept, 1e-9)
			assert.InDelta(t, tt.slope*float64(tt.n)+tt.intercept, fit.Predict(float64(tt.n)), 1e-9)
		})
	}
}

func TestFitIndexed_InsufficientData(t *testing.T) {
	_, ok := FitIndexed(nil)
	assert.False(t, ok)

	fit, ok := FitIndexed([]float64{5})
	assert.False(t, ok)
	assert.Equal(t, 1, fit.N)
}

func TestTrailingSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	assert.InDelta(t, 7.0, TrailingSMA(values, 7), 1e-9) // mean of 4..10
	assert.InDelta(t, 5.5, TrailingSMA(values, 50), 1e-9)
	assert.Equal(t, 10.0, TrailingSMA(values, 1))
	assert.Zero(t, TrailingSMA(nil, 7))
}
