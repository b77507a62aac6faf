package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// TrailingSMA returns the simple moving average of the last `length` values.
// When fewer values are available, the whole slice is averaged.
func TrailingSMA(values []float64, length int) float64 {
	if len(values) == 0 {
		return 0
	}
	if length > len(values) {
		length = len(values)
	}
	if length < 2 {
		return values[len(values)-1]
	}

	sma := talib.Sma(values, length)
	if len(sma) > 0 && !math.IsNaN(sma[len(sma)-1]) {
		return sma[len(sma)-1]
	}

	// Fallback to a plain mean of the tail
	return Mean(values[len(values)-length:])
}
