package testing

import (
	"time"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// FixtureEpoch anchors every fixture series
var FixtureEpoch = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

// CreditSnapshotFixture is a farmer profile that scores 78 ("good") on the built-in
// credit domain: personal 18, financial 25, agricultural 20, behavioral 15.
func CreditSnapshotFixture() domain.Snapshot {
	return domain.Snapshot{
		"age":                 30,
		"farming_experience":  11,
		"annual_income":       450000,
		"existing_debt_ratio": 0.2,
		"land_size_acres":     5,
		"irrigation":          "borewell",
		"repayment_history":   "good",
		"cooperative_member":  true,
		"years_with_bank":     2.5,
	}
}

// LowCreditSnapshotFixture is a profile that falls below the credit eligibility gate
func LowCreditSnapshotFixture() domain.Snapshot {
	return domain.Snapshot{
		"age":                 19,
		"farming_experience":  0,
		"annual_income":       20000,
		"existing_debt_ratio": 0.9,
		"land_size_acres":     0.5,
		"irrigation":          "rainfed",
		"repayment_history":   "defaulted",
		"cooperative_member":  false,
		"years_with_bank":     0,
	}
}

// DailySeries builds one point per day starting at FixtureEpoch
func DailySeries(values ...float64) []domain.TimeSeriesPoint {
	points := make([]domain.TimeSeriesPoint, len(values))
	for i, v := range values {
		points[i] = domain.TimeSeriesPoint{Timestamp: FixtureEpoch.AddDate(0, 0, i), Value: v}
	}
	return points
}

// FallingPriceSeriesFixture is a five-day price series with a -10% change
func FallingPriceSeriesFixture() []domain.TimeSeriesPoint {
	return DailySeries(100, 105, 110, 95, 90)
}
