package scoring

import (
	"sort"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/pkg/formulas"
)

// Aggregate is the scorer output before classification
type Aggregate struct {
	Breakdown  map[string]float64 `json:"breakdown"`
	TotalScore float64            `json:"total_score"`
}

// Score aggregates factors by category.
//
// Each category subtotal is clamped to [0, categoryMax] so categories cannot borrow
// headroom from each other; the total is the sum of clamped subtotals clamped again
// to [0, domainMax]. Every category in maxima appears in the breakdown, even when empty.
func Score(factors []domain.ScoreFactor, maxima map[string]float64, domainMax float64) (Aggregate, error) {
	if domainMax <= 0 || !formulas.IsFinite(domainMax) {
		return Aggregate{}, domain.NewInputError("domain_max", "must be a positive finite number, got %v", domainMax)
	}

	subtotals := make(map[string]float64, len(maxima))
	for name := range maxima {
		subtotals[name] = 0
	}

	for _, f := range factors {
		if _, ok := maxima[f.Category]; !ok {
			return Aggregate{}, domain.NewInputError("category", "factor %q references unknown category %q", f.Name, f.Category)
		}
		if !formulas.IsFinite(f.NormalizedScore) {
			return Aggregate{}, domain.NewComputationError("score", "factor %q has non-finite score", f.Name)
		}
		subtotals[f.Category] += f.NormalizedScore
	}

	// Sum in name order so float rounding is the same on every call
	names := make([]string, 0, len(maxima))
	for name := range maxima {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 0.0
	for _, name := range names {
		max := maxima[name]
		clamped := formulas.Clamp(subtotals[name], 0, max)
		subtotals[name] = formulas.Round(clamped, 2)
		total += clamped
	}

	total = formulas.Clamp(total, 0, domainMax)
	if !formulas.IsFinite(total) {
		return Aggregate{}, domain.NewComputationError("score", "total is not finite")
	}

	return Aggregate{
		Breakdown:  subtotals,
		TotalScore: formulas.Round(total, 2),
	}, nil
}
