package scoring

import (
	"sort"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// Threshold is one (lowerBound, label) band of a rating table
type Threshold struct {
	Label      string  `yaml:"label" json:"label"`
	LowerBound float64 `yaml:"min" json:"min"`
}

// Thresholds is ordered best rating first, lower bounds strictly descending
type Thresholds []Threshold

// Classify returns the label of the first band whose lower bound is <= score.
// Coverage is guaranteed by Validate, so a score below every bound only happens
// for inputs outside [0, domainMax]; those get the lowest band.
func Classify(score float64, thresholds Thresholds) string {
	if len(thresholds) == 0 {
		return ""
	}
	for _, t := range thresholds {
		if t.LowerBound <= score {
			return t.Label
		}
	}
	return thresholds[len(thresholds)-1].Label
}

// Rank returns the position of label in the table, 0 being the best rating, or -1
func (t Thresholds) Rank(label string) int {
	for i, th := range t {
		if th.Label == label {
			return i
		}
	}
	return -1
}

// Labels lists ratings best first
func (t Thresholds) Labels() []string {
	out := make([]string, len(t))
	for i, th := range t {
		out[i] = th.Label
	}
	return out
}

// Validate checks that the table covers [0, domainMax] without gaps
func (t Thresholds) Validate(domainMax float64) error {
	if len(t) == 0 {
		return domain.NewInputError("thresholds", "at least one threshold is required")
	}
	if !sort.SliceIsSorted(t, func(i, j int) bool { return t[i].LowerBound > t[j].LowerBound }) {
		return domain.NewInputError("thresholds", "lower bounds must be in descending order")
	}

	seen := make(map[string]bool, len(t))
	for i, th := range t {
		if th.Label == "" {
			return domain.NewInputError("thresholds", "threshold %d has an empty label", i)
		}
		if seen[th.Label] {
			return domain.NewInputError("thresholds", "duplicate label %q", th.Label)
		}
		seen[th.Label] = true
		if i > 0 && th.LowerBound == t[i-1].LowerBound {
			return domain.NewInputError("thresholds", "lower bound %v appears twice", th.LowerBound)
		}
	}

	if t[0].LowerBound > domainMax {
		return domain.NewInputError("thresholds", "highest bound %v exceeds domain max %v", t[0].LowerBound, domainMax)
	}
	if lowest := t[len(t)-1].LowerBound; lowest != 0 {
		return domain.NewInputError("thresholds", "lowest bound must be 0 to cover the full range, got %v", lowest)
	}
	return nil
}
