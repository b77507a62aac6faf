package scoring

import (
	"sort"
	"strings"
	"time"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// ScalePoint is one knot of a piecewise-linear scale
type ScalePoint struct {
	At    float64 `yaml:"at" json:"at"`
	Score float64 `yaml:"score" json:"score"`
}

// Bucket maps every value >= Min (up to the next bucket) onto Score
type Bucket struct {
	Min   float64 `yaml:"min" json:"min"`
	Score float64 `yaml:"score" json:"score"`
}

// FactorRule describes how one snapshot attribute becomes one ScoreFactor
type FactorRule struct {
	Levels     map[string]float64 `yaml:"levels,omitempty" json:"levels,omitempty"`
	Name       string             `yaml:"name" json:"name"`
	Attribute  string             `yaml:"attribute" json:"attribute"`
	Kind       RuleKind           `yaml:"kind" json:"kind"`
	Unit       string             `yaml:"unit,omitempty" json:"unit,omitempty"`
	Scale      []ScalePoint       `yaml:"scale,omitempty" json:"scale,omitempty"`
	Buckets    []Bucket           `yaml:"buckets,omitempty" json:"buckets,omitempty"`
	TrueScore  float64            `yaml:"true_score,omitempty" json:"true_score,omitempty"`
	FalseScore float64            `yaml:"false_score,omitempty" json:"false_score,omitempty"`
	Default    float64            `yaml:"default" json:"default"`
}

// Category groups factor rules under one capped subtotal
type Category struct {
	Name    string       `yaml:"name" json:"name"`
	Factors []FactorRule `yaml:"factors" json:"factors"`
	Max     float64      `yaml:"max" json:"max"`
}

// RuleTable is the full per-domain factor definition, in evaluation order
type RuleTable []Category

// Maxima returns the category-max table the scorer clamps against
func (t RuleTable) Maxima() map[string]float64 {
	out := make(map[string]float64, len(t))
	for _, c := range t {
		out[c.Name] = c.Max
	}
	return out
}

// Validate checks the table shape once at configuration load
func (t RuleTable) Validate() error {
	if len(t) == 0 {
		return domain.NewInputError("categories", "at least one category is required")
	}

	seenCategories := make(map[string]bool, len(t))
	seenFactors := make(map[string]bool)
	for _, c := range t {
		if c.Name == "" {
			return domain.NewInputError("categories", "category name is empty")
		}
		if seenCategories[c.Name] {
			return domain.NewInputError("categories", "duplicate category %q", c.Name)
		}
		seenCategories[c.Name] = true
		if c.Max <= 0 {
			return domain.NewInputError("categories."+c.Name, "max must be positive, got %v", c.Max)
		}

		for _, f := range c.Factors {
			if seenFactors[f.Name] {
				return domain.NewInputError("factors", "duplicate factor %q", f.Name)
			}
			seenFactors[f.Name] = true
			if err := f.validate(c.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f FactorRule) validate(category string) error {
	field := "categories." + category + ".factors." + f.Name
	if f.Name == "" || f.Attribute == "" {
		return domain.NewInputError(field, "factor name and attribute are required")
	}

	switch f.Kind {
	case RuleScale:
		if len(f.Scale) < 2 {
			return domain.NewInputError(field, "scale needs at least two points")
		}
		if !sort.SliceIsSorted(f.Scale, func(i, j int) bool { return f.Scale[i].At < f.Scale[j].At }) {
			return domain.NewInputError(field, "scale points must be ascending")
		}
		for i := 1; i < len(f.Scale); i++ {
			if f.Scale[i].At == f.Scale[i-1].At {
				return domain.NewInputError(field, "scale points must be strictly ascending")
			}
		}
	case RuleBuckets:
		if len(f.Buckets) == 0 {
			return domain.NewInputError(field, "buckets are empty")
		}
		for i := 1; i < len(f.Buckets); i++ {
			if f.Buckets[i].Min <= f.Buckets[i-1].Min {
				return domain.NewInputError(field, "bucket bounds must be strictly ascending")
			}
		}
	case RuleEnum:
		if len(f.Levels) == 0 {
			return domain.NewInputError(field, "enum levels are empty")
		}
	case RuleBoolean:
	default:
		return domain.NewInputError(field, "unknown rule kind %q", f.Kind)
	}

	switch f.Unit {
	case "", UnitDays, UnitMonths, UnitYears:
	default:
		return domain.NewInputError(field, "unknown duration unit %q", f.Unit)
	}
	return nil
}

// durationIn converts d into the given unit
func durationIn(d time.Duration, unit string) float64 {
	days := d.Hours() / HoursPerDay
	switch strings.ToLower(unit) {
	case UnitMonths:
		return days / DaysPerMonth
	case UnitYears:
		return days / DaysPerYear
	default:
		return days
	}
}
