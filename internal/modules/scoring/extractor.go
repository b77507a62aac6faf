package scoring

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/pkg/formulas"
)

// Extract turns a raw snapshot into normalized per-factor scores.
//
// Factors are returned in rule-table order. A missing attribute is scored at the
// rule's default and out-of-range numbers are clamped to the nearest defined edge.
// Type mismatches are InputErrors and non-finite numbers are ComputationErrors.
func Extract(snapshot domain.Snapshot, table RuleTable) ([]domain.ScoreFactor, error) {
	factors := make([]domain.ScoreFactor, 0)
	for _, category := range table {
		for _, rule := range category.Factors {
			raw, present := snapshot[rule.Attribute]
			factor := domain.ScoreFactor{
				Name:        rule.Name,
				Category:    category.Name,
				RawValue:    raw,
				CategoryMax: category.Max,
			}

			if !present || raw == nil {
				factor.NormalizedScore = rule.Default
				factors = append(factors, factor)
				continue
			}

			score, err := scoreFactor(rule, raw)
			if err != nil {
				return nil, err
			}
			if !formulas.IsFinite(score) {
				return nil, domain.NewComputationError("extract", "factor %q produced a non-finite score", rule.Name)
			}
			factor.NormalizedScore = score
			factors = append(factors, factor)
		}
	}
	return factors, nil
}

func scoreFactor(rule FactorRule, raw interface{}) (float64, error) {
	switch rule.Kind {
	case RuleScale:
		v, err := numericValue(rule, raw)
		if err != nil {
			return 0, err
		}
		return interpolate(rule.Scale, v), nil
	case RuleBuckets:
		v, err := numericValue(rule, raw)
		if err != nil {
			return 0, err
		}
		return bucketScore(rule.Buckets, v), nil
	case RuleEnum:
		s, ok := raw.(string)
		if !ok {
			return 0, domain.NewInputError(rule.Attribute, "expected enum string, got %T", raw)
		}
		if score, found := rule.Levels[strings.ToLower(strings.TrimSpace(s))]; found {
			return score, nil
		}
		return rule.Default, nil
	case RuleBoolean:
		b, err := boolValue(rule, raw)
		if err != nil {
			return 0, err
		}
		if b {
			return rule.TrueScore, nil
		}
		return rule.FalseScore, nil
	}
	return 0, domain.NewInputError(rule.Name, "unknown rule kind %q", rule.Kind)
}

// interpolate evaluates a piecewise-linear scale, flat beyond either end
func interpolate(points []ScalePoint, v float64) float64 {
	first, last := points[0], points[len(points)-1]
	if v <= first.At {
		return first.Score
	}
	if v >= last.At {
		return last.Score
	}
	for i := 1; i < len(points); i++ {
		lo, hi := points[i-1], points[i]
		if v <= hi.At {
			ratio := (v - lo.At) / (hi.At - lo.At)
			return lo.Score + ratio*(hi.Score-lo.Score)
		}
	}
	return last.Score
}

// bucketScore picks the highest bucket whose lower bound is <= v.
// Values below the first bound fall into the first bucket.
func bucketScore(buckets []Bucket, v float64) float64 {
	score := buckets[0].Score
	for _, b := range buckets {
		if v < b.Min {
			break
		}
		score = b.Score
	}
	return score
}

// NumericValue converts a snapshot attribute to float64.
// Durations are expressed in unit (days when empty).
func NumericValue(raw interface{}, unit string) (float64, error) {
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	case uint:
		v = float64(n)
	case uint32:
		v = float64(n)
	case uint64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, domain.NewInputError("", "malformed number %q", n.String())
		}
		v = f
	case time.Duration:
		v = durationIn(n, unit)
	case string:
		if unit != "" {
			if d, err := time.ParseDuration(n); err == nil {
				v = durationIn(d, unit)
				break
			}
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, domain.NewInputError("", "expected number, got %q", n)
		}
		v = f
	default:
		return 0, domain.NewInputError("", "expected number, got %T", raw)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, domain.NewComputationError("extract", "non-finite value %v", v)
	}
	return v, nil
}

func numericValue(rule FactorRule, raw interface{}) (float64, error) {
	v, err := NumericValue(raw, rule.Unit)
	if err != nil {
		var inputErr *domain.InputError
		if errors.As(err, &inputErr) {
			inputErr.Field = rule.Attribute
		}
		return 0, err
	}
	return v, nil
}

func boolValue(rule FactorRule, raw interface{}) (bool, error) {
	switch b := raw.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err == nil {
			return parsed, nil
		}
	}
	return false, domain.NewInputError(rule.Attribute, "expected boolean, got %T", raw)
}
