// Package recommendations provides the rule-based recommendation generator,
// derived flags and the eligibility gate.
package recommendations

import (
	"fmt"
	"strings"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// Rule fires one recommendation when every condition in When holds.
// A rule with no conditions always fires.
type Rule struct {
	Name     string          `yaml:"name" json:"name"`
	Type     string          `yaml:"type" json:"type"`
	Severity domain.Severity `yaml:"severity" json:"severity"`
	Message  string          `yaml:"message" json:"message"`
	Action   string          `yaml:"action" json:"action"`
	When     []Condition     `yaml:"when" json:"when"`
}

// RuleTable is evaluated in definition order
type RuleTable []Rule

// Validate checks every rule once at configuration load
func (t RuleTable) Validate() error {
	names := make(map[string]bool, len(t))
	for i, r := range t {
		if r.Type == "" || r.Message == "" {
			return domain.NewInputError("rules", "rule %d needs a type and a message", i)
		}
		if !r.Severity.Valid() {
			return domain.NewInputError("rules", "rule %d has unknown severity %q", i, r.Severity)
		}
		if r.Name != "" {
			if names[r.Name] {
				return domain.NewInputError("rules", "duplicate rule name %q", r.Name)
			}
			names[r.Name] = true
		}
		for _, c := range r.When {
			if err := c.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// TriggeredBy names the rule for the recommendation's audit field
func (r Rule) TriggeredBy() string {
	if r.Name != "" {
		return r.Name
	}
	parts := make([]string, len(r.When))
	for i, c := range r.When {
		parts[i] = c.String()
	}
	if len(parts) == 0 {
		return r.Type
	}
	return strings.Join(parts, " and ")
}

// Recommend tests every rule independently and returns the fired ones in rule order.
// Rules are not mutually exclusive; identical inputs always give an identical list.
func Recommend(in Inputs, rules RuleTable) []domain.Recommendation {
	out := make([]domain.Recommendation, 0)
	for _, r := range rules {
		if !r.fires(in) {
			continue
		}
		out = append(out, domain.Recommendation{
			Type:        r.Type,
			Severity:    r.Severity,
			Message:     render(r.Message, in),
			Action:      render(r.Action, in),
			TriggeredBy: r.TriggeredBy(),
		})
	}
	return out
}

func (r Rule) fires(in Inputs) bool {
	for _, c := range r.When {
		if !c.Holds(in) {
			return false
		}
	}
	return true
}

// render fills {score}, {rating}, {direction} and {change_percent}
func render(template string, in Inputs) string {
	if !strings.Contains(template, "{") {
		return template
	}

	pairs := make([]string, 0, 8)
	if in.Score != nil {
		pairs = append(pairs,
			"{score}", fmt.Sprintf("%.1f", in.Score.TotalScore),
			"{rating}", in.Score.Rating)
	}
	if in.Trend != nil {
		pairs = append(pairs,
			"{direction}", string(in.Trend.Direction),
			"{change_percent}", fmt.Sprintf("%.1f", in.Trend.ChangePercent))
	}
	if len(pairs) == 0 {
		return template
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
