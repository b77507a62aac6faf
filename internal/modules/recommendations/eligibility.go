package recommendations

import (
	"fmt"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// DefaultRejectionReason is used when a gate does not configure its own.
// The bare check is the loan underwriting gate.
const DefaultRejectionReason = "Credit score too low"

// Gate is a minimum-score pre-check that short-circuits a domain pipeline
type Gate struct {
	Reason       string  `yaml:"reason" json:"reason"`
	MinimumScore float64 `yaml:"minimum_score" json:"minimum_score"`
}

// Check applies the gate with its configured reason
func (g Gate) Check(score float64) domain.EligibilityDecision {
	d := CheckEligibility(score, g.MinimumScore)
	if !d.Eligible && g.Reason != "" {
		d.Reason = g.Reason
	}
	return d
}

// CheckEligibility passes scores at or above minimumThreshold
func CheckEligibility(score, minimumThreshold float64) domain.EligibilityDecision {
	d := domain.EligibilityDecision{
		Score:            score,
		MinimumThreshold: minimumThreshold,
		Eligible:         score >= minimumThreshold,
	}
	if d.Eligible {
		d.Reason = fmt.Sprintf("Score %.1f meets minimum %.1f", score, minimumThreshold)
	} else {
		d.Reason = DefaultRejectionReason
	}
	return d
}

// Outcome is the result of a gated recommendation pass
type Outcome struct {
	Eligibility     *domain.EligibilityDecision `json:"eligibility,omitempty"`
	Recommendations []domain.Recommendation     `json:"recommendations"`
}

// Rejected reports whether the gate stopped the pipeline
func (o Outcome) Rejected() bool {
	return o.Eligibility != nil && !o.Eligibility.Eligible
}

// Decide runs the gate first when there is one. A rejection returns only the
// decision; no rule is evaluated.
func Decide(gate *Gate, in Inputs, rules RuleTable) Outcome {
	if gate != nil {
		score := 0.0
		if in.Score != nil {
			score = in.Score.TotalScore
		}
		decision := gate.Check(score)
		if !decision.Eligible {
			return Outcome{Eligibility: &decision}
		}
		return Outcome{Eligibility: &decision, Recommendations: Recommend(in, rules)}
	}
	return Outcome{Recommendations: Recommend(in, rules)}
}
