package claims

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/modules/recommendations"
	"github.com/agrisentinel/agrisentinel/internal/modules/scoring"
)

// Rejection reasons set by the assessment step
const (
	ReasonAssessmentTooLow = "Automated damage assessment below rejection threshold"
	ReasonManualReview     = "Automated damage assessment inconclusive"
)

// Params are the claims domain's assessment thresholds
type Params struct {
	// ApproveAtOrAbove approves a claim whose assessment score reaches it
	ApproveAtOrAbove float64 `yaml:"approve_at_or_above" json:"approve_at_or_above"`
	// RejectBelow rejects a claim whose assessment score is under it
	RejectBelow float64 `yaml:"reject_below" json:"reject_below"`
}

// Validate checks that the manual-review band is well formed
func (p Params) Validate() error {
	if p.RejectBelow < 0 || p.ApproveAtOrAbove > 100 || p.RejectBelow > p.ApproveAtOrAbove {
		return domain.NewInputError("claims", "thresholds must satisfy 0 <= reject_below <= approve_at_or_above <= 100")
	}
	return nil
}

// Policy is everything the claims domain contributes to an assessment
type Policy struct {
	Gate    recommendations.Gate
	Params  Params
	Scoring scoring.Config
}

// FileRequest is an incoming claim
type FileRequest struct {
	Evidence      domain.Snapshot `json:"evidence,omitempty"`
	DamagePercent *float64        `json:"damage_percent,omitempty"`
	LossDate      *time.Time      `json:"loss_date,omitempty"`
	PolicyID      string          `json:"policy_id"`
	FarmerID      string          `json:"farmer_id"`
	Crop          string          `json:"crop"`
	SumInsured    decimal.Decimal `json:"sum_insured"`
	InsuredArea   float64         `json:"insured_area"`
	DamagedArea   float64         `json:"damaged_area"`
}

// Validate checks required fields
func (r FileRequest) Validate() error {
	if r.PolicyID == "" || r.FarmerID == "" {
		return domain.NewInputError("policy_id", "policy and farmer are required")
	}
	if !r.SumInsured.IsPositive() {
		return domain.NewInputError("sum_insured", "must be positive")
	}
	if r.DamagePercent != nil && (*r.DamagePercent < 0 || *r.DamagePercent > 100) {
		return domain.NewInputError("damage_percent", "must be within [0, 100]")
	}
	return nil
}

// Claim is an insurance claim and its automated assessment
type Claim struct {
	FiledAt         time.Time                   `json:"filed_at"`
	LossDate        *time.Time                  `json:"loss_date,omitempty"`
	AssessedAt      *time.Time                  `json:"assessed_at,omitempty"`
	AssessmentScore *float64                    `json:"assessment_score,omitempty"`
	Eligibility     *domain.EligibilityDecision `json:"eligibility,omitempty"`
	Evidence        domain.Snapshot             `json:"evidence,omitempty"`
	SumInsured      decimal.Decimal             `json:"sum_insured"`
	Payout          decimal.Decimal             `json:"payout"`
	Status          Status                      `json:"status"`
	ID              string                      `json:"id"`
	PolicyID        string                      `json:"policy_id"`
	FarmerID        string                      `json:"farmer_id"`
	Crop            string                      `json:"crop"`
	Reason          string                      `json:"reason,omitempty"`
	ClaimScore      float64                     `json:"claim_score"`
	InsuredArea     float64                     `json:"insured_area"`
	DamagedArea     float64                     `json:"damaged_area"`
	DamagePercent   float64                     `json:"damage_percent"`
}

// File creates a FILED claim, deriving the damage percentage from areas when not given
func File(id string, req FileRequest, now time.Time) (*Claim, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var damage float64
	if req.DamagePercent != nil {
		damage = *req.DamagePercent
	} else {
		d, err := DamagePercent(req.DamagedArea, req.InsuredArea)
		if err != nil {
			return nil, err
		}
		damage = d
	}

	return &Claim{
		ID:            id,
		PolicyID:      req.PolicyID,
		FarmerID:      req.FarmerID,
		Crop:          req.Crop,
		SumInsured:    req.SumInsured,
		InsuredArea:   req.InsuredArea,
		DamagedArea:   req.DamagedArea,
		DamagePercent: damage,
		LossDate:      req.LossDate,
		Evidence:      req.Evidence,
		Status:        StatusFiled,
		FiledAt:       now,
	}, nil
}

// Transition moves the claim to next when the workflow allows it
func (c *Claim) Transition(next Status) error {
	if !c.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: claim %s cannot move from %s to %s", ErrInvalidStatusTransition, c.ID, c.Status, next)
	}
	c.Status = next
	return nil
}

// Attributes is the snapshot the claims domain scores
func (c *Claim) Attributes() domain.Snapshot {
	attrs := domain.Snapshot{
		"damage_percent": c.DamagePercent,
		"insured_area":   c.InsuredArea,
		"damaged_area":   c.DamagedArea,
		"sum_insured":    c.SumInsured.InexactFloat64(),
		"crop":           c.Crop,
	}
	if c.LossDate != nil {
		attrs["report_delay"] = c.FiledAt.Sub(*c.LossDate)
	}
	for k, v := range c.Evidence {
		if _, exists := attrs[k]; !exists {
			attrs[k] = v
		}
	}
	return attrs
}

// Assess applies the automated decision to a PENDING_ASSESSMENT claim.
//
// The claim score gates first; a rejected claim never reaches the assessor's thresholds.
// Otherwise the assessment score approves (with payout), rejects, or defers to manual review.
func Assess(c *Claim, claimScore domain.CompositeScore, assessmentScore float64, policy Policy, now time.Time) error {
	if c.Status != StatusPendingAssessment {
		return fmt.Errorf("%w: claim %s is %s", ErrInvalidStatusTransition, c.ID, c.Status)
	}

	c.ClaimScore = claimScore.TotalScore
	assessed := now
	c.AssessedAt = &assessed
	c.Payout = decimal.Zero

	decision := policy.Gate.Check(claimScore.TotalScore)
	c.Eligibility = &decision
	if !decision.Eligible {
		c.Reason = decision.Reason
		return c.Transition(StatusRejected)
	}

	score := assessmentScore
	c.AssessmentScore = &score
	switch {
	case score >= policy.Params.ApproveAtOrAbove:
		c.Payout = Payout(c.SumInsured, c.DamagePercent)
		c.Reason = ""
		return c.Transition(StatusApproved)
	case score < policy.Params.RejectBelow:
		c.Reason = ReasonAssessmentTooLow
		return c.Transition(StatusRejected)
	default:
		c.Reason = ReasonManualReview
		return c.Transition(StatusRequiresManualReview)
	}
}
