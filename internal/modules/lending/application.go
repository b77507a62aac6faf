package lending

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/modules/recommendations"
	"github.com/agrisentinel/agrisentinel/internal/modules/scoring"
)

// Rejection reasons set by the workflow itself; the eligibility gate supplies its own
const (
	ReasonAmountExceedsLimit = "Requested amount exceeds maximum eligible amount"
)

// Policy is everything the credit domain contributes to a loan decision
type Policy struct {
	Gate    recommendations.Gate
	Params  Params
	Scoring scoring.Config
}

// Request is an incoming loan application
type Request struct {
	FarmerID     string          `json:"farmer_id"`
	Purpose      string          `json:"purpose"`
	Amount       decimal.Decimal `json:"amount"`
	TenureMonths int             `json:"tenure_months"`
}

// Validate checks the request against the policy's tenure bounds
func (r Request) Validate(p Params) error {
	if r.FarmerID == "" {
		return domain.NewInputError("farmer_id", "is required")
	}
	if !r.Amount.IsPositive() {
		return domain.NewInputError("amount", "must be positive")
	}
	if r.TenureMonths < p.MinTenureMonths || r.TenureMonths > p.MaxTenureMonths {
		return domain.NewInputError("tenure_months", "must be between %d and %d", p.MinTenureMonths, p.MaxTenureMonths)
	}
	return nil
}

// Application is a loan application and its automated decision
type Application struct {
	CreatedAt         time.Time                   `json:"created_at"`
	DecidedAt         *time.Time                  `json:"decided_at,omitempty"`
	Eligibility       *domain.EligibilityDecision `json:"eligibility,omitempty"`
	Terms             *Terms                      `json:"terms,omitempty"`
	RequestedAmount   decimal.Decimal             `json:"requested_amount"`
	MaxEligibleAmount decimal.Decimal             `json:"max_eligible_amount"`
	Status            ApplicationStatus           `json:"status"`
	ID                string                      `json:"id"`
	FarmerID          string                      `json:"farmer_id"`
	Purpose           string                      `json:"purpose"`
	Rating            string                      `json:"rating"`
	Reason            string                      `json:"reason,omitempty"`
	CreditScore       float64                     `json:"credit_score"`
	TenureMonths      int                         `json:"tenure_months"`
}

// NewApplication creates a PENDING application
func NewApplication(id string, req Request, now time.Time) *Application {
	return &Application{
		ID:              id,
		FarmerID:        req.FarmerID,
		Purpose:         req.Purpose,
		RequestedAmount: req.Amount,
		TenureMonths:    req.TenureMonths,
		Status:          StatusPending,
		CreatedAt:       now,
	}
}

// Decide moves a PENDING application to PENDING_APPROVAL or REJECTED.
//
// The eligibility gate runs first; a rejection stops before any terms are computed.
// An eligible applicant is still rejected when the request exceeds the rating's limit.
func Decide(app *Application, score domain.CompositeScore, annualIncome decimal.Decimal, policy Policy, now time.Time) error {
	if !app.Status.CanTransitionTo(StatusRejected) {
		return fmt.Errorf("%w: application %s is %s", ErrInvalidStatusTransition, app.ID, app.Status)
	}

	app.CreditScore = score.TotalScore
	app.Rating = score.Rating
	decided := now
	app.DecidedAt = &decided

	decision := policy.Gate.Check(score.TotalScore)
	app.Eligibility = &decision
	if !decision.Eligible {
		app.Status = StatusRejected
		app.Reason = decision.Reason
		return nil
	}

	app.MaxEligibleAmount = policy.Params.MaxEligibleAmount(score.Rating, annualIncome)
	if app.RequestedAmount.GreaterThan(app.MaxEligibleAmount) {
		app.Status = StatusRejected
		app.Reason = ReasonAmountExceedsLimit
		return nil
	}

	terms, err := CalculateTerms(app.RequestedAmount, policy.Params.RateFor(score.Rating), app.TenureMonths, now)
	if err != nil {
		return err
	}
	app.Terms = &terms
	app.Status = StatusPendingApproval
	return nil
}
