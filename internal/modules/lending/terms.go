// Package lending provides loan terms (rating-adjusted rate, EMI, amortization)
// and the loan application workflow.
package lending

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

// Params are the credit domain's lending parameters
type Params struct {
	// RateAdjustments are added to BaseRate per rating, in annual percent
	RateAdjustments map[string]float64 `yaml:"rate_adjustments" json:"rate_adjustments"`
	// IncomeMultiples cap the principal at a multiple of annual income per rating;
	// a rating without an entry is not eligible for any amount
	IncomeMultiples map[string]float64 `yaml:"income_multiples" json:"income_multiples"`
	IncomeAttribute string             `yaml:"income_attribute" json:"income_attribute"`
	BaseRate        float64            `yaml:"base_rate" json:"base_rate"`
	MinTenureMonths int                `yaml:"min_tenure_months" json:"min_tenure_months"`
	MaxTenureMonths int                `yaml:"max_tenure_months" json:"max_tenure_months"`
}

// Validate checks rate and tenure bounds
func (p Params) Validate() error {
	if p.BaseRate < 0 {
		return domain.NewInputError("lending.base_rate", "must not be negative")
	}
	if p.MinTenureMonths <= 0 || p.MaxTenureMonths < p.MinTenureMonths {
		return domain.NewInputError("lending", "tenure bounds must satisfy 0 < min <= max")
	}
	if p.IncomeAttribute == "" {
		return domain.NewInputError("lending.income_attribute", "is required")
	}
	for rating, adj := range p.RateAdjustments {
		if p.BaseRate+adj < 0 {
			return domain.NewInputError("lending.rate_adjustments", "rate for %q would be negative", rating)
		}
	}
	for rating, m := range p.IncomeMultiples {
		if m < 0 {
			return domain.NewInputError("lending.income_multiples", "multiple for %q is negative", rating)
		}
	}
	return nil
}

// RateFor returns the annual interest rate, in percent, for a rating
func (p Params) RateFor(rating string) float64 {
	return p.BaseRate + p.RateAdjustments[rating]
}

// MaxEligibleAmount is annual income times the rating's multiple
func (p Params) MaxEligibleAmount(rating string, annualIncome decimal.Decimal) decimal.Decimal {
	multiple, ok := p.IncomeMultiples[rating]
	if !ok || annualIncome.IsNegative() {
		return decimal.Zero
	}
	return annualIncome.Mul(decimal.NewFromFloat(multiple)).Round(2)
}

// Installment is one period of an amortization schedule
type Installment struct {
	DueDate          time.Time       `json:"due_date"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	Total            decimal.Decimal `json:"total"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Period           int             `json:"period"`
}

// Terms are the closed-form loan terms computed once eligibility passes
type Terms struct {
	Principal     decimal.Decimal `json:"principal"`
	MonthlyEMI    decimal.Decimal `json:"monthly_emi"`
	TotalPayable  decimal.Decimal `json:"total_payable"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	Schedule      []Installment   `json:"schedule,omitempty"`
	AnnualRate    float64         `json:"annual_rate"`
	TenureMonths  int             `json:"tenure_months"`
}

// EMI returns P*r*(1+r)^n / ((1+r)^n - 1) with r = annualRate/100/12, rounded to cents.
// A zero rate splits the principal evenly.
func EMI(principal decimal.Decimal, annualRate float64, tenureMonths int) (decimal.Decimal, error) {
	if tenureMonths <= 0 {
		return decimal.Zero, domain.NewInputError("tenure_months", "must be positive, got %d", tenureMonths)
	}
	if principal.IsNegative() {
		return decimal.Zero, domain.NewInputError("principal", "must not be negative")
	}
	if annualRate < 0 || math.IsNaN(annualRate) || math.IsInf(annualRate, 0) {
		return decimal.Zero, domain.NewInputError("annual_rate", "must be a non-negative number, got %v", annualRate)
	}

	r := monthlyRate(annualRate)
	if r == 0 {
		return principal.Div(decimal.NewFromInt(int64(tenureMonths))).Round(2), nil
	}

	factor := math.Pow(1+r, float64(tenureMonths))
	emi := principal.InexactFloat64() * r * factor / (factor - 1)
	if math.IsNaN(emi) || math.IsInf(emi, 0) {
		return decimal.Zero, domain.NewComputationError("emi", "non-finite installment")
	}
	return decimal.NewFromFloat(emi).Round(2), nil
}

func monthlyRate(annualRate float64) float64 {
	return annualRate / 100 / 12
}

// CalculateTerms computes EMI, totals and the full schedule starting one month after start
func CalculateTerms(principal decimal.Decimal, annualRate float64, tenureMonths int, start time.Time) (Terms, error) {
	emi, err := EMI(principal, annualRate, tenureMonths)
	if err != nil {
		return Terms{}, err
	}

	schedule := amortize(principal, emi, annualRate, tenureMonths, start)
	total := decimal.Zero
	for _, inst := range schedule {
		total = total.Add(inst.Total)
	}

	return Terms{
		Principal:     principal,
		AnnualRate:    annualRate,
		TenureMonths:  tenureMonths,
		MonthlyEMI:    emi,
		TotalPayable:  total,
		TotalInterest: total.Sub(principal),
		Schedule:      schedule,
	}, nil
}

// amortize builds the schedule; the final period absorbs rounding so the balance ends at zero
func amortize(principal, emi decimal.Decimal, annualRate float64, tenureMonths int, start time.Time) []Installment {
	rate := decimal.NewFromFloat(monthlyRate(annualRate))
	remaining := principal
	schedule := make([]Installment, 0, tenureMonths)

	for period := 1; period <= tenureMonths; period++ {
		interest := remaining.Mul(rate).Round(2)
		principalPart := emi.Sub(interest)
		if period == tenureMonths || principalPart.GreaterThan(remaining) {
			principalPart = remaining
		}

		remaining = remaining.Sub(principalPart)
		schedule = append(schedule, Installment{
			Period:           period,
			DueDate:          start.AddDate(0, period, 0),
			Principal:        principalPart,
			Interest:         interest,
			Total:            principalPart.Add(interest),
			RemainingBalance: remaining,
		})
	}
	return schedule
}
