// Package claims provides crop insurance claim payout and the claim assessment workflow.
package claims

import (
	"github.com/shopspring/decimal"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/pkg/formulas"
)

var hundred = decimal.NewFromInt(100)

// DamagePercent is damagedArea / insuredArea * 100, bounded to [0, 100]
func DamagePercent(damagedArea, insuredArea float64) (float64, error) {
	if insuredArea <= 0 || !formulas.IsFinite(insuredArea) {
		return 0, domain.NewInputError("insured_area", "must be a positive number, got %v", insuredArea)
	}
	if damagedArea < 0 || !formulas.IsFinite(damagedArea) {
		return 0, domain.NewInputError("damaged_area", "must be a non-negative number, got %v", damagedArea)
	}
	return formulas.Clamp(damagedArea/insuredArea*100, 0, 100), nil
}

// Payout is sumInsured * damagePercent / 100, never above sumInsured nor below zero
func Payout(sumInsured decimal.Decimal, damagePercent float64) decimal.Decimal {
	if !sumInsured.IsPositive() || damagePercent <= 0 {
		return decimal.Zero
	}
	amount := sumInsured.Mul(decimal.NewFromFloat(damagePercent)).Div(hundred).Round(2)
	if amount.GreaterThan(sumInsured) {
		return sumInsured
	}
	return amount
}
