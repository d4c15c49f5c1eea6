package utils

import (
	"github.com/shopspring/decimal"

	"rentalhub-backend/internal/domain"
)

// Global deposit percentages applied when a product does not author its own.
const (
	DefaultUnverifiedPercent = 100
	DefaultVerifiedPercent   = 30
	DefaultPremiumPercent    = 0
)

// DepositPercentage returns the percentage of the unit price held as deposit for a KYC tier.
// Unknown tiers are treated as unverified.
func DepositPercentage(tier domain.KYCStatus, policy domain.DepositPolicy) int {
	switch tier {
	case domain.KYCStatusPremium:
		return pick(policy.Premium, DefaultPremiumPercent)
	case domain.KYCStatusVerified:
		return pick(policy.Verified, DefaultVerifiedPercent)
	default:
		return pick(policy.Unverified, DefaultUnverifiedPercent)
	}
}

func pick(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// RequiredDepositAmount computes round(price * percentage / 100), rounding half up.
func RequiredDepositAmount(tier domain.KYCStatus, unitPrice int64, policy domain.DepositPolicy) int64 {
	pct := DepositPercentage(tier, policy)
	if pct <= 0 || unitPrice <= 0 {
		return 0
	}
	amount := decimal.NewFromInt(unitPrice).
		Mul(decimal.NewFromInt(int64(pct))).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return amount.IntPart()
}

// RequiredOrderDeposit sums the per-unit amounts, each rounded on its own.
// products holds one entry per ordered unit, so a product ordered twice appears twice.
func RequiredOrderDeposit(tier domain.KYCStatus, products []*domain.Product) int64 {
	var total int64
	for _, p := range products {
		total += RequiredDepositAmount(tier, p.Price, p.DepositPolicy)
	}
	return total
}
