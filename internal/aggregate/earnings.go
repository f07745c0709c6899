// Package aggregate derives display aggregates (earnings, delivery batches,
// ledger sums) from the current entity sets. Everything here recomputes
// from the full set on each call; nothing accumulates, so duplicate or
// redelivered events can never double-count.
package aggregate

import "live-sync/internal/models"

// EarningsConfig parameterizes the rider pay formula. The values are
// configuration, not business law.
type EarningsConfig struct {
	BaseRate       int64
	BonusThreshold int
	BonusAmount    int64
}

// Earnings computes the rider earnings summary from the delivered count.
func Earnings(deliveredCount int, cfg EarningsConfig) models.EarningsSummary {
	base := int64(deliveredCount) * cfg.BaseRate
	var bonus int64
	if deliveredCount >= cfg.BonusThreshold {
		bonus = cfg.BonusAmount
	}
	return models.EarningsSummary{
		DeliveredCount: deliveredCount,
		BasePay:        base,
		BonusPay:       bonus,
		BonusThreshold: cfg.BonusThreshold,
		Total:          base + bonus,
	}
}
