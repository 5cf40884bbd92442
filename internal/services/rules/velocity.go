package rules

import (
	"fmt"
	"time"

	"FraudGuard/internal/domain/models"
)

// VelocityRule flags bursts of transactions inside a trailing window.
type VelocityRule struct {
	Window time.Duration
	MaxTx  int
	Weight float64
}

func NewVelocityRule(window time.Duration, maxTx int, weight float64) *VelocityRule {
	return &VelocityRule{Window: window, MaxTx: maxTx, Weight: weight}
}

func (r *VelocityRule) Name() string { return NameVelocity }

func (r *VelocityRule) Evaluate(tx *models.Transaction, history models.HistoryWindow) models.RuleResult {
	recent := len(history.Since(tx.Timestamp.Add(-r.Window)))
	if recent >= r.MaxTx {
		return hit(NameVelocity, r.Weight,
			fmt.Sprintf("%d transactions in the last %s (limit %d)", recent, r.Window, r.MaxTx))
	}
	return pass(NameVelocity)
}
