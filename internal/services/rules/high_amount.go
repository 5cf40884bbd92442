package rules

import (
	"fmt"

	"FraudGuard/internal/domain/models"
	"FraudGuard/internal/services/features"
)

// HighAmountRule flags amounts far above the user's historical mean.
// With no history there is no baseline, so the rule deliberately stays
// silent rather than guessing.
type HighAmountRule struct {
	Multiplier float64
	Weight     float64
}

func NewHighAmountRule(multiplier, weight float64) *HighAmountRule {
	return &HighAmountRule{Multiplier: multiplier, Weight: weight}
}

func (r *HighAmountRule) Name() string { return NameHighAmount }

func (r *HighAmountRule) Evaluate(tx *models.Transaction, history models.HistoryWindow) models.RuleResult {
	if len(history) == 0 {
		return pass(NameHighAmount)
	}
	mean := features.Mean(history.Amounts(0))
	if mean > 0 && tx.Amount > mean*r.Multiplier {
		return hit(NameHighAmount, r.Weight,
			fmt.Sprintf("amount %.2f exceeds %.1fx historical mean %.2f", tx.Amount, r.Multiplier, mean))
	}
	return pass(NameHighAmount)
}
