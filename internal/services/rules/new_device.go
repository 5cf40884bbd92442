package rules

import (
	"fmt"

	"FraudGuard/internal/domain/models"
)

// NewDeviceRule flags sizeable transactions from a device the user has
// never transacted with before. Small first-time-device purchases are
// routine and stay below MinAmount.
type NewDeviceRule struct {
	MinAmount float64
	Weight    float64
}

func NewNewDeviceRule(minAmount, weight float64) *NewDeviceRule {
	return &NewDeviceRule{MinAmount: minAmount, Weight: weight}
}

func (r *NewDeviceRule) Name() string { return NameNewDevice }

func (r *NewDeviceRule) Evaluate(tx *models.Transaction, history models.HistoryWindow) models.RuleResult {
	if tx.DeviceID == "" || tx.Amount < r.MinAmount {
		return pass(NameNewDevice)
	}
	for i := range history {
		if history[i].DeviceID == tx.DeviceID {
			return pass(NameNewDevice)
		}
	}
	return hit(NameNewDevice, r.Weight,
		fmt.Sprintf("device %s not seen in history, amount %.2f", tx.DeviceID, tx.Amount))
}
