package rules

import (
	"FraudGuard/internal/domain/models"
)

// Rule is a single stateless heuristic. Implementations must be pure
// functions of the transaction and its history window so that evaluation
// order never affects the engine's total.
type Rule interface {
	Name() string
	Evaluate(tx *models.Transaction, history models.HistoryWindow) models.RuleResult
}

// Canonical rule names. Downstream consumers (case review, alerting) key
// off these strings.
const (
	NameVelocity    = "velocity_check"
	NameHighAmount  = "high_amount"
	NameGeolocation = "geolocation_impossible"
	NameUnusualHour = "unusual_hour"
	NameNewDevice   = "new_device"
	NameDenylist    = "denylist_check"
)

func pass(name string) models.RuleResult {
	return models.RuleResult{RuleName: name}
}

func hit(name string, score float64, reason string) models.RuleResult {
	return models.RuleResult{RuleName: name, Triggered: true, Score: score, Reason: reason}
}
