package rules

import (
	"fmt"

	"FraudGuard/internal/domain/models"
)

// UnusualHourRule flags transactions placed during configured quiet hours.
// Hours are evaluated in UTC so the rule behaves the same regardless of
// where the scoring node runs.
type UnusualHourRule struct {
	hours  map[int]bool
	Weight float64
}

func NewUnusualHourRule(hours []int, weight float64) *UnusualHourRule {
	set := make(map[int]bool, len(hours))
	for _, h := range hours {
		set[h] = true
	}
	return &UnusualHourRule{hours: set, Weight: weight}
}

func (r *UnusualHourRule) Name() string { return NameUnusualHour }

func (r *UnusualHourRule) Evaluate(tx *models.Transaction, _ models.HistoryWindow) models.RuleResult {
	hour := tx.Timestamp.UTC().Hour()
	if r.hours[hour] {
		return hit(NameUnusualHour, r.Weight, fmt.Sprintf("transaction at %02d:00 UTC", hour))
	}
	return pass(NameUnusualHour)
}
