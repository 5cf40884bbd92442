package rules

import (
	"fmt"
	"strings"

	"FraudGuard/internal/domain/models"
)

// DenylistRule flags transactions originating from blocked countries. Its
// weight is set high enough that, combined with the ensemble's rule share,
// it forces a block on its own. That is policy, not an accident; keep the
// weight and the ensemble rule weight in sync when tuning.
type DenylistRule struct {
	countries map[string]bool
	Weight    float64
}

func NewDenylistRule(countries []string, weight float64) *DenylistRule {
	set := make(map[string]bool, len(countries))
	for _, c := range countries {
		set[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	return &DenylistRule{countries: set, Weight: weight}
}

func (r *DenylistRule) Name() string { return NameDenylist }

func (r *DenylistRule) Evaluate(tx *models.Transaction, _ models.HistoryWindow) models.RuleResult {
	if tx.Country == "" {
		return pass(NameDenylist)
	}
	if r.countries[strings.ToUpper(tx.Country)] {
		return hit(NameDenylist, r.Weight, fmt.Sprintf("country %s is denylisted", strings.ToUpper(tx.Country)))
	}
	return pass(NameDenylist)
}
