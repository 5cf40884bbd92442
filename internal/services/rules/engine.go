package rules

import (
	"context"
	"math"
	"sync"

	"FraudGuard/internal/domain/models"
	"FraudGuard/pkg/config"
)

// Engine runs a registry of independent rules and sums the scores of the
// triggered ones, capped at 100. Rules can be added and removed at runtime
// without recompiling callers.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewEngine creates an engine with the given rules.
func NewEngine(rs ...Rule) *Engine {
	return &Engine{rules: rs}
}

// FromConfig builds the standard rule set from typed configuration.
func FromConfig(cfg config.RulesConfig) *Engine {
	return NewEngine(
		NewVelocityRule(cfg.Velocity.Window, cfg.Velocity.MaxTransactions, cfg.Velocity.Weight),
		NewHighAmountRule(cfg.HighAmount.Multiplier, cfg.HighAmount.Weight),
		NewGeolocationRule(cfg.Geolocation.Window, cfg.Geolocation.MaxKm, cfg.Geolocation.Weight),
		NewUnusualHourRule(cfg.UnusualHour.Hours, cfg.UnusualHour.Weight),
		NewNewDeviceRule(cfg.NewDevice.MinAmount, cfg.NewDevice.Weight),
		NewDenylistRule(cfg.Denylist.Countries, cfg.Denylist.Weight),
	)
}

// Register adds a rule to the registry. The slice is replaced, never
// mutated, so Evaluate keeps reading its snapshot untouched.
func (e *Engine) Register(r Rule) {
	e.mu.Lock()
	next := make([]Rule, len(e.rules), len(e.rules)+1)
	copy(next, e.rules)
	e.rules = append(next, r)
	e.mu.Unlock()
}

// Deregister removes a rule by name. Returns false if no rule matched.
// Builds a fresh slice for the same reason Register does.
func (e *Engine) Deregister(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rules {
		if r.Name() == name {
			next := make([]Rule, 0, len(e.rules)-1)
			next = append(next, e.rules[:i]...)
			next = append(next, e.rules[i+1:]...)
			e.rules = next
			return true
		}
	}
	return false
}

// Evaluate runs every rule and returns the per-rule results plus the capped
// total. The sum is commutative, so registry order is irrelevant.
func (e *Engine) Evaluate(_ context.Context, tx *models.Transaction, history models.HistoryWindow) ([]models.RuleResult, float64) {
	e.mu.RLock()
	rs := e.rules
	e.mu.RUnlock()

	results := make([]models.RuleResult, 0, len(rs))
	total := 0.0
	for _, r := range rs {
		res := r.Evaluate(tx, history)
		if res.Triggered {
			total += res.Score
		}
		results = append(results, res)
	}
	return results, math.Min(100, total)
}
