package rules

import (
	"fmt"
	"time"

	"FraudGuard/internal/domain/models"
	"FraudGuard/internal/services/features"
)

// GeolocationRule flags transactions placed implausibly far from the user's
// most recent transaction inside a trailing window. Distances are
// great-circle (haversine) on the mean Earth radius.
type GeolocationRule struct {
	Window time.Duration
	MaxKm  float64
	Weight float64
}

func NewGeolocationRule(window time.Duration, maxKm, weight float64) *GeolocationRule {
	return &GeolocationRule{Window: window, MaxKm: maxKm, Weight: weight}
}

func (r *GeolocationRule) Name() string { return NameGeolocation }

func (r *GeolocationRule) Evaluate(tx *models.Transaction, history models.HistoryWindow) models.RuleResult {
	if !tx.HasLocation() {
		return pass(NameGeolocation)
	}
	recent := history.Since(tx.Timestamp.Add(-r.Window))
	last := recent.Latest()
	if last == nil || !last.HasLocation() {
		return pass(NameGeolocation)
	}
	km := features.DistanceKm(tx, last)
	if km > r.MaxKm {
		elapsed := tx.Timestamp.Sub(last.Timestamp)
		return hit(NameGeolocation, r.Weight,
			fmt.Sprintf("%.0f km from previous transaction %s earlier", km, elapsed.Round(time.Second)))
	}
	return pass(NameGeolocation)
}
