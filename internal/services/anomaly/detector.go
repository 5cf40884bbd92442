package anomaly

import (
	"context"
	"math"

	"FraudGuard/internal/domain/models"
	"FraudGuard/internal/services/features"
)

// Detector is the primary anomaly source. With a trained forest it scores
// the extracted feature vector; otherwise it falls back to an amount
// z-score against the history window. The fallback is automatic and silent:
// callers always get a valid signal, distinguished only by Source.
type Detector struct {
	forest *Forest
}

// NewDetector creates a detector around the given forest. A nil forest
// means fallback-only operation.
func NewDetector(forest *Forest) *Detector {
	if forest == nil {
		forest = NewForest()
	}
	return &Detector{forest: forest}
}

func (d *Detector) Name() string { return string(models.SourceModel) }

// Fit trains the underlying forest from transactions paired with their
// history windows. Batch operation, not on the request path.
func (d *Detector) Fit(txs []models.Transaction, histories []models.HistoryWindow, opts ForestOptions) error {
	vectors := make([][]float64, len(txs))
	for i := range txs {
		var h models.HistoryWindow
		if i < len(histories) {
			h = histories[i]
		}
		vectors[i] = features.Extract(&txs[i], h)
	}
	return d.forest.Fit(vectors, opts)
}

// Score produces an anomaly signal for the transaction. It never returns an
// error: an untrained or failing model degrades to the statistical fallback.
func (d *Detector) Score(_ context.Context, tx *models.Transaction, history models.HistoryWindow) (models.AnomalySignal, error) {
	if d.forest.Trained() {
		v := features.Extract(tx, history)
		if s, isAnomaly, err := d.forest.Score(v); err == nil {
			return models.AnomalySignal{
				Score:      math.Min(100, s*100),
				IsAnomaly:  isAnomaly,
				Source:     models.SourceModel,
				Confidence: modelConfidence(len(history)),
			}, nil
		}
	}
	return fallbackSignal(tx, history), nil
}

// fallbackSignal is the deterministic z-score path. A transaction equal to
// the historical mean scores exactly 0.
func fallbackSignal(tx *models.Transaction, history models.HistoryWindow) models.AnomalySignal {
	amounts := history.Amounts(0)
	z := features.ZScore(tx.Amount, features.Mean(amounts), features.Std(amounts))
	abs := math.Abs(z)
	return models.AnomalySignal{
		Score:      math.Min(100, abs/3*100),
		IsAnomaly:  abs > 3,
		Source:     models.SourceFallback,
		Confidence: fallbackConfidence(len(history)),
	}
}

// modelConfidence discounts trained-model output when the window is thin:
// most features are history-derived and carry little signal without it.
func modelConfidence(historyLen int) float64 {
	if historyLen >= 10 {
		return 0.9
	}
	return 0.6 + 0.03*float64(historyLen)
}

func fallbackConfidence(historyLen int) float64 {
	c := float64(historyLen) / 20
	if c > 0.7 {
		c = 0.7
	}
	if c < 0.2 {
		c = 0.2
	}
	return c
}
