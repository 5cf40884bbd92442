package service

import (
	"context"

	"FraudGuard/internal/domain/models"
)

// RuleEngine evaluates the deterministic heuristics against a transaction
// and its history window. Results are order-independent.
type RuleEngine interface {
	Evaluate(ctx context.Context, tx *models.Transaction, history models.HistoryWindow) ([]models.RuleResult, float64)
}

// AnomalySource produces one anomaly signal for a transaction. The model
// detector, the statistical fallback, and any external service all sit
// behind this contract.
type AnomalySource interface {
	Name() string
	Score(ctx context.Context, tx *models.Transaction, history models.HistoryWindow) (models.AnomalySignal, error)
}

// HistoryStore serves a user's bounded transaction window, cache-first.
type HistoryStore interface {
	Get(ctx context.Context, userID string) (models.HistoryWindow, error)
	Invalidate(userID string)
}

// Explainer renders a human-readable rationale for a finished assessment.
// It consumes output only and must stay off the scoring hot path.
type Explainer interface {
	Explain(ctx context.Context, a *models.RiskAssessment) (string, error)
}
