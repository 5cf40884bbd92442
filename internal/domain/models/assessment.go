package models

import "time"

// RiskLevel buckets a fraud score into operator-facing severity.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// SignalSource identifies which detector produced an anomaly signal.
type SignalSource string

const (
	SourceModel    SignalSource = "model"
	SourceFallback SignalSource = "fallback"
	SourceExternal SignalSource = "external"
)

// RuleResult is the outcome of a single heuristic rule evaluation. It is a
// pure function of (transaction, history, rule config).
type RuleResult struct {
	RuleName  string  `json:"rule_name"`
	Triggered bool    `json:"triggered"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason,omitempty"`
}

// AnomalySignal is one detector's estimate of how unusual a transaction is.
type AnomalySignal struct {
	Score      float64      `json:"score"` // [0,100]
	IsAnomaly  bool         `json:"is_anomaly"`
	Source     SignalSource `json:"source"`
	Confidence float64      `json:"confidence"` // [0,1]
}

// RiskAssessment is the fused result of one scoring call. It is created
// once per call, immutable, and complete: a caller either gets this or an
// explicit history-unavailable error, never a partial result.
type RiskAssessment struct {
	TransactionID  string             `json:"transaction_id"`
	UserID         string             `json:"user_id"`
	FraudScore     float64            `json:"fraud_score"` // [0,100]
	RiskLevel      RiskLevel          `json:"risk_level"`
	IsBlocked      bool               `json:"is_blocked"`
	TriggeredRules []string           `json:"triggered_rules"`
	RuleScores     map[string]float64 `json:"rule_scores"`
	AnomalySignals []AnomalySignal    `json:"anomaly_signals"`
	ProcessingTime time.Duration      `json:"processing_time_ns"`
	ScoredAt       time.Time          `json:"scored_at"`
}
