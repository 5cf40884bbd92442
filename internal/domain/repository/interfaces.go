package repository

import (
	"context"
	"time"

	"FraudGuard/internal/domain/models"
)

// AuthStream is a live feed of authorization events from the payment switch.
type AuthStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Transaction, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// HistoryLoader fetches a user's recent transactions, newest first, bounded
// by limit. It backs the history store on cache miss.
type HistoryLoader interface {
	Load(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
}

// TransactionStore persists scored transactions and serves history queries.
type TransactionStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, t *models.Transaction) error
	StoreBatch(ctx context.Context, txs []*models.Transaction) error
	Load(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
	LoadRange(ctx context.Context, from, to time.Time, limit int) ([]models.Transaction, error)
	Health(ctx context.Context) error
	Close() error
}

// AssessmentPublisher emits finished risk assessments for downstream
// consumers (case review, alerting).
type AssessmentPublisher interface {
	Publish(ctx context.Context, a *models.RiskAssessment) error
	Close() error
}

type Metrics interface {
	RecordAssessment(level string, blocked bool)
	RecordError(kind string)
	RecordSignalDrop(source string)
	RecordLatency(op string, seconds float64)
}
