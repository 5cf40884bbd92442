package usecase

import (
	"context"
	"fmt"
	"time"

	"FraudGuard/internal/domain/models"
	drepo "FraudGuard/internal/domain/repository"
	dsvc "FraudGuard/internal/domain/service"
	applogger "FraudGuard/pkg/logger"
)

// AssessmentProcessor handles the write side of a scoring pass: persist the
// transaction, invalidate the user's history window so the next Get sees
// it, and fan the assessment out. Explanation happens asynchronously, off
// the scoring hot path.
type AssessmentProcessor struct {
	store     drepo.TransactionStore
	pub       drepo.AssessmentPublisher
	history   dsvc.HistoryStore
	explainer dsvc.Explainer
	metrics   drepo.Metrics
	logger    *applogger.Logger
}

// NewAssessmentProcessor creates a processor. pub and explainer may be nil.
func NewAssessmentProcessor(
	store drepo.TransactionStore,
	pub drepo.AssessmentPublisher,
	history dsvc.HistoryStore,
	explainer dsvc.Explainer,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *AssessmentProcessor {
	return &AssessmentProcessor{
		store:     store,
		pub:       pub,
		history:   history,
		explainer: explainer,
		metrics:   metrics,
		logger:    logger,
	}
}

// Process records the scored transaction and publishes its assessment.
// Publish failures are logged, not returned: persistence is the source of
// truth, the topic is best-effort fan-out.
func (p *AssessmentProcessor) Process(ctx context.Context, tx *models.Transaction, a *models.RiskAssessment) error {
	start := time.Now()
	if err := p.store.Store(ctx, tx); err != nil {
		p.metrics.RecordError("store")
		return fmt.Errorf("store transaction: %w", err)
	}
	p.history.Invalidate(tx.UserID)

	if p.pub != nil {
		if err := p.pub.Publish(ctx, a); err != nil {
			p.metrics.RecordError("publish")
			p.logger.Warn("assessment publish failed",
				applogger.String("transaction_id", tx.ID), applogger.Error(err))
		}
	}

	if p.explainer != nil {
		go p.explain(a)
	}

	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

func (p *AssessmentProcessor) explain(a *models.RiskAssessment) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	text, err := p.explainer.Explain(ctx, a)
	if err != nil {
		p.metrics.RecordError("explain")
		p.logger.Warn("explanation failed",
			applogger.String("transaction_id", a.TransactionID), applogger.Error(err))
		return
	}
	p.logger.Info("assessment explained",
		applogger.String("transaction_id", a.TransactionID),
		applogger.String("explanation", text))
}

// Close releases the processor's resources.
func (p *AssessmentProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
