package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"FraudGuard/internal/domain/models"
	drepo "FraudGuard/internal/domain/repository"
	"FraudGuard/internal/services/anomaly"
	applogger "FraudGuard/pkg/logger"
)

// Trainer fits the isolation forest from persisted history. Batch work,
// run from the CLI or a scheduler, never on the request path.
type Trainer struct {
	store    drepo.TransactionStore
	detector *anomaly.Detector
	logger   *applogger.Logger
}

func NewTrainer(store drepo.TransactionStore, detector *anomaly.Detector, logger *applogger.Logger) *Trainer {
	return &Trainer{store: store, detector: detector, logger: logger}
}

// Train loads the corpus for the given range and fits the forest. For each
// transaction the feature window is the user's prior transactions, exactly
// as the live path would see them.
func (t *Trainer) Train(ctx context.Context, from, to time.Time, limit int, opts anomaly.ForestOptions) error {
	if limit <= 0 {
		limit = 100000
	}
	txs, err := t.store.LoadRange(ctx, from, to, limit)
	if err != nil {
		return fmt.Errorf("load training corpus: %w", err)
	}
	if len(txs) == 0 {
		return fmt.Errorf("no transactions in range %s..%s", from, to)
	}

	// Oldest first, so each event's window only contains what preceded it.
	sort.Slice(txs, func(i, j int) bool { return txs[i].Timestamp.Before(txs[j].Timestamp) })

	byUser := make(map[string]models.HistoryWindow)
	histories := make([]models.HistoryWindow, len(txs))
	for i := range txs {
		uid := txs[i].UserID
		prior := byUser[uid]
		w := make(models.HistoryWindow, len(prior))
		copy(w, prior)
		histories[i] = w
		// prepend, keeping the window newest-first and capped
		next := append(models.HistoryWindow{txs[i]}, prior...)
		if len(next) > 100 {
			next = next[:100]
		}
		byUser[uid] = next
	}

	start := time.Now()
	if err := t.detector.Fit(txs, histories, opts); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	t.logger.Info("anomaly model trained",
		applogger.Int("transactions", len(txs)),
		applogger.Int("users", len(byUser)),
		applogger.Duration("took", time.Since(start)))
	return nil
}
