package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"FraudGuard/internal/domain/models"
	"FraudGuard/internal/service/history"
	"FraudGuard/pkg/config"
	applogger "FraudGuard/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

type memStore struct {
	mu   sync.Mutex
	txs  []*models.Transaction
	fail bool
}

func (s *memStore) Init(context.Context) error { return nil }

func (s *memStore) Store(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("store down")
	}
	s.txs = append(s.txs, t)
	return nil
}

func (s *memStore) StoreBatch(ctx context.Context, txs []*models.Transaction) error {
	for _, t := range txs {
		if err := s.Store(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStore) Load(context.Context, string, int) ([]models.Transaction, error) {
	return nil, nil
}

func (s *memStore) LoadRange(context.Context, time.Time, time.Time, int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		out = append(out, *t)
	}
	return out, nil
}

func (s *memStore) Health(context.Context) error { return nil }
func (s *memStore) Close() error                 { return nil }

func (s *memStore) stored() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txs)
}

type unavailableHistory struct{}

func (unavailableHistory) Get(context.Context, string) (models.HistoryWindow, error) {
	return nil, fmt.Errorf("%w: loader offline", history.ErrUnavailable)
}

func (unavailableHistory) Invalidate(string) {}

func TestHandleDegradesWhenHistoryUnavailable(t *testing.T) {
	cfg := config.DefaultScoring()
	metrics := newFakeMetrics()
	scorer := NewScorer(unavailableHistory{}, nil, engineFactory, cfg, metrics, nil)

	store := &memStore{}
	proc := NewAssessmentProcessor(store, nil, unavailableHistory{}, nil, metrics, testLogger(t))
	c := NewAuthCollector(nil, scorer, proc, metrics, testLogger(t))

	err := c.Handle(context.Background(), quietTx(50))
	require.NoError(t, err, "a history outage must degrade, not drop the event")
	assert.Equal(t, 1, store.stored())
}

func TestHandleStoresAndScores(t *testing.T) {
	cfg := config.DefaultScoring()
	metrics := newFakeMetrics()
	scorer := NewScorer(&fakeHistory{}, nil, engineFactory, cfg, metrics, nil)

	store := &memStore{}
	proc := NewAssessmentProcessor(store, nil, &fakeHistory{}, nil, metrics, testLogger(t))
	c := NewAuthCollector(nil, scorer, proc, metrics, testLogger(t))

	require.NoError(t, c.Handle(context.Background(), quietTx(50)))
	assert.Equal(t, 1, store.stored())
}

func TestProcessReturnsStoreError(t *testing.T) {
	cfg := config.DefaultScoring()
	metrics := newFakeMetrics()
	scorer := NewScorer(&fakeHistory{}, nil, engineFactory, cfg, metrics, nil)

	store := &memStore{fail: true}
	proc := NewAssessmentProcessor(store, nil, &fakeHistory{}, nil, metrics, testLogger(t))

	tx := quietTx(50)
	a := scorer.ScoreWithHistory(context.Background(), tx, nil)
	assert.Error(t, proc.Process(context.Background(), tx, a))
}
