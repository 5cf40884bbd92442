package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FraudGuard/internal/domain/models"
	dsvc "FraudGuard/internal/domain/service"
	"FraudGuard/internal/services/rules"
	"FraudGuard/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	window models.HistoryWindow
	err    error
}

func (f *fakeHistory) Get(context.Context, string) (models.HistoryWindow, error) {
	return f.window, f.err
}

func (f *fakeHistory) Invalidate(string) {}

type fakeSource struct {
	name   string
	signal models.AnomalySignal
	err    error
	delay  time.Duration
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Score(ctx context.Context, _ *models.Transaction, _ models.HistoryWindow) (models.AnomalySignal, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return models.AnomalySignal{}, ctx.Err()
		}
	}
	return f.signal, f.err
}

type fakeMetrics struct {
	mu    sync.Mutex
	drops map[string]int
	errs  map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{drops: make(map[string]int), errs: make(map[string]int)}
}

func (m *fakeMetrics) RecordAssessment(string, bool) {}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errs[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordSignalDrop(source string) {
	m.mu.Lock()
	m.drops[source]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) dropCount(source string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops[source]
}

func engineFactory(rc config.RulesConfig) dsvc.RuleEngine { return rules.FromConfig(rc) }

func newTestScorer(hist dsvc.HistoryStore, sources []dsvc.AnomalySource, cfg config.ScoringConfig) (*Scorer, *fakeMetrics) {
	m := newFakeMetrics()
	return NewScorer(hist, sources, engineFactory, cfg, m, nil), m
}

func quietTx(amount float64) *models.Transaction {
	return &models.Transaction{
		ID:        "tx-1",
		UserID:    "u1",
		Amount:    amount,
		Currency:  "USD",
		Country:   "FR",
		Timestamp: time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC),
	}
}

func TestScoreBounds(t *testing.T) {
	cfg := config.DefaultScoring()
	s, _ := newTestScorer(&fakeHistory{}, []dsvc.AnomalySource{
		&fakeSource{name: "model", signal: models.AnomalySignal{Score: 100, Source: models.SourceModel}},
	}, cfg)

	a := s.ScoreWithHistory(context.Background(), quietTx(50), nil)
	assert.GreaterOrEqual(t, a.FraudScore, 0.0)
	assert.LessOrEqual(t, a.FraudScore, 100.0)
}

func TestHistoryUnavailableSurfaces(t *testing.T) {
	cfg := config.DefaultScoring()
	sentinel := errors.New("history unavailable")
	s, m := newTestScorer(&fakeHistory{err: sentinel}, nil, cfg)

	_, err := s.Score(context.Background(), quietTx(50))
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, func() int { m.mu.Lock(); defer m.mu.Unlock(); return m.errs["history_unavailable"] }())
}

func TestDenylistAlwaysBlocks(t *testing.T) {
	cfg := config.DefaultScoring()
	cfg.Rules.Denylist.Countries = []string{"KP"}

	// Even a zero-scoring model signal must not dilute the block decision.
	s, _ := newTestScorer(&fakeHistory{}, []dsvc.AnomalySource{
		&fakeSource{name: "model", signal: models.AnomalySignal{Score: 0, Source: models.SourceModel}},
	}, cfg)

	tx := quietTx(10)
	tx.Country = "KP"
	a := s.ScoreWithHistory(context.Background(), tx, nil)

	assert.True(t, a.IsBlocked)
	assert.Equal(t, models.RiskHigh, a.RiskLevel)
	assert.Contains(t, a.TriggeredRules, rules.NameDenylist)
}

func TestTimedOutSourceLeavesDenominator(t *testing.T) {
	cfg := config.DefaultScoring()
	cfg.SignalTimeout = 20 * time.Millisecond

	slow := &fakeSource{
		name:   "external",
		delay:  500 * time.Millisecond,
		signal: models.AnomalySignal{Score: 100, Source: models.SourceExternal},
	}
	fast := &fakeSource{name: "model", signal: models.AnomalySignal{Score: 60, Source: models.SourceModel}}

	withSlow, m := newTestScorer(&fakeHistory{}, []dsvc.AnomalySource{fast, slow}, cfg)
	withoutSlow, _ := newTestScorer(&fakeHistory{}, []dsvc.AnomalySource{fast}, cfg)

	tx := quietTx(50)
	a := withSlow.ScoreWithHistory(context.Background(), tx, nil)
	b := withoutSlow.ScoreWithHistory(context.Background(), tx, nil)

	assert.Equal(t, 1, m.dropCount("external"))
	assert.InDelta(t, b.FraudScore, a.FraudScore, 1e-9,
		"a dropped signal must renormalize to the same score as its absence")
	assert.Len(t, a.AnomalySignals, 1)
}

func TestFailingSourceDropped(t *testing.T) {
	cfg := config.DefaultScoring()
	failing := &fakeSource{name: "model", err: errors.New("model offline")}
	s, m := newTestScorer(&fakeHistory{}, []dsvc.AnomalySource{failing}, cfg)

	a := s.ScoreWithHistory(context.Background(), quietTx(50), nil)
	assert.Equal(t, 1, m.dropCount("model"))
	assert.Empty(t, a.AnomalySignals)
	assert.GreaterOrEqual(t, a.FraudScore, 0.0)
}

func TestScoringIsIdempotent(t *testing.T) {
	cfg := config.DefaultScoring()
	cfg.Rules.Denylist.Countries = []string{"KP"}
	s, _ := newTestScorer(&fakeHistory{}, []dsvc.AnomalySource{
		&fakeSource{name: "model", signal: models.AnomalySignal{Score: 40, Source: models.SourceModel}},
		&fakeSource{name: "external", signal: models.AnomalySignal{Score: 20, Source: models.SourceExternal}},
	}, cfg)

	tx := quietTx(900)
	tx.Country = "KP"
	tx.DeviceID = "dev-new"

	a := s.ScoreWithHistory(context.Background(), tx, nil)
	b := s.ScoreWithHistory(context.Background(), tx, nil)

	assert.Equal(t, a.FraudScore, b.FraudScore)
	assert.Equal(t, a.RiskLevel, b.RiskLevel)
	assert.Equal(t, a.TriggeredRules, b.TriggeredRules)
	assert.Equal(t, a.AnomalySignals, b.AnomalySignals)
}

func TestRiskLevelThresholds(t *testing.T) {
	cfg := config.DefaultScoring()
	// Rules only: the fused score equals the rule total.
	tests := []struct {
		name  string
		srcs  []dsvc.AnomalySource
		tx    func() *models.Transaction
		level models.RiskLevel
	}{
		{
			"clean transaction is low",
			nil,
			func() *models.Transaction { return quietTx(25) },
			models.RiskLow,
		},
		{
			"unusual hour plus new device is medium",
			nil,
			func() *models.Transaction {
				tx := quietTx(900)
				tx.Timestamp = time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC)
				tx.DeviceID = "dev-new"
				return tx
			},
			models.RiskMedium,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestScorer(&fakeHistory{}, tt.srcs, cfg)
			a := s.ScoreWithHistory(context.Background(), tt.tx(), nil)
			assert.Equal(t, tt.level, a.RiskLevel)
			assert.Equal(t, tt.level == models.RiskHigh, a.IsBlocked)
		})
	}
}

func TestEndToEndHighRiskScenario(t *testing.T) {
	cfg := config.DefaultScoring()
	cfg.Rules.Denylist.Countries = []string{"KP"}

	history := models.HistoryWindow{
		{ID: "h1", UserID: "u1", Amount: 45, DeviceID: "dev-a", Timestamp: time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)},
		{ID: "h2", UserID: "u1", Amount: 55, DeviceID: "dev-a", Timestamp: time.Date(2025, 6, 13, 12, 0, 0, 0, time.UTC)},
		{ID: "h3", UserID: "u1", Amount: 50, DeviceID: "dev-a", Timestamp: time.Date(2025, 6, 12, 12, 0, 0, 0, time.UTC)},
	}
	s, _ := newTestScorer(&fakeHistory{window: history}, nil, cfg)

	// $5000 at 3 AM from a denylisted country on a never-seen device.
	tx := &models.Transaction{
		ID:        "tx-hot",
		UserID:    "u1",
		Amount:    5000,
		Country:   "KP",
		DeviceID:  "dev-x",
		Timestamp: time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC),
	}

	a, err := s.Score(context.Background(), tx)
	require.NoError(t, err)

	assert.True(t, a.IsBlocked)
	assert.Equal(t, models.RiskHigh, a.RiskLevel)
	assert.Equal(t, 100.0, a.FraudScore, "rule total caps at 100 and rules are the only responders")
	for _, name := range []string{rules.NameDenylist, rules.NameHighAmount, rules.NameNewDevice, rules.NameUnusualHour} {
		assert.Contains(t, a.TriggeredRules, name)
	}
	assert.NotContains(t, a.TriggeredRules, rules.NameVelocity)
}

func TestUpdateScoringRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultScoring()
	s, _ := newTestScorer(&fakeHistory{}, nil, cfg)

	bad := cfg
	bad.SignalTimeout = 0
	assert.Error(t, s.UpdateScoring(bad))
	assert.Equal(t, cfg.SignalTimeout, s.Config().SignalTimeout, "rejected config must not be applied")

	good := cfg
	good.Thresholds.High = 80
	require.NoError(t, s.UpdateScoring(good))
	assert.Equal(t, 80.0, s.Config().Thresholds.High)
}

func TestUpdateScoringAffectsSubsequentCalls(t *testing.T) {
	cfg := config.DefaultScoring()
	s, _ := newTestScorer(&fakeHistory{}, nil, cfg)

	tx := quietTx(900)
	tx.Timestamp = time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC)
	tx.DeviceID = "dev-new"

	before := s.ScoreWithHistory(context.Background(), tx, nil)
	assert.False(t, before.IsBlocked)

	reload := cfg
	reload.Thresholds.Medium = 10
	reload.Thresholds.High = 25
	require.NoError(t, s.UpdateScoring(reload))

	after := s.ScoreWithHistory(context.Background(), tx, nil)
	assert.True(t, after.IsBlocked)
}
