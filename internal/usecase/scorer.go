package usecase

import (
	"context"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"FraudGuard/internal/domain/models"
	drepo "FraudGuard/internal/domain/repository"
	dsvc "FraudGuard/internal/domain/service"
	"FraudGuard/pkg/config"
	applogger "FraudGuard/pkg/logger"
)

// EngineFactory builds a rule engine from typed rule configuration. It lets
// the scorer rebuild its engine on hot reload without depending on the
// rules package directly.
type EngineFactory func(config.RulesConfig) dsvc.RuleEngine

// scoringState is the immutable bundle swapped atomically on reload.
type scoringState struct {
	cfg    config.ScoringConfig
	engine dsvc.RuleEngine
}

// Scorer orchestrates one scoring pass: fetch history, fan out to the rule
// engine and every anomaly source under independent timeouts, then fuse the
// signals that responded with renormalized weights. It owns no persistent
// state and never fails on a detector error; only an unrecoverable history
// lookup surfaces to the caller.
type Scorer struct {
	history   dsvc.HistoryStore
	sources   []dsvc.AnomalySource
	newEngine EngineFactory
	metrics   drepo.Metrics
	logger    *applogger.Logger
	state     atomic.Pointer[scoringState]
}

// NewScorer creates a scorer. sources may be empty; the rule engine alone
// still produces a complete assessment.
func NewScorer(
	history dsvc.HistoryStore,
	sources []dsvc.AnomalySource,
	newEngine EngineFactory,
	cfg config.ScoringConfig,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *Scorer {
	s := &Scorer{
		history:   history,
		sources:   sources,
		newEngine: newEngine,
		metrics:   metrics,
		logger:    logger,
	}
	s.state.Store(&scoringState{cfg: cfg, engine: newEngine(cfg.Rules)})
	return s
}

// UpdateScoring validates and swaps in a new scoring snapshot, rebuilding
// the rule engine. In-flight calls finish on the old snapshot.
func (s *Scorer) UpdateScoring(cfg config.ScoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.state.Store(&scoringState{cfg: cfg, engine: s.newEngine(cfg.Rules)})
	if s.logger != nil {
		s.logger.Info("scoring config reloaded")
	}
	return nil
}

// Config returns the active scoring snapshot.
func (s *Scorer) Config() config.ScoringConfig {
	return s.state.Load().cfg
}

// Score evaluates one transaction. It returns a history-unavailable error
// only when the lookup itself fails; the caller may then retry with
// ScoreWithHistory and an empty window.
func (s *Scorer) Score(ctx context.Context, tx *models.Transaction) (*models.RiskAssessment, error) {
	window, err := s.history.Get(ctx, tx.UserID)
	if err != nil {
		s.metrics.RecordError("history_unavailable")
		return nil, err
	}
	return s.ScoreWithHistory(ctx, tx, window), nil
}

type ruleOutcome struct {
	results []models.RuleResult
	total   float64
}

type signalOutcome struct {
	name   string
	signal models.AnomalySignal
	err    error
}

// ScoreWithHistory runs the concurrent scoring pass against an explicit
// window. It always returns a complete assessment: signals that error or
// time out are dropped and their weight leaves the fusion denominator.
func (s *Scorer) ScoreWithHistory(ctx context.Context, tx *models.Transaction, window models.HistoryWindow) *models.RiskAssessment {
	start := time.Now()
	st := s.state.Load()
	timeout := st.cfg.SignalTimeout

	ruleCh := make(chan ruleOutcome, 1)
	go func() {
		results, total := st.engine.Evaluate(ctx, tx, window)
		ruleCh <- ruleOutcome{results: results, total: total}
	}()

	sigCh := make(chan signalOutcome, len(s.sources))
	for _, src := range s.sources {
		go func(src dsvc.AnomalySource) {
			tctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			done := make(chan signalOutcome, 1)
			go func() {
				sig, err := src.Score(tctx, tx, window)
				done <- signalOutcome{name: src.Name(), signal: sig, err: err}
			}()
			select {
			case out := <-done:
				sigCh <- out
			case <-tctx.Done():
				sigCh <- signalOutcome{name: src.Name(), err: tctx.Err()}
			}
		}(src)
	}

	// Fan-in. Every task resolves by its own timeout, so the waits below
	// are bounded even under a tight caller deadline.
	var rules ruleOutcome
	rulesOK := false
	select {
	case rules = <-ruleCh:
		rulesOK = true
	case <-time.After(timeout):
		s.metrics.RecordSignalDrop("rules")
	case <-ctx.Done():
		s.metrics.RecordSignalDrop("rules")
	}

	signals := make([]models.AnomalySignal, 0, len(s.sources))
	sigScores := make(map[string]float64, len(s.sources))
	for range s.sources {
		out := <-sigCh
		if out.err != nil {
			s.metrics.RecordSignalDrop(out.name)
			if s.logger != nil {
				s.logger.Warn("anomaly source dropped",
					applogger.String("source", out.name), applogger.Error(out.err))
			}
			continue
		}
		signals = append(signals, out.signal)
		sigScores[out.name] = out.signal.Score
	}
	sort.Slice(signals, func(i, j int) bool { return signals[i].Source < signals[j].Source })

	// Weight-renormalizing fusion: only responders count in the denominator.
	num, den := 0.0, 0.0
	if rulesOK {
		num += st.cfg.Ensemble.RuleWeight * rules.total
		den += st.cfg.Ensemble.RuleWeight
	}
	for name, score := range sigScores {
		w := s.sourceWeight(st.cfg, name)
		num += w * score
		den += w
	}
	score := 0.0
	if den > 0 {
		score = num / den
	}
	score = math.Max(0, math.Min(100, score))

	level := models.RiskLow
	switch {
	case score >= st.cfg.Thresholds.High:
		level = models.RiskHigh
	case score >= st.cfg.Thresholds.Medium:
		level = models.RiskMedium
	}
	blocked := score >= st.cfg.Thresholds.High

	a := &models.RiskAssessment{
		TransactionID:  tx.ID,
		UserID:         tx.UserID,
		FraudScore:     score,
		RiskLevel:      level,
		IsBlocked:      blocked,
		TriggeredRules: []string{},
		RuleScores:     make(map[string]float64),
		AnomalySignals: signals,
		ProcessingTime: time.Since(start),
		ScoredAt:       start.UTC(),
	}
	for _, r := range rules.results {
		a.RuleScores[r.RuleName] = r.Score
		if r.Triggered {
			a.TriggeredRules = append(a.TriggeredRules, r.RuleName)
		}
	}
	sort.Strings(a.TriggeredRules)

	s.metrics.RecordAssessment(string(level), blocked)
	s.metrics.RecordLatency("score", time.Since(start).Seconds())
	return a
}

func (s *Scorer) sourceWeight(cfg config.ScoringConfig, name string) float64 {
	switch name {
	case string(models.SourceExternal):
		return cfg.Ensemble.ExternalWeight
	default:
		return cfg.Ensemble.ModelWeight
	}
}
