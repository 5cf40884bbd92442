package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FraudGuard/internal/domain/models"
	drepo "FraudGuard/internal/domain/repository"
)

// Proc is the minimal downstream interface the pipeline needs.
type Proc interface {
	Handle(ctx context.Context, t *models.Transaction) error
}

// Pipeline sits between the authorization feed and the scorer. It
// validates events, throttles per user, and buffers when the downstream is
// unavailable so a slow store does not stall the feed reader.
type Pipeline struct {
	proc    Proc
	metrics drepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan *models.Transaction
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	last    map[string]time.Time // per-user last accepted time
}

type Option func(*Pipeline)

// WithMaxRPS caps accepted events per second per user.
func WithMaxRPS(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer capacity.
func WithBufferSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// New creates a pipeline in front of proc.
func New(proc Proc, metrics drepo.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		proc:    proc,
		metrics: metrics,
		maxRPS:  50,
		bufSize: 2000,
		stopCh:  make(chan struct{}),
		last:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Transaction, p.bufSize)
	return p
}

// Start launches background flushing of buffered events.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case t := <-p.bufCh:
				if t == nil {
					continue
				}
				if err := p.proc.Handle(ctx, t); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- t:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Handle validates, throttles, and forwards an event, buffering on
// downstream failure.
func (p *Pipeline) Handle(ctx context.Context, t *models.Transaction) error {
	start := time.Now()
	if err := validate(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(t.UserID, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Handle(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- t:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validate(t *models.Transaction) error {
	if t == nil {
		return fmt.Errorf("transaction nil")
	}
	if t.ID == "" || t.UserID == "" {
		return fmt.Errorf("id/user_id empty")
	}
	if t.Amount <= 0 {
		return fmt.Errorf("non-positive amount")
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("timestamp missing")
	}
	return nil
}

func (p *Pipeline) allow(userID string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.last[userID]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.last[userID] = now
	return true
}
