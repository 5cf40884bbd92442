package usecase

import (
	"context"
	"errors"

	"FraudGuard/internal/domain/models"
	drepo "FraudGuard/internal/domain/repository"
	"FraudGuard/internal/middleware"
	"FraudGuard/internal/service/history"
	applogger "FraudGuard/pkg/logger"
)

// AuthCollector consumes the live authorization feed, scores each event,
// and hands it to the processor. A history outage degrades to scoring with
// an empty window rather than dropping the event.
type AuthCollector struct {
	stream  drepo.AuthStream
	scorer  *Scorer
	proc    *AssessmentProcessor
	metrics drepo.Metrics
	pipe    *middleware.Pipeline
	logger  *applogger.Logger
}

// NewAuthCollector creates a collector and wires the pipeline in front of
// its own Handle.
func NewAuthCollector(
	stream drepo.AuthStream,
	scorer *Scorer,
	proc *AssessmentProcessor,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	pipeOpts ...middleware.Option,
) *AuthCollector {
	c := &AuthCollector{stream: stream, scorer: scorer, proc: proc, metrics: metrics, logger: logger}
	c.pipe = middleware.New(c, metrics, pipeOpts...)
	return c
}

// IsConnected reports feed connectivity.
func (c *AuthCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects, subscribes, and begins consuming in the background.
func (c *AuthCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	txCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, txCh, errCh)
	return nil
}

func (c *AuthCollector) consume(ctx context.Context, txCh <-chan *models.Transaction, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case t := <-txCh:
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Handle(ctx, t)
			} else {
				_ = c.Handle(ctx, t)
			}
		}
	}
}

// Handle scores one event and processes the result. It implements the
// pipeline's downstream interface.
func (c *AuthCollector) Handle(ctx context.Context, t *models.Transaction) error {
	a, err := c.scorer.Score(ctx, t)
	if err != nil {
		if !errors.Is(err, history.ErrUnavailable) {
			return err
		}
		c.logger.Warn("history unavailable, scoring degraded",
			applogger.String("user_id", t.UserID), applogger.Error(err))
		a = c.scorer.ScoreWithHistory(ctx, t, nil)
	}
	return c.proc.Process(ctx, t, a)
}

// Shutdown stops the pipeline and closes the feed.
func (c *AuthCollector) Shutdown(context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
