package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FraudGuard/internal/handler/api"
	"FraudGuard/internal/services/anomaly"
	"FraudGuard/internal/usecase"
	pkgch "FraudGuard/pkg/clickhouse"
	"FraudGuard/pkg/config"
	xhttp "FraudGuard/pkg/http"
	applogger "FraudGuard/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	collector  *usecase.AuthCollector
	trainer    *usecase.Trainer
	handler    *api.ScoreEchoHandler
	proc       *usecase.AssessmentProcessor
	chClient   *pkgch.Client
	logger     *applogger.Logger
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	collector *usecase.AuthCollector,
	trainer *usecase.Trainer,
	handler *api.ScoreEchoHandler,
	proc *usecase.AssessmentProcessor,
	chClient *pkgch.Client,
	logger *applogger.Logger,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		trainer:   trainer,
		handler:   handler,
		proc:      proc,
		chClient:  chClient,
		logger:    logger,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start the authorization feed collector when configured
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.logger.Error("collector error", applogger.Error(err))
			}
		}()
		a.logger.Info("auth feed collector started", applogger.String("url", a.cfg.AuthFeed.URL))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("scoring api started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// Train runs the offline model training pass and exits.
func (a *App) Train(from, to time.Time, limit int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	return a.trainer.Train(ctx, from, to, limit, anomaly.ForestOptions{})
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Flush the publisher even in HTTP-only deployments without a collector.
	if a.proc != nil {
		a.proc.Close()
	}

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
