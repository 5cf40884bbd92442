package server

import (
	"context"
	"testing"

	"FraudGuard/internal/domain/models"
	"FraudGuard/internal/usecase"
	"FraudGuard/pkg/config"
	applogger "FraudGuard/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closablePublisher struct{ closed bool }

func (p *closablePublisher) Publish(context.Context, *models.RiskAssessment) error { return nil }
func (p *closablePublisher) Close() error {
	p.closed = true
	return nil
}

func TestShutdownClosesProcessorWithoutCollector(t *testing.T) {
	logger, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)

	pub := &closablePublisher{}
	proc := usecase.NewAssessmentProcessor(nil, pub, nil, nil, nil, logger)
	app := New(&config.Config{}, nil, nil, nil, proc, nil, logger)

	require.NoError(t, app.shutdown(context.Background()))
	assert.True(t, pub.closed, "publisher must be flushed in http-only deployments")
}
