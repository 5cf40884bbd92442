//go:build wireinject
// +build wireinject

package di

import (
	"FraudGuard/pkg/config"
	"FraudGuard/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,

		// Repositories
		ProvideTransactionStore,
		ProvideAssessmentPublisher,
		ProvideAuthStream,

		// Domain services
		ProvideHistoryStore,
		ProvideDetector,
		ProvideAnomalySources,
		ProvideExplainer,

		// Use cases
		ProvideScorer,
		ProvideProcessor,
		ProvideAuthCollector,
		ProvideTrainer,

		// HTTP
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
