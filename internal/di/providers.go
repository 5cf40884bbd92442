package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"FraudGuard/internal/domain/repository"
	dsvc "FraudGuard/internal/domain/service"
	"FraudGuard/internal/handler/api"
	mid "FraudGuard/internal/middleware"
	internalrepo "FraudGuard/internal/repository"
	"FraudGuard/internal/service/authstream"
	"FraudGuard/internal/service/history"
	"FraudGuard/internal/services/anomaly"
	"FraudGuard/internal/services/explain"
	"FraudGuard/internal/services/rules"
	"FraudGuard/internal/usecase"
	"FraudGuard/pkg/cache"
	pkgch "FraudGuard/pkg/clickhouse"
	"FraudGuard/pkg/config"
	pkgkafka "FraudGuard/pkg/kafka"
	applogger "FraudGuard/pkg/logger"
	"FraudGuard/pkg/metrics"
	"FraudGuard/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + `.transactions (
			id String, user_id String, amount Float64, currency String,
			merchant String, category String, country String,
			latitude Float64, longitude Float64, device_id String,
			ts DateTime64(3, 'UTC'), ip_address String, user_agent String
		) ENGINE=MergeTree ORDER BY (user_id, ts)`,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTransactionStore creates ClickHouse transaction storage.
func ProvideTransactionStore(chClient *pkgch.Client, cfg *config.Config) repository.TransactionStore {
	return internalrepo.NewClickHouseStore(chClient.DB(), cfg.ClickHouse.Database+".transactions")
}

// ProvideAssessmentPublisher creates the Kafka assessment publisher, or nil
// when Kafka is disabled.
func ProvideAssessmentPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.AssessmentPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideHistoryStore creates the TTL history cache backed by ClickHouse.
func ProvideHistoryStore(store repository.TransactionStore, cfg *config.Config) *history.Store {
	return history.NewStore(store, cfg.Scoring.History.MaxEntries, cfg.Scoring.History.TTL)
}

// ProvideDetector creates the anomaly detector with an unfitted forest. It
// serves z-score fallback signals until a model is trained.
func ProvideDetector() *anomaly.Detector {
	return anomaly.NewDetector(anomaly.NewForest())
}

// ProvideAnomalySources assembles the configured anomaly signal sources.
func ProvideAnomalySources(detector *anomaly.Detector, cfg *config.Config) []dsvc.AnomalySource {
	sources := []dsvc.AnomalySource{detector}
	if cfg.ExternalAnomaly.Enabled && cfg.ExternalAnomaly.URL != "" {
		sources = append(sources, anomaly.NewHTTPSource(cfg.ExternalAnomaly.URL, cfg.ExternalAnomaly.Timeout))
	}
	return sources
}

// ProvideScorer creates the scoring use case.
func ProvideScorer(
	hist *history.Store,
	sources []dsvc.AnomalySource,
	metrics repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.Scorer {
	factory := func(rc config.RulesConfig) dsvc.RuleEngine { return rules.FromConfig(rc) }
	return usecase.NewScorer(hist, sources, factory, cfg.Scoring, metrics, logger)
}

// ProvideExplainer creates the external explainer, or nil when disabled.
func ProvideExplainer(cfg *config.Config) dsvc.Explainer {
	if !cfg.Explainer.Enabled || cfg.Explainer.URL == "" {
		return nil
	}
	return explain.NewHTTPExplainer(cfg.Explainer.URL, cfg.Explainer.Timeout)
}

// ProvideProcessor creates the assessment processor.
func ProvideProcessor(
	store repository.TransactionStore,
	pub repository.AssessmentPublisher,
	hist *history.Store,
	explainer dsvc.Explainer,
	metrics repository.Metrics,
	logger *applogger.Logger,
) *usecase.AssessmentProcessor {
	return usecase.NewAssessmentProcessor(store, pub, hist, explainer, metrics, logger)
}

// ProvideAuthStream creates the authorization feed client, or nil when the
// feed is disabled (HTTP-only deployments).
func ProvideAuthStream(cfg *config.Config) repository.AuthStream {
	if !cfg.AuthFeed.Enabled {
		return nil
	}
	return authstream.New(
		cfg.AuthFeed.APIKey,
		cfg.AuthFeed.URL,
		cfg.AuthFeed.ReconnectDelay,
		cfg.AuthFeed.PingInterval,
	)
}

// ProvideAuthCollector creates the feed collector, or nil without a stream.
func ProvideAuthCollector(
	stream repository.AuthStream,
	scorer *usecase.Scorer,
	proc *usecase.AssessmentProcessor,
	metrics repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.AuthCollector {
	if stream == nil {
		return nil
	}
	return usecase.NewAuthCollector(stream, scorer, proc, metrics, logger,
		mid.WithMaxRPS(cfg.AuthFeed.MaxRPS),
		mid.WithBufferSize(cfg.AuthFeed.BufferSize),
	)
}

// ProvideCache creates the response cache: Redis when enabled, in-memory
// otherwise.
func ProvideCache(cfg *config.Config, logger *applogger.Logger) cache.Service {
	if cfg.Redis.Enabled && cfg.Redis.Addr != "" {
		host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
		if err == nil {
			port, _ := strconv.Atoi(portStr)
			rc, rerr := cache.NewRedisCache(
				cache.WithRedisHost(host),
				cache.WithRedisPort(port),
				cache.WithRedisPassword(cfg.Redis.Password),
				cache.WithRedisDB(cfg.Redis.DB),
			)
			if rerr == nil {
				return rc
			}
			logger.Warn("redis cache unavailable, using memory cache", applogger.Error(rerr))
		}
	}
	return cache.NewMemoryCache()
}

// ProvideHandler creates the scoring HTTP handler.
func ProvideHandler(
	logger *applogger.Logger,
	scorer *usecase.Scorer,
	proc *usecase.AssessmentProcessor,
	hist *history.Store,
	cacheSvc cache.Service,
	chClient *pkgch.Client,
) *api.ScoreEchoHandler {
	health := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return chClient.Health(ctx)
	}
	return api.NewScoreEchoHandler(logger, scorer, proc, hist, cacheSvc, health)
}

// ProvideTrainer creates the offline model trainer.
func ProvideTrainer(
	store repository.TransactionStore,
	detector *anomaly.Detector,
	logger *applogger.Logger,
) *usecase.Trainer {
	return usecase.NewTrainer(store, detector, logger)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.AuthCollector,
	trainer *usecase.Trainer,
	handler *api.ScoreEchoHandler,
	proc *usecase.AssessmentProcessor,
	chClient *pkgch.Client,
	logger *applogger.Logger,
) *server.App {
	return server.New(cfg, collector, trainer, handler, proc, chClient, logger)
}
