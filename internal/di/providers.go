package di

import (
	"context"
	"fmt"
	"time"

	domrepo "QuantPulse/internal/domain/repository"
	domsvc "QuantPulse/internal/domain/service"
	"QuantPulse/internal/handler/api"
	mid "QuantPulse/internal/middleware"
	internalrepo "QuantPulse/internal/repository"
	"QuantPulse/internal/service/cache"
	"QuantPulse/internal/service/feeds"
	"QuantPulse/internal/service/ratelimit"
	"QuantPulse/internal/services/drift"
	"QuantPulse/internal/services/features"
	"QuantPulse/internal/services/inference"
	"QuantPulse/internal/services/risk"
	"QuantPulse/internal/usecase"
	pkgch "QuantPulse/pkg/clickhouse"
	"QuantPulse/pkg/config"
	xhttp "QuantPulse/pkg/http"
	pkgkafka "QuantPulse/pkg/kafka"
	xlogger "QuantPulse/pkg/logger"
	"QuantPulse/pkg/metrics"
	"QuantPulse/pkg/server"
)

// schemaDDL is applied at startup. Every statement is idempotent so restarts
// are safe.
var schemaDDL = []string{
	"CREATE DATABASE IF NOT EXISTS quantpulse",
	`CREATE TABLE IF NOT EXISTS quantpulse.rt_ticks_raw (
		ts DateTime64(3),
		symbol LowCardinality(String),
		exchange LowCardinality(String),
		price Float64,
		volume Float64,
		bid Float64,
		ask Float64,
		has_quote UInt8
	) ENGINE = MergeTree ORDER BY (symbol, exchange, ts)`,
	`CREATE TABLE IF NOT EXISTS quantpulse.rt_books (
		ts DateTime64(3),
		symbol LowCardinality(String),
		exchange LowCardinality(String),
		bids String,
		asks String
	) ENGINE = ReplacingMergeTree(ts) ORDER BY (symbol, exchange)`,
	`CREATE TABLE IF NOT EXISTS quantpulse.prediction_log (
		ts DateTime64(3),
		symbol LowCardinality(String),
		model_version LowCardinality(String),
		prediction Float64,
		confidence Float64,
		latency_ms Float64,
		features String
	) ENGINE = MergeTree ORDER BY (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS quantpulse.drift_alerts (
		ts DateTime64(3),
		type LowCardinality(String),
		severity LowCardinality(String),
		message String,
		resolved UInt8
	) ENGINE = MergeTree ORDER BY ts`,
	`CREATE TABLE IF NOT EXISTS quantpulse.model_deployment (
		deployed_at DateTime64(3),
		version LowCardinality(String),
		status LowCardinality(String)
	) ENGINE = MergeTree ORDER BY deployed_at`,
}

// ProvideLogger builds the application logger. Production gets JSON to
// stdout, everything else console output for readability.
func ProvideLogger(cfg *config.Config) (*xlogger.Logger, error) {
	lc := &xlogger.Config{Level: "info", Format: "console", Output: "stdout"}
	if cfg.Environment == "production" {
		lc.Format = "json"
	}
	l, err := xlogger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and applies the schema.
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, schemaDDL); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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

// ProvideKafkaConsumer creates a Kafka consumer when enabled. A nil consumer
// means the app runs produce-only.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NoopHook{})
	return consumer, nil
}

// ProvideTickStore creates the ClickHouse tick repository.
func ProvideTickStore(chClient *pkgch.Client) domrepo.TickStore {
	return internalrepo.NewClickHouseTickStore(chClient)
}

// ProvidePredictionLog creates the ClickHouse prediction log.
func ProvidePredictionLog(chClient *pkgch.Client) domrepo.PredictionLog {
	return internalrepo.NewClickHousePredictionLog(chClient)
}

// ProvideAlertLog creates the ClickHouse drift alert log.
func ProvideAlertLog(chClient *pkgch.Client) domrepo.AlertLog {
	return internalrepo.NewClickHouseAlertLog(chClient)
}

// ProvideModelStore creates the ClickHouse model deployment store.
func ProvideModelStore(chClient *pkgch.Client) domrepo.ModelStore {
	return internalrepo.NewClickHouseModelStore(chClient)
}

// ProvidePublisher creates the Kafka tick publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaTicksHandler registers the handler for the ticks topic.
func ProvideKafkaTicksHandler(store domrepo.TickStore, m domrepo.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, store, m)
}

// ProvideFeeds builds one gateway feed per configured exchange, all sharing
// one rate limiter keyed by exchange.
func ProvideFeeds(cfg *config.Config, logger *xlogger.Logger, m domrepo.Metrics) []domrepo.Feed {
	limiter := ratelimit.New()
	rate := feeds.RateConfig{
		Capacity:     cfg.Feeds.RateLimit.Capacity,
		RefillPerSec: cfg.Feeds.RateLimit.RefillPerSec,
	}
	out := make([]domrepo.Feed, 0, len(cfg.Feeds.Exchanges))
	for _, ex := range cfg.Feeds.Exchanges {
		out = append(out, feeds.NewGatewayFeed(ex, cfg.Feeds.GatewayURL, limiter, rate, cfg.Feeds.FetchTimeout, logger, m))
	}
	return out
}

// ProvideAggregator creates the feed aggregator.
func ProvideAggregator(fs []domrepo.Feed, cfg *config.Config, logger *xlogger.Logger, m domrepo.Metrics) *usecase.FeedAggregator {
	return usecase.NewFeedAggregator(fs, cfg.Feeds.FetchTimeout, cfg.Feeds.StaleBelow, logger, m)
}

// ProvideTickBuffers creates the per-symbol trailing tick buffers.
func ProvideTickBuffers(cfg *config.Config) *usecase.TickBuffers {
	return usecase.NewTickBuffers(cfg.Inference.BufferSize)
}

// ProvideIngestionCycle creates the ingestion cycle use case.
func ProvideIngestionCycle(
	agg *usecase.FeedAggregator,
	store domrepo.TickStore,
	publisher domrepo.Publisher,
	buffers *usecase.TickBuffers,
	m domrepo.Metrics,
	logger *xlogger.Logger,
) *usecase.IngestionCycle {
	return usecase.NewIngestionCycle(agg, store, publisher, buffers, m, logger)
}

// ProvideScheduler creates the periodic ingestion scheduler.
func ProvideScheduler(cycle *usecase.IngestionCycle, cfg *config.Config, logger *xlogger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(cycle, cfg.Feeds.Symbols, cfg.Scheduler.Interval, logger)
}

// ProvideModel creates the active scoring model.
func ProvideModel(cfg *config.Config) domsvc.Model {
	return inference.NewLinearModel(cfg.Inference.ModelVersion)
}

// ProvideDriftMonitor creates the drift monitor.
func ProvideDriftMonitor(
	predLog domrepo.PredictionLog,
	alertLog domrepo.AlertLog,
	m domrepo.Metrics,
	logger *xlogger.Logger,
	cfg *config.Config,
) *drift.Monitor {
	return drift.NewMonitor(predLog, alertLog, m, logger, drift.Options{
		MinSample:           cfg.Drift.MinSample,
		Lookback:            cfg.Drift.Lookback,
		ConfidenceThreshold: cfg.Drift.ConfidenceThreshold,
		LatencyThresholdMs:  cfg.Drift.LatencyThresholdMs,
		CheckInterval:       cfg.Drift.CheckInterval,
	})
}

// ProvideEngine creates the inference engine with the drift monitor attached
// as its inline observer.
func ProvideEngine(
	model domsvc.Model,
	predLog domrepo.PredictionLog,
	m domrepo.Metrics,
	logger *xlogger.Logger,
	monitor *drift.Monitor,
	cfg *config.Config,
) *inference.Engine {
	engine := inference.NewEngine(model, predLog, m, logger, inference.Options{
		ConfidenceCap:    cfg.Inference.ConfidenceCap,
		StreamCap:        cfg.Inference.StreamCap,
		LatencyAvgTarget: cfg.Inference.LatencyAvgTarget,
		LatencyP95Target: cfg.Inference.LatencyP95Target,
	})
	engine.SetObserver(monitor)
	return engine
}

// ProvideRiskManager creates the risk manager from configured limits.
func ProvideRiskManager(cfg *config.Config, logger *xlogger.Logger) (*risk.Manager, error) {
	mgr, err := risk.NewManager(cfg.Risk.Limits, cfg.Risk.StartingCapital, logger)
	if err != nil {
		return nil, fmt.Errorf("risk manager: %w", err)
	}
	return mgr, nil
}

// ProvideExtractor creates the feature extractor.
func ProvideExtractor() domsvc.FeatureExtractor {
	return features.NewExtractor()
}

// ProvideInferenceUseCase creates the inference use case.
func ProvideInferenceUseCase(
	engine *inference.Engine,
	extractor domsvc.FeatureExtractor,
	buffers *usecase.TickBuffers,
	cycle *usecase.IngestionCycle,
) *usecase.InferenceUseCase {
	return usecase.NewInferenceUseCase(engine, extractor, buffers, cycle)
}

// ProvideStatusAggregator creates the system status aggregator.
func ProvideStatusAggregator(
	store domrepo.TickStore,
	modelStore domrepo.ModelStore,
	engine *inference.Engine,
	logger *xlogger.Logger,
	cfg *config.Config,
) *usecase.StatusAggregator {
	return usecase.NewStatusAggregator(store, modelStore, engine, logger, usecase.StatusOptions{
		ModelMaxAge:      cfg.Inference.ModelMaxAge,
		LatencyAvgTarget: cfg.Inference.LatencyAvgTarget,
		LatencyP95Target: cfg.Inference.LatencyP95Target,
	})
}

// ProvideCache picks Redis when configured, in-process TTL cache otherwise.
func ProvideCache(cfg *config.Config) cache.BytesCache {
	if cfg.Redis.Enabled {
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return cache.NewTTLCache()
}

// ProvideStreamCollector wires the push stream through the tick pipeline when
// streaming is enabled. A nil collector means scheduled cycles only.
func ProvideStreamCollector(
	cfg *config.Config,
	store domrepo.TickStore,
	publisher domrepo.Publisher,
	buffers *usecase.TickBuffers,
	m domrepo.Metrics,
	logger *xlogger.Logger,
) *usecase.StreamCollector {
	if !cfg.Feeds.Stream.Enabled {
		return nil
	}
	stream := feeds.NewStream(feeds.StreamConfig{
		Exchange:       cfg.Feeds.Exchanges[0],
		URL:            cfg.Feeds.Stream.URL,
		APIKey:         cfg.Feeds.Stream.APIKey,
		Symbols:        cfg.Feeds.Symbols,
		ReconnectDelay: cfg.Feeds.Stream.ReconnectDelay,
		PingInterval:   cfg.Feeds.Stream.PingInterval,
	}, logger)
	processor := usecase.NewTickProcessor(store, publisher, buffers, m)
	pipe := mid.NewTickPipeline(processor, m,
		mid.WithMaxRPS(100),
		mid.WithBufferSize(1000),
	)
	return usecase.NewStreamCollector(stream, m, pipe)
}

// ProvideHTTPHandler composes the API handlers.
func ProvideHTTPHandler(
	logger *xlogger.Logger,
	cycle *usecase.IngestionCycle,
	infer *usecase.InferenceUseCase,
	status *usecase.StatusAggregator,
	monitor *drift.Monitor,
	riskMgr *risk.Manager,
	c cache.BytesCache,
	cfg *config.Config,
) xhttp.Handler {
	pipeline := api.NewPipelineHandler(logger, cycle, infer)
	monitoring := api.NewMonitoringHandler(logger, status, monitor, riskMgr, c, api.MonitoringTTLs{
		Status: cfg.Cache.StatusTTL,
		PnL:    cfg.Cache.PnLTTL,
	})
	return api.NewRoutes(pipeline, monitoring)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *xlogger.Logger,
	scheduler *usecase.Scheduler,
	collector *usecase.StreamCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	monitor *drift.Monitor,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, logger, scheduler, collector, consumer, kh, monitor, chClient, producer, handler)
}
