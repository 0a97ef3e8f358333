//go:build wireinject
// +build wireinject

package di

import (
	"QuantPulse/pkg/config"
	"QuantPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideTickStore,
		ProvidePredictionLog,
		ProvideAlertLog,
		ProvideModelStore,
		ProvidePublisher,

		// Ingestion
		ProvideFeeds,
		ProvideAggregator,
		ProvideTickBuffers,
		ProvideIngestionCycle,
		ProvideScheduler,
		ProvideStreamCollector,
		ProvideKafkaTicksHandler,

		// Inference and monitoring
		ProvideModel,
		ProvideDriftMonitor,
		ProvideEngine,
		ProvideExtractor,
		ProvideInferenceUseCase,
		ProvideRiskManager,
		ProvideStatusAggregator,

		// HTTP
		ProvideCache,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
