package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"QuantPulse/internal/services/drift"
	"QuantPulse/internal/usecase"
	pkgch "QuantPulse/pkg/clickhouse"
	"QuantPulse/pkg/config"
	xhttp "QuantPulse/pkg/http"
	pkgkafka "QuantPulse/pkg/kafka"
	applogger "QuantPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle: scheduled ingestion,
// the optional push stream, the optional Kafka consumer, the drift sweep,
// and the HTTP API.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	scheduler  *usecase.Scheduler
	collector  *usecase.StreamCollector
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	monitor    *drift.Monitor
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. Collector and
// consumer may be nil when the corresponding feature is disabled.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	scheduler *usecase.Scheduler,
	collector *usecase.StreamCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	monitor *drift.Monitor,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		scheduler: scheduler,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		monitor:   monitor,
		chClient:  chClient,
		producer:  producer,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	// Aggregate warn/error logs onto the bus when a logs topic is configured
	if a.producer != nil && a.cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.cfg.Kafka.LogsTopic,
			Publisher:      kafkaLogPublisher{producer: a.producer},
		})
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(l, 500*time.Millisecond),
	)

	// Scheduled ingestion cycles
	a.scheduler.Start(ctx)
	l.Info("scheduler started",
		applogger.Strings("symbols", a.cfg.Feeds.Symbols),
		applogger.Strings("exchanges", a.cfg.Feeds.Exchanges),
	)

	// Push stream between cycles, if enabled
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("stream collector error", applogger.Error(err))
			}
		}()
		l.Info("stream collector started", applogger.String("url", a.cfg.Feeds.Stream.URL))
	}

	// Kafka consumer, if enabled
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Background drift sweep
	go a.monitor.Run(ctx)

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	// Stop scheduled cycles first so nothing new flows downstream
	a.scheduler.Stop()

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("stream collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Final collector flush publishes through the producer, so it goes first
	l.RemoveCollector()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}

// kafkaLogPublisher adapts the Kafka producer to the log collector's
// publisher interface.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.producer.Publish(ctx, topic, nil, payload)
}
