package repository

import (
	"context"
	"time"

	"QuantPulse/internal/domain/models"
)

// FeedResult is one feed's contribution to an ingestion cycle.
type FeedResult struct {
	Ticks      []models.Tick
	OrderBooks []models.OrderBookSnapshot
	LatencyMs  float64
}

// Feed is an independent external source of market data. A Fetch failure is
// isolated to the feed; it never aborts the cycle.
type Feed interface {
	Name() string
	Fetch(ctx context.Context, symbols []string) (*FeedResult, error)
}

// TickStream is a push-based market data source feeding trailing buffers
// between scheduled cycles.
type TickStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// TickStore persists normalized ticks and order books, keyed by
// (symbol, exchange, timestamp) with latest-wins semantics for books.
type TickStore interface {
	StoreTicks(ctx context.Context, ticks []models.Tick) error
	StoreBooks(ctx context.Context, books []models.OrderBookSnapshot) error
	TickCounts(ctx context.Context, since time.Time) (map[string]int, error)
	Health(ctx context.Context) error
	Close() error
}

// PredictionLog is the append-only record of predictions. Only the inference
// engine appends; readers see committed entries only.
type PredictionLog interface {
	Append(ctx context.Context, rec models.PredictionRecord) error
	Recent(ctx context.Context, n int) ([]models.PredictionRecord, error)
}

// AlertLog is the append-only record of drift alerts. Resolution happens
// through Resolve only, driven by an external caller.
type AlertLog interface {
	Append(ctx context.Context, alert models.DriftAlert) error
	Unresolved(ctx context.Context, limit int) ([]models.DriftAlert, error)
	Resolve(ctx context.Context, alertType string, before int64) error
}

// ModelStore holds the single-row active model deployment metadata.
type ModelStore interface {
	Active(ctx context.Context) (*models.ModelDeployment, error)
	Deploy(ctx context.Context, dep models.ModelDeployment) error
}

// Publisher pushes normalized ticks to the message bus.
type Publisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []models.Tick) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordTickIngested(exchange, symbol string)
	RecordFeedStatus(exchange string, status models.FeedStatus)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordPrediction(symbol string, value, confidence float64)
}
