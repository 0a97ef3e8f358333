package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	xlogger "QuantPulse/pkg/logger"
)

// IngestResult is the summary returned to the ingestion trigger.
type IngestResult struct {
	TickCount      int                          `json:"tickCount"`
	OrderBookCount int                          `json:"orderBookCount"`
	FeedStatus     map[string]models.FeedHealth `json:"feedStatus"`
	Timestamp      int64                        `json:"timestamp"`
}

// IngestionCycle runs one aggregate-store-publish pass. The scheduler drives
// it on an interval; the ingest endpoint drives it on demand.
type IngestionCycle struct {
	agg       *FeedAggregator
	store     domrepo.TickStore
	publisher domrepo.Publisher
	buffers   *TickBuffers
	metrics   domrepo.Metrics
	logger    *xlogger.Logger

	mu        sync.RWMutex
	lastBooks []models.OrderBookSnapshot
}

func NewIngestionCycle(agg *FeedAggregator, store domrepo.TickStore, publisher domrepo.Publisher, buffers *TickBuffers, metrics domrepo.Metrics, logger *xlogger.Logger) *IngestionCycle {
	return &IngestionCycle{
		agg:       agg,
		store:     store,
		publisher: publisher,
		buffers:   buffers,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run executes one cycle for the given symbols. Storage and publish failures
// degrade the cycle (logged, counted) but the trailing buffers are always
// updated so inference keeps working from memory.
func (c *IngestionCycle) Run(ctx context.Context, symbols, exchanges []string) (*IngestResult, error) {
	start := time.Now()

	agg, err := c.agg.Aggregate(ctx, symbols, exchanges)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	c.buffers.AppendBatch(agg.Ticks)
	c.mu.Lock()
	c.lastBooks = agg.OrderBooks
	c.mu.Unlock()
	for _, t := range agg.Ticks {
		c.metrics.RecordTickIngested(t.Exchange, t.Symbol)
		c.metrics.RecordLastPrice(t.Symbol, t.Price)
	}

	if len(agg.Ticks) > 0 {
		if err := c.store.StoreTicks(ctx, agg.Ticks); err != nil {
			c.metrics.RecordError("store_ticks")
			c.logger.Error("tick store failed", xlogger.Error(err))
		}
		if c.publisher != nil {
			if err := c.publisher.PublishBatch(ctx, agg.Ticks); err != nil {
				c.metrics.RecordError("publish_ticks")
				c.logger.Error("tick publish failed", xlogger.Error(err))
			}
		}
	}
	if len(agg.OrderBooks) > 0 {
		if err := c.store.StoreBooks(ctx, agg.OrderBooks); err != nil {
			c.metrics.RecordError("store_books")
			c.logger.Error("book store failed", xlogger.Error(err))
		}
	}

	c.metrics.RecordLatency("ingest_cycle", time.Since(start).Seconds())
	c.logger.Info("ingestion cycle complete",
		xlogger.Int("ticks", len(agg.Ticks)),
		xlogger.Int("books", len(agg.OrderBooks)),
		xlogger.Int("feeds", len(agg.FeedStatus)),
	)

	return &IngestResult{
		TickCount:      len(agg.Ticks),
		OrderBookCount: len(agg.OrderBooks),
		FeedStatus:     agg.FeedStatus,
		Timestamp:      agg.Timestamp,
	}, nil
}

// LatestBook returns the newest merged snapshot for a symbol from the most
// recent cycle, or nil when none has been seen yet.
func (c *IngestionCycle) LatestBook(symbol string) *models.OrderBookSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return LatestBook(c.lastBooks, symbol)
}
