package usecase

import (
	"context"
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
)

// TickProcessor routes a single streamed tick to storage and the message bus
// and appends it to the trailing buffers. It is the sink behind the tick
// pipeline.
type TickProcessor struct {
	store     domrepo.TickStore
	publisher domrepo.Publisher
	buffers   *TickBuffers
	metrics   domrepo.Metrics
}

func NewTickProcessor(store domrepo.TickStore, publisher domrepo.Publisher, buffers *TickBuffers, metrics domrepo.Metrics) *TickProcessor {
	return &TickProcessor{
		store:     store,
		publisher: publisher,
		buffers:   buffers,
		metrics:   metrics,
	}
}

// Process handles one streamed tick. The buffer append happens before the
// external writes so the in-memory window never lags behind a slow sink.
func (p *TickProcessor) Process(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}
	start := time.Now()

	p.buffers.Append(*t)
	p.metrics.RecordTickIngested(t.Exchange, t.Symbol)

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, t); err != nil {
			p.metrics.RecordError("stream_publish")
			return fmt.Errorf("publish tick: %w", err)
		}
	}
	if p.store != nil {
		if err := p.store.StoreTicks(ctx, []models.Tick{*t}); err != nil {
			p.metrics.RecordError("stream_store")
			return fmt.Errorf("store tick: %w", err)
		}
	}

	p.metrics.RecordLatency("stream_process", time.Since(start).Seconds())
	return nil
}
