package usecase

import (
	"context"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	mid "QuantPulse/internal/middleware"
)

// reconnectRetryDelay spaces out reconnect attempts after a failed one.
const reconnectRetryDelay = time.Second

// StreamCollector consumes the push-based tick stream and feeds it through
// the pipeline between scheduled cycles.
type StreamCollector struct {
	stream  domrepo.TickStream
	metrics domrepo.Metrics
	pipe    *mid.TickPipeline
}

func NewStreamCollector(stream domrepo.TickStream, metrics domrepo.Metrics, pipe *mid.TickPipeline) *StreamCollector {
	return &StreamCollector{stream: stream, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the tick stream is connected.
func (c *StreamCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *StreamCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

// consume drains the stream's channels. The reader closes both channels on a
// read failure, so once both are drained the collector reconnects and swaps
// in the fresh channels from a new Read.
func (c *StreamCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				break
			}
			if err != nil {
				c.metrics.RecordError("stream")
			}
		case t, ok := <-tickCh:
			if !ok {
				tickCh = nil
				break
			}
			if t == nil {
				continue
			}
			_ = c.pipe.Process(ctx, t)
			c.metrics.RecordLastPrice(t.Symbol, t.Price)
		}

		if tickCh == nil && errCh == nil {
			for c.stream.Reconnect(ctx) != nil {
				c.metrics.RecordError("stream_reconnect")
				select {
				case <-ctx.Done():
					return
				case <-time.After(reconnectRetryDelay):
				}
			}
			tickCh, errCh = c.stream.Read(ctx)
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *StreamCollector) Shutdown(ctx context.Context) error {
	c.pipe.Stop()
	return c.stream.Close()
}
