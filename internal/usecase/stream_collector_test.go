package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"
	mid "QuantPulse/internal/middleware"
)

// scriptedStream hands out fresh channels on every Read call. Each session's
// script is played into the channels, then both are closed the way the real
// reader does on a failure.
type scriptedStream struct {
	mu         sync.Mutex
	sessions   [][]*models.Tick
	failAfter  []bool
	readCalls  int
	reconnects int
	connected  bool
}

func (s *scriptedStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *scriptedStream) Subscribe(context.Context) error { return nil }

func (s *scriptedStream) Read(context.Context) (<-chan *models.Tick, <-chan error) {
	s.mu.Lock()
	session := s.readCalls
	s.readCalls++
	s.mu.Unlock()

	ticks := make(chan *models.Tick, 16)
	errs := make(chan error, 1)
	go func() {
		if session < len(s.sessions) {
			for _, t := range s.sessions[session] {
				ticks <- t
			}
		}
		if session < len(s.failAfter) && s.failAfter[session] {
			errs <- fmt.Errorf("stream read: connection lost")
			close(ticks)
			close(errs)
		}
	}()
	return ticks, errs
}

func (s *scriptedStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	s.connected = true
	return nil
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *scriptedStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *scriptedStream) stats() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readCalls, s.reconnects
}

// chanSink forwards processed ticks to a channel so tests can wait on them.
type chanSink struct {
	out chan *models.Tick
}

func (s *chanSink) Process(_ context.Context, t *models.Tick) error {
	s.out <- t
	return nil
}

func waitTick(t *testing.T, ch <-chan *models.Tick) *models.Tick {
	t.Helper()
	select {
	case tk := <-ch:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for processed tick")
		return nil
	}
}

func TestStreamCollectorResumesAfterReadFailure(t *testing.T) {
	stream := &scriptedStream{
		sessions: [][]*models.Tick{
			{{Symbol: "AAPL", Exchange: "binance", Price: 100, Volume: 1, Timestamp: 1000}},
			{{Symbol: "MSFT", Exchange: "binance", Price: 300, Volume: 1, Timestamp: 2000}},
		},
		failAfter: []bool{true, false},
	}
	sink := &chanSink{out: make(chan *models.Tick, 16)}
	pipe := mid.NewTickPipeline(sink, nopMetrics{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewStreamCollector(stream, nopMetrics{}, pipe)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = c.Shutdown(context.Background()) }()

	first := waitTick(t, sink.out)
	if first.Symbol != "AAPL" {
		t.Fatalf("unexpected first tick %q", first.Symbol)
	}

	// The first session errors out and closes its channels; the collector
	// must reconnect and drain the second session's tick.
	second := waitTick(t, sink.out)
	if second.Symbol != "MSFT" {
		t.Fatalf("unexpected tick after reconnect %q", second.Symbol)
	}

	reads, reconnects := stream.stats()
	if reconnects != 1 {
		t.Fatalf("expected 1 reconnect, got %d", reconnects)
	}
	if reads != 2 {
		t.Fatalf("expected a fresh read per session, got %d", reads)
	}
}
