package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
)

type fakeTickStore struct {
	ticks  []models.Tick
	books  []models.OrderBookSnapshot
	counts map[string]int
	err    error
}

func (f *fakeTickStore) StoreTicks(_ context.Context, ticks []models.Tick) error {
	if f.err != nil {
		return f.err
	}
	f.ticks = append(f.ticks, ticks...)
	return nil
}

func (f *fakeTickStore) StoreBooks(_ context.Context, books []models.OrderBookSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.books = append(f.books, books...)
	return nil
}

func (f *fakeTickStore) TickCounts(_ context.Context, _ time.Time) (map[string]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.counts, nil
}

func (f *fakeTickStore) Health(_ context.Context) error { return f.err }
func (f *fakeTickStore) Close() error                   { return nil }

type fakePublisher struct {
	published []models.Tick
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, t *models.Tick) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, *t)
	return nil
}

func (f *fakePublisher) PublishBatch(_ context.Context, ticks []models.Tick) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, ticks...)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func testCycle(t *testing.T, feed domrepo.Feed, store *fakeTickStore, pub *fakePublisher, buffers *TickBuffers) *IngestionCycle {
	t.Helper()
	agg := NewFeedAggregator([]domrepo.Feed{feed}, time.Second, 0, testLogger(t), nopMetrics{})
	return NewIngestionCycle(agg, store, pub, buffers, nopMetrics{}, testLogger(t))
}

func TestCycleStoresPublishesAndBuffers(t *testing.T) {
	feed := &fakeFeed{name: "binance", res: &domrepo.FeedResult{
		Ticks: []models.Tick{
			tick("AAPL", "binance", 1000, 150),
			tick("AAPL", "binance", 2000, 151),
		},
		OrderBooks: []models.OrderBookSnapshot{
			{Symbol: "AAPL", Exchange: "binance", Timestamp: 2000},
		},
	}}
	store := &fakeTickStore{}
	pub := &fakePublisher{}
	buffers := NewTickBuffers(10)
	cycle := testCycle(t, feed, store, pub, buffers)

	res, err := cycle.Run(context.Background(), []string{"AAPL"}, nil)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if res.TickCount != 2 || res.OrderBookCount != 1 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if len(store.ticks) != 2 || len(store.books) != 1 {
		t.Fatalf("store got %d ticks / %d books", len(store.ticks), len(store.books))
	}
	if len(pub.published) != 2 {
		t.Fatalf("publisher got %d ticks", len(pub.published))
	}
	if buffers.Len("AAPL") != 2 {
		t.Fatalf("buffer got %d ticks", buffers.Len("AAPL"))
	}
	if cycle.LatestBook("AAPL") == nil {
		t.Fatal("expected latest book retained")
	}
}

func TestCycleSurvivesStoreFailure(t *testing.T) {
	feed := &fakeFeed{name: "binance", res: &domrepo.FeedResult{
		Ticks: []models.Tick{tick("AAPL", "binance", 1000, 150)},
	}}
	store := &fakeTickStore{err: errors.New("clickhouse down")}
	buffers := NewTickBuffers(10)
	cycle := testCycle(t, feed, store, &fakePublisher{}, buffers)

	res, err := cycle.Run(context.Background(), []string{"AAPL"}, nil)
	if err != nil {
		t.Fatalf("cycle should degrade, not fail: %v", err)
	}
	if res.TickCount != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	// Inference keeps working from memory even when storage is down.
	if buffers.Len("AAPL") != 1 {
		t.Fatalf("buffer got %d ticks", buffers.Len("AAPL"))
	}
}
