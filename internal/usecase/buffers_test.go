package usecase

import (
	"sync"
	"testing"

	"QuantPulse/internal/domain/models"
)

func TestBufferEvictsOldest(t *testing.T) {
	b := NewTickBuffers(3)
	for i := int64(1); i <= 5; i++ {
		b.Append(tick("AAPL", "binance", i*1000, float64(100+i)))
	}

	snap := b.Snapshot("AAPL")
	if len(snap) != 3 {
		t.Fatalf("expected window of 3, got %d", len(snap))
	}
	if snap[0].Timestamp != 3000 || snap[2].Timestamp != 5000 {
		t.Fatalf("unexpected window %+v", snap)
	}
}

func TestBufferSnapshotIsCopy(t *testing.T) {
	b := NewTickBuffers(10)
	b.Append(tick("AAPL", "binance", 1000, 100))

	snap := b.Snapshot("AAPL")
	snap[0].Price = 999

	if got := b.Snapshot("AAPL")[0].Price; got != 100 {
		t.Fatalf("buffer state mutated through snapshot: %v", got)
	}
}

func TestBufferUnknownSymbol(t *testing.T) {
	b := NewTickBuffers(10)
	if snap := b.Snapshot("TSLA"); snap != nil {
		t.Fatalf("expected nil for unknown symbol, got %+v", snap)
	}
	if b.Len("TSLA") != 0 {
		t.Fatal("expected zero length for unknown symbol")
	}
}

func TestBufferConcurrentAppends(t *testing.T) {
	b := NewTickBuffers(100)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				b.Append(tick("AAPL", "binance", int64(w*1000+i+1), 100))
			}
		}(w)
	}
	wg.Wait()

	if got := b.Len("AAPL"); got != 100 {
		t.Fatalf("expected full window of 100, got %d", got)
	}
	if got := len(b.Snapshot("AAPL")); got != 100 {
		t.Fatalf("expected snapshot of 100, got %d", got)
	}
}

func TestBufferSymbolsIsolated(t *testing.T) {
	b := NewTickBuffers(10)
	b.AppendBatch([]models.Tick{
		tick("AAPL", "binance", 1000, 100),
		tick("MSFT", "binance", 1000, 300),
	})

	if len(b.Snapshot("AAPL")) != 1 || len(b.Snapshot("MSFT")) != 1 {
		t.Fatal("expected one tick per symbol")
	}
	if got := len(b.Symbols()); got != 2 {
		t.Fatalf("expected 2 symbols, got %d", got)
	}
}
