package features

import (
	"errors"
	"math"
	"testing"

	"QuantPulse/internal/domain/models"
)

func tickWindow(n int, base float64) []models.Tick {
	out := make([]models.Tick, n)
	for i := range out {
		out[i] = models.Tick{
			Symbol:    "AAPL",
			Exchange:  "binance",
			Price:     base + float64(i),
			Volume:    10,
			Timestamp: int64(1000 + i*100),
		}
	}
	return out
}

func TestExtractInsufficientData(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(tickWindow(9, 100), nil)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestExtractTenTicks(t *testing.T) {
	e := NewExtractor()
	fv, err := e.Extract(tickWindow(10, 100), nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	sma10 := fv.Get(models.FeatSMA10)
	if math.IsNaN(sma10) || math.IsInf(sma10, 0) {
		t.Fatalf("sma_10 not finite: %v", sma10)
	}
	// prices 100..109, mean 104.5
	if math.Abs(sma10-104.5) > 1e-9 {
		t.Fatalf("sma_10 = %v, want 104.5", sma10)
	}
	// sma_5 over 105..109
	if got := fv.Get(models.FeatSMA5); math.Abs(got-107) > 1e-9 {
		t.Fatalf("sma_5 = %v, want 107", got)
	}
	if got := fv.Get(models.FeatMomentum); math.Abs(got-0.09) > 1e-9 {
		t.Fatalf("momentum = %v, want 0.09", got)
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor()
	book := &models.OrderBookSnapshot{
		Symbol:   "AAPL",
		Exchange: "binance",
		Bids:     []models.BookLevel{{Price: 108.9, Size: 5}, {Price: 108.8, Size: 3}},
		Asks:     []models.BookLevel{{Price: 109.1, Size: 2}, {Price: 109.2, Size: 4}},
	}
	w := tickWindow(12, 100)
	a, err := e.Extract(w, book)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	b, err := e.Extract(w, book)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(a.Features) != len(b.Features) {
		t.Fatalf("feature count differs: %d vs %d", len(a.Features), len(b.Features))
	}
	for k, v := range a.Features {
		if b.Features[k] != v {
			t.Fatalf("feature %s differs: %v vs %v", k, v, b.Features[k])
		}
	}
}

func TestFlowImbalanceBounds(t *testing.T) {
	book := &models.OrderBookSnapshot{
		Bids: []models.BookLevel{{Price: 10, Size: 100}},
		Asks: []models.BookLevel{},
	}
	if got := FlowImbalance(book, TopLevels); got != 1 {
		t.Fatalf("one-sided book imbalance = %v, want 1", got)
	}
	empty := &models.OrderBookSnapshot{}
	if got := FlowImbalance(empty, TopLevels); got != 0 {
		t.Fatalf("empty book imbalance = %v, want 0", got)
	}
}

func TestExtractEmptyBookFinite(t *testing.T) {
	e := NewExtractor()
	fv, err := e.Extract(tickWindow(10, 100), &models.OrderBookSnapshot{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for k, v := range fv.Features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("feature %s not finite: %v", k, v)
		}
	}
	if fv.Get(models.FeatBidAskSpread) != 0 {
		t.Fatalf("empty book spread should be 0")
	}
}

func TestExtractStreamReducedSet(t *testing.T) {
	e := NewExtractor()
	fv, err := e.ExtractStream(tickWindow(8, 50))
	if err != nil {
		t.Fatalf("extract stream: %v", err)
	}
	for _, name := range []string{models.FeatPrice, models.FeatVolume, models.FeatSpread, models.FeatMomentum, models.FeatVolatility} {
		if _, ok := fv.Features[name]; !ok {
			t.Fatalf("missing stream feature %s", name)
		}
	}
	// only the trailing 5 are used: momentum from window[3] (price 53) to 57
	want := (57.0 - 53.0) / 53.0
	if got := fv.Get(models.FeatMomentum); math.Abs(got-want) > 1e-9 {
		t.Fatalf("stream momentum = %v, want %v", got, want)
	}
}

func TestExtractStreamEmpty(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractStream(nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestVolatilityConstantPrices(t *testing.T) {
	w := tickWindow(10, 100)
	for i := range w {
		w[i].Price = 100
	}
	if got := Volatility(w); got != 0 {
		t.Fatalf("constant price volatility = %v, want 0", got)
	}
}
