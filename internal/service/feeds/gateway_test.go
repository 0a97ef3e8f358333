package feeds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"
	"QuantPulse/internal/service/ratelimit"
	"QuantPulse/internal/services/normalizer"
	xlogger "QuantPulse/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordTickIngested(string, string)          {}
func (nopMetrics) RecordFeedStatus(string, models.FeedStatus) {}
func (nopMetrics) RecordError(string)                         {}
func (nopMetrics) RecordLastPrice(string, float64)            {}
func (nopMetrics) RecordLatency(string, float64)              {}
func (nopMetrics) RecordPrediction(string, float64, float64)  {}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func gatewayServer(t *testing.T, resp gatewayResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbols") == "" {
			t.Errorf("missing symbols query param")
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode: %v", err)
		}
	}))
}

func TestGatewayFeedFetchNormalizes(t *testing.T) {
	bid, ask := 100.0, 100.2
	srv := gatewayServer(t, gatewayResponse{
		Ticks: []normalizer.RawTick{
			{Symbol: "BTCUSDT", Price: 100.1, Volume: 2, Timestamp: 1700000000000, Bid: &bid, Ask: &ask},
			{Symbol: "BTCUSDT", Price: -5, Volume: 1, Timestamp: 1700000000001}, // dropped
		},
		OrderBooks: []normalizer.RawBook{
			{
				Symbol:    "BTCUSDT",
				Bids:      []normalizer.RawBookLevel{{Price: 100.0, Size: 1}},
				Asks:      []normalizer.RawBookLevel{{Price: 100.2, Size: 1}},
				Timestamp: 1700000000000,
			},
		},
	})
	defer srv.Close()

	f := NewGatewayFeed("binance", srv.URL, nil, RateConfig{}, time.Second, testLogger(t), nopMetrics{})
	res, err := f.Fetch(context.Background(), []string{"BTCUSDT"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(res.Ticks) != 1 {
		t.Fatalf("expected malformed tick dropped, got %d ticks", len(res.Ticks))
	}
	tick := res.Ticks[0]
	if tick.Exchange != "binance" || !tick.HasQuote {
		t.Fatalf("unexpected tick %+v", tick)
	}
	if tick.Spread <= 0 {
		t.Fatalf("expected derived spread, got %v", tick.Spread)
	}
	if len(res.OrderBooks) != 1 {
		t.Fatalf("expected 1 book, got %d", len(res.OrderBooks))
	}
	if res.LatencyMs < 0 {
		t.Fatalf("negative latency %v", res.LatencyMs)
	}
}

func TestGatewayFeedRateLimitedReportsEmpty(t *testing.T) {
	srv := gatewayServer(t, gatewayResponse{})
	defer srv.Close()

	lim := ratelimit.New()
	f := NewGatewayFeed("kraken", srv.URL, lim, RateConfig{Capacity: 1, RefillPerSec: 0}, time.Second, testLogger(t), nopMetrics{})

	if _, err := f.Fetch(context.Background(), []string{"BTCUSDT"}); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	res, err := f.Fetch(context.Background(), []string{"BTCUSDT"})
	if err != nil {
		t.Fatalf("rate-limited fetch should not error, got %v", err)
	}
	if len(res.Ticks) != 0 || len(res.OrderBooks) != 0 {
		t.Fatalf("expected empty result when rate limited, got %+v", res)
	}
}

func TestGatewayFeedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewGatewayFeed("binance", srv.URL, nil, RateConfig{}, time.Second, testLogger(t), nopMetrics{})
	if _, err := f.Fetch(context.Background(), []string{"BTCUSDT"}); err == nil {
		t.Fatalf("expected error on 500")
	}
}
