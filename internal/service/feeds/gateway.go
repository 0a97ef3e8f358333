package feeds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"QuantPulse/internal/domain/repository"
	"QuantPulse/internal/service/ratelimit"
	"QuantPulse/internal/services/normalizer"
	phttp "QuantPulse/pkg/http"
	xlogger "QuantPulse/pkg/logger"
)

// gatewayResponse is the feed gateway's wire envelope for one exchange pull.
type gatewayResponse struct {
	Ticks      []normalizer.RawTick `json:"ticks"`
	OrderBooks []normalizer.RawBook `json:"order_books"`
}

// RateConfig is the per-feed token bucket.
type RateConfig struct {
	Capacity     float64
	RefillPerSec float64
}

// GatewayFeed pulls one exchange's snapshot from the HTTP feed gateway and
// normalizes it into canonical ticks and books. One GatewayFeed per exchange;
// a failed pull reports an error and never affects sibling feeds.
type GatewayFeed struct {
	exchange string
	baseURL  string
	client   *phttp.Client
	limiter  *ratelimit.Limiter
	rate     RateConfig
	timeout  time.Duration
	logger   *xlogger.Logger
	metrics  repository.Metrics
}

func NewGatewayFeed(exchange, baseURL string, limiter *ratelimit.Limiter, rate RateConfig, timeout time.Duration, logger *xlogger.Logger, metrics repository.Metrics) *GatewayFeed {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GatewayFeed{
		exchange: exchange,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   phttp.NewClient(phttp.WithTimeout(timeout)),
		limiter:  limiter,
		rate:     rate,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}
}

func (f *GatewayFeed) Name() string { return f.exchange }

// Fetch pulls the exchange snapshot for the requested symbols. Records that
// fail normalization are dropped and counted; they never fail the pull.
func (f *GatewayFeed) Fetch(ctx context.Context, symbols []string) (*repository.FeedResult, error) {
	// A rate-limited pull contributes nothing this cycle, so the feed shows
	// up as stale rather than errored.
	if f.limiter != nil && !f.limiter.Allow(f.exchange, f.rate.Capacity, f.rate.RefillPerSec) {
		f.metrics.RecordError("feed_rate_limited")
		return &repository.FeedResult{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	var resp gatewayResponse
	err := f.client.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    fmt.Sprintf("%s/feeds/%s", f.baseURL, f.exchange),
		QueryParams: map[string][]string{
			"symbols": {strings.Join(symbols, ",")},
		},
	}, &resp)
	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", f.exchange, err)
	}

	result := &repository.FeedResult{LatencyMs: latencyMs}
	for _, raw := range resp.Ticks {
		tick, err := normalizer.NormalizeTick(f.exchange, raw)
		if err != nil {
			f.metrics.RecordError("tick_normalize")
			f.logger.Warn("dropping malformed tick",
				xlogger.String("exchange", f.exchange),
				xlogger.Error(err),
			)
			continue
		}
		result.Ticks = append(result.Ticks, tick)
	}
	for _, raw := range resp.OrderBooks {
		book, err := normalizer.NormalizeBook(f.exchange, raw)
		if err != nil {
			f.metrics.RecordError("book_normalize")
			f.logger.Warn("dropping malformed book",
				xlogger.String("exchange", f.exchange),
				xlogger.Error(err),
			)
			continue
		}
		result.OrderBooks = append(result.OrderBooks, book)
	}

	return result, nil
}
