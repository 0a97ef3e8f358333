package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	xlogger "QuantPulse/pkg/logger"
)

// Tick timestamps from independent feeds are bucketed to this resolution for
// dedup; exact-timestamp matching would miss near-duplicates.
const dedupBucketMs = 10

// AggregateResult is one cycle's merged view across all feeds.
type AggregateResult struct {
	Ticks      []models.Tick
	OrderBooks []models.OrderBookSnapshot
	FeedStatus map[string]models.FeedHealth
	Timestamp  int64
}

// FeedAggregator fans one fetch out per feed, waits for all of them, and
// merges the results into a deduplicated, time-ordered snapshot. A failing
// feed degrades only its own health entry.
type FeedAggregator struct {
	feeds      []domrepo.Feed
	timeout    time.Duration
	staleBelow int // ticks per cycle under which a feed reports stale
	logger     *xlogger.Logger
	metrics    domrepo.Metrics
}

func NewFeedAggregator(feeds []domrepo.Feed, timeout time.Duration, staleBelow int, logger *xlogger.Logger, metrics domrepo.Metrics) *FeedAggregator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FeedAggregator{
		feeds:      feeds,
		timeout:    timeout,
		staleBelow: staleBelow,
		logger:     logger,
		metrics:    metrics,
	}
}

// Aggregate runs one fetch cycle over the selected exchanges (all configured
// feeds when exchanges is empty). The merge only starts after every feed has
// completed or timed out, so dedup always sees a consistent snapshot.
func (a *FeedAggregator) Aggregate(ctx context.Context, symbols, exchanges []string) (*AggregateResult, error) {
	feeds := a.selectFeeds(exchanges)

	type item struct {
		name string
		res  *domrepo.FeedResult
		err  error
	}
	ch := make(chan item, len(feeds))
	var wg sync.WaitGroup

	for _, feed := range feeds {
		wg.Add(1)
		go func(f domrepo.Feed) {
			defer wg.Done()
			fctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			res, err := f.Fetch(fctx, symbols)
			ch <- item{f.Name(), res, err}
		}(feed)
	}

	go func() { wg.Wait(); close(ch) }()

	res := &AggregateResult{
		FeedStatus: make(map[string]models.FeedHealth, len(feeds)),
		Timestamp:  time.Now().UnixMilli(),
	}
	var pooled []models.Tick
	var books []models.OrderBookSnapshot

	for it := range ch {
		if it.err != nil {
			a.metrics.RecordError("feed_fetch")
			a.metrics.RecordFeedStatus(it.name, models.FeedError)
			a.logger.Warn("feed fetch failed",
				xlogger.String("feed", it.name),
				xlogger.Error(it.err),
			)
			res.FeedStatus[it.name] = models.FeedHealth{
				Exchange: it.name,
				Status:   models.FeedError,
				Error:    it.err.Error(),
			}
			continue
		}

		status := models.FeedConnected
		if len(it.res.Ticks) < a.staleBelow {
			status = models.FeedStale
		}
		a.metrics.RecordFeedStatus(it.name, status)
		res.FeedStatus[it.name] = models.FeedHealth{
			Exchange:     it.name,
			Status:       status,
			LatencyMs:    it.res.LatencyMs,
			MessageCount: len(it.res.Ticks) + len(it.res.OrderBooks),
		}
		pooled = append(pooled, it.res.Ticks...)
		books = append(books, it.res.OrderBooks...)
	}

	res.Ticks = dedupTicks(pooled)
	res.OrderBooks = mergeBooks(books)
	return res, nil
}

func (a *FeedAggregator) selectFeeds(exchanges []string) []domrepo.Feed {
	if len(exchanges) == 0 {
		return a.feeds
	}
	wanted := make(map[string]struct{}, len(exchanges))
	for _, ex := range exchanges {
		wanted[ex] = struct{}{}
	}
	out := make([]domrepo.Feed, 0, len(a.feeds))
	for _, f := range a.feeds {
		if _, ok := wanted[f.Name()]; ok {
			out = append(out, f)
		}
	}
	return out
}

type dedupKey struct {
	symbol   string
	exchange string
	bucket   int64
}

// dedupTicks sorts pooled ticks by timestamp (stable, arrival order breaks
// ties) and keeps the first tick per (symbol, exchange, 10ms bucket).
func dedupTicks(ticks []models.Tick) []models.Tick {
	if len(ticks) == 0 {
		return nil
	}
	sorted := make([]models.Tick, len(ticks))
	copy(sorted, ticks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	seen := make(map[dedupKey]struct{}, len(sorted))
	out := sorted[:0]
	for _, t := range sorted {
		key := dedupKey{t.Symbol, t.Exchange, t.Timestamp / dedupBucketMs}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// mergeBooks keeps the most recent snapshot per (symbol, exchange).
func mergeBooks(books []models.OrderBookSnapshot) []models.OrderBookSnapshot {
	if len(books) == 0 {
		return nil
	}
	type bookKey struct{ symbol, exchange string }
	latest := make(map[bookKey]models.OrderBookSnapshot, len(books))
	order := make([]bookKey, 0, len(books))
	for _, b := range books {
		key := bookKey{b.Symbol, b.Exchange}
		cur, ok := latest[key]
		if !ok {
			order = append(order, key)
			latest[key] = b
			continue
		}
		if b.Timestamp >= cur.Timestamp {
			latest[key] = b
		}
	}

	out := make([]models.OrderBookSnapshot, 0, len(latest))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out
}

// LatestBook returns the newest snapshot for a symbol across exchanges, or
// nil when none is present.
func LatestBook(books []models.OrderBookSnapshot, symbol string) *models.OrderBookSnapshot {
	var best *models.OrderBookSnapshot
	for i := range books {
		b := &books[i]
		if b.Symbol != symbol {
			continue
		}
		if best == nil || b.Timestamp > best.Timestamp {
			best = b
		}
	}
	return best
}
