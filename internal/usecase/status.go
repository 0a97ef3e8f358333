package usecase

import (
	"context"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	"QuantPulse/internal/services/inference"
	xlogger "QuantPulse/pkg/logger"
)

// StatusOptions hold the health thresholds.
type StatusOptions struct {
	FeedWindow       time.Duration // tick-count lookback, default 5 min
	ModelMaxAge      time.Duration // staleness threshold, default 7 days
	LatencyWindow    time.Duration // inference stats lookback, default 1 hour
	LatencyAvgTarget time.Duration
	LatencyP95Target time.Duration
}

func (o *StatusOptions) defaults() {
	if o.FeedWindow <= 0 {
		o.FeedWindow = 5 * time.Minute
	}
	if o.ModelMaxAge <= 0 {
		o.ModelMaxAge = 7 * 24 * time.Hour
	}
	if o.LatencyWindow <= 0 {
		o.LatencyWindow = time.Hour
	}
	if o.LatencyAvgTarget <= 0 {
		o.LatencyAvgTarget = 2 * time.Millisecond
	}
	if o.LatencyP95Target <= 0 {
		o.LatencyP95Target = 5 * time.Millisecond
	}
}

// StatusAggregator composes feed throughput, model freshness, and inference
// latency into one verdict. Overall is a strict AND of the three checks.
type StatusAggregator struct {
	store  domrepo.TickStore
	dbmod  domrepo.ModelStore
	engine *inference.Engine
	logger *xlogger.Logger
	opts   StatusOptions
}

func NewStatusAggregator(store domrepo.TickStore, modelStore domrepo.ModelStore, engine *inference.Engine, logger *xlogger.Logger, opts StatusOptions) *StatusAggregator {
	opts.defaults()
	return &StatusAggregator{
		store:  store,
		dbmod:  modelStore,
		engine: engine,
		logger: logger,
		opts:   opts,
	}
}

// SystemStatus evaluates all three sub-checks. Check failures degrade the
// relevant sub-status to unhealthy rather than erroring the whole report.
func (s *StatusAggregator) SystemStatus(ctx context.Context) *models.SystemStatus {
	feeds := s.feedsStatus(ctx)
	model := s.modelStatus(ctx)
	infer := s.inferenceStatus()

	return &models.SystemStatus{
		DataFeeds: feeds,
		Model:     model,
		Inference: infer,
		Overall:   feeds.Healthy && model.Healthy && infer.Healthy,
		Timestamp: time.Now().UnixMilli(),
	}
}

func (s *StatusAggregator) feedsStatus(ctx context.Context) models.FeedsStatus {
	counts, err := s.store.TickCounts(ctx, time.Now().Add(-s.opts.FeedWindow))
	if err != nil {
		s.logger.Error("tick count query failed", xlogger.Error(err))
		return models.FeedsStatus{WindowSecs: int(s.opts.FeedWindow.Seconds())}
	}

	healthy := len(counts) > 0
	for _, n := range counts {
		if n == 0 {
			healthy = false
		}
	}
	return models.FeedsStatus{
		Healthy:    healthy,
		TickCounts: counts,
		WindowSecs: int(s.opts.FeedWindow.Seconds()),
	}
}

func (s *StatusAggregator) modelStatus(ctx context.Context) models.ModelStatus {
	maxAgeDays := s.opts.ModelMaxAge.Hours() / 24

	dep, err := s.dbmod.Active(ctx)
	if err != nil {
		s.logger.Error("active model query failed", xlogger.Error(err))
		return models.ModelStatus{MaxAgeDays: maxAgeDays}
	}
	if dep == nil {
		return models.ModelStatus{MaxAgeDays: maxAgeDays}
	}

	age := time.Since(dep.DeployedAt)
	return models.ModelStatus{
		Healthy:      age <= s.opts.ModelMaxAge,
		Version:      dep.Version,
		AgeDays:      age.Hours() / 24,
		MaxAgeDays:   maxAgeDays,
		ActiveExists: true,
	}
}

func (s *StatusAggregator) inferenceStatus() models.InferenceStatus {
	avgMs, p95Ms, n := s.engine.LatencyStats(s.opts.LatencyWindow)
	avgTarget := float64(s.opts.LatencyAvgTarget) / float64(time.Millisecond)
	p95Target := float64(s.opts.LatencyP95Target) / float64(time.Millisecond)

	// No samples in the window means the path is idle, not unhealthy.
	healthy := n == 0 || (avgMs <= avgTarget && p95Ms <= p95Target)
	return models.InferenceStatus{
		Healthy:     healthy,
		AvgMs:       avgMs,
		P95Ms:       p95Ms,
		AvgTargetMs: avgTarget,
		P95TargetMs: p95Target,
		SampleSize:  n,
	}
}
