package inference

import (
	"context"
	"errors"
	"math"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	domsvc "QuantPulse/internal/domain/service"
	xlogger "QuantPulse/pkg/logger"
)

// ErrNoActiveModel is returned when no scoring model is configured. It fails
// the request, not the process.
var ErrNoActiveModel = errors.New("no active model")

// Confidence floor added to |prediction| before capping.
const confidenceFloor = 0.1

// Observer receives every successful prediction inline, before the engine
// returns. Used by the drift monitor's point-in-time checks.
type Observer interface {
	Observe(rec models.PredictionRecord, volatility float64)
}

// Options bound the engine's confidence caps and latency budget.
type Options struct {
	ConfidenceCap    float64 // full path, default 0.95
	StreamCap        float64 // streaming path, default 0.90
	LatencyAvgTarget time.Duration
	LatencyP95Target time.Duration
}

// Prediction is the outcome of one scoring call.
type Prediction struct {
	Symbol       string  `json:"symbol"`
	Value        float64 `json:"prediction"`
	Confidence   float64 `json:"confidence"`
	LatencyMs    float64 `json:"latency_ms"`
	ModelVersion string  `json:"model_version"`
}

// Engine normalizes features, scores them through the pluggable model, and
// clamps the activation through tanh so predictions stay in [-1,1]. The
// latency budget is monitored, never enforced: a late prediction is still
// returned.
type Engine struct {
	model    domsvc.Model
	log      domrepo.PredictionLog
	metrics  domrepo.Metrics
	logger   *xlogger.Logger
	observer Observer
	opts     Options
	lat      *latencyWindow
}

func NewEngine(model domsvc.Model, predLog domrepo.PredictionLog, metrics domrepo.Metrics, logger *xlogger.Logger, opts Options) *Engine {
	if opts.ConfidenceCap <= 0 {
		opts.ConfidenceCap = 0.95
	}
	if opts.StreamCap <= 0 {
		opts.StreamCap = 0.90
	}
	if opts.LatencyAvgTarget <= 0 {
		opts.LatencyAvgTarget = 2 * time.Millisecond
	}
	if opts.LatencyP95Target <= 0 {
		opts.LatencyP95Target = 5 * time.Millisecond
	}
	return &Engine{
		model:   model,
		log:     predLog,
		metrics: metrics,
		logger:  logger,
		opts:    opts,
		lat:     newLatencyWindow(4096),
	}
}

// SetObserver attaches the inline drift observer. Must be called before
// serving; not safe to change concurrently with Predict.
func (e *Engine) SetObserver(o Observer) { e.observer = o }

// Predict scores one feature vector on the full path.
func (e *Engine) Predict(ctx context.Context, fv *models.FeatureVector) (*Prediction, error) {
	return e.predict(ctx, fv, e.opts.ConfidenceCap)
}

// PredictStream scores one reduced feature vector on the fast path with the
// lower confidence cap.
func (e *Engine) PredictStream(ctx context.Context, fv *models.FeatureVector) (*Prediction, error) {
	return e.predict(ctx, fv, e.opts.StreamCap)
}

func (e *Engine) predict(ctx context.Context, fv *models.FeatureVector, cap float64) (*Prediction, error) {
	if e.model == nil {
		return nil, ErrNoActiveModel
	}
	start := time.Now()

	norm := normalizeFeatures(fv.Features)
	raw := e.model.Score(norm)
	value := math.Tanh(raw)
	confidence := math.Abs(value) + confidenceFloor
	if confidence > cap {
		confidence = cap
	}

	elapsed := time.Since(start)
	latMs := float64(elapsed) / float64(time.Millisecond)
	e.lat.add(latMs)
	e.metrics.RecordLatency("predict", elapsed.Seconds())
	e.metrics.RecordPrediction(fv.Symbol, value, confidence)

	if elapsed > e.opts.LatencyP95Target {
		e.logger.Warn("prediction exceeded latency budget",
			xlogger.String("symbol", fv.Symbol),
			xlogger.Float64("latency_ms", latMs),
			xlogger.Duration("budget_ms", e.opts.LatencyP95Target),
		)
	}

	rec := models.PredictionRecord{
		Symbol:       fv.Symbol,
		Prediction:   value,
		Confidence:   confidence,
		LatencyMs:    latMs,
		Timestamp:    time.Now().UnixMilli(),
		ModelVersion: e.model.Version(),
		Features:     fv.Features,
	}

	// A failed log write never blocks returning the prediction.
	if err := e.log.Append(ctx, rec); err != nil {
		e.metrics.RecordError("prediction_log_append")
		e.logger.Error("prediction log append failed",
			xlogger.String("symbol", fv.Symbol),
			xlogger.Error(err),
		)
	}

	if e.observer != nil {
		e.observer.Observe(rec, fv.Get(models.FeatVolatility))
	}

	return &Prediction{
		Symbol:       fv.Symbol,
		Value:        value,
		Confidence:   confidence,
		LatencyMs:    latMs,
		ModelVersion: e.model.Version(),
	}, nil
}

// BatchItem is one entry of a batch result; Error is set on per-item failure.
type BatchItem struct {
	Symbol     string      `json:"symbol"`
	Prediction *Prediction `json:"prediction,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// BatchResult carries per-item outcomes plus aggregate latency. Partial
// success is the norm: failed items are reported, not fatal.
type BatchResult struct {
	Items            []BatchItem `json:"items"`
	ErrorCount       int         `json:"error_count"`
	AggregateLatency float64     `json:"aggregate_latency_ms"`
}

// PredictBatch scores a sequence of feature vectors sequentially against the
// loaded model.
func (e *Engine) PredictBatch(ctx context.Context, fvs []*models.FeatureVector) (*BatchResult, error) {
	if e.model == nil {
		return nil, ErrNoActiveModel
	}
	start := time.Now()
	res := &BatchResult{Items: make([]BatchItem, 0, len(fvs))}
	for _, fv := range fvs {
		p, err := e.Predict(ctx, fv)
		if err != nil {
			res.Items = append(res.Items, BatchItem{Symbol: fv.Symbol, Error: err.Error()})
			res.ErrorCount++
			continue
		}
		res.Items = append(res.Items, BatchItem{Symbol: fv.Symbol, Prediction: p})
	}
	res.AggregateLatency = float64(time.Since(start)) / float64(time.Millisecond)
	return res, nil
}

// StreamPrediction is the trimmed fast-path result emitted once per appended
// tick. The model version is lifted to the enclosing StreamResult.
type StreamPrediction struct {
	Value      float64 `json:"prediction"`
	Confidence float64 `json:"confidence"`
	LatencyMs  float64 `json:"latency_ms"`
}

// StreamResult carries one fast-path prediction per submitted tick plus the
// size of the symbol's buffer after the append.
type StreamResult struct {
	Symbol       string             `json:"symbol"`
	Predictions  []StreamPrediction `json:"predictions"`
	BufferSize   int                `json:"buffer_size"`
	ModelVersion string             `json:"model_version"`
}

// ModelVersion returns the active model's version, or "" when none is set.
func (e *Engine) ModelVersion() string {
	if e.model == nil {
		return ""
	}
	return e.model.Version()
}

// LatencyStats reports (avgMs, p95Ms, sampleSize) over the trailing span.
func (e *Engine) LatencyStats(span time.Duration) (float64, float64, int) {
	return e.lat.statsSince(time.Now().Add(-span))
}

// Per-feature normalization scales. Each feature is divided by its scale and
// clamped to [-1,1] so no single input can saturate the activation.
var featureScales = map[string]float64{
	models.FeatMomentum:      0.05,  // 5% move saturates
	models.FeatVolatility:    0.05,  // 5% stddev saturates
	models.FeatFlowImbalance: 1,     // already in [-1,1]
	models.FeatSmartMoney:    1,     // already in [-1,1]
	models.FeatSpread:        1.0,   // absolute quote spread
	models.FeatBidAskSpread:  1.0,   // absolute book spread
	models.FeatPriceSMARatio: 0.02,  // ratio distance from 1
	models.FeatVolumeSMA:     10000, // raw volume scale
}

func normalizeFeatures(feats map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(feats))
	for name, v := range feats {
		scale, ok := featureScales[name]
		if !ok {
			continue // unscaled inputs (raw price/volume) stay out of the score
		}
		if name == models.FeatPriceSMARatio {
			v = v - 1 // centered: above/below the moving average
		}
		v = v / scale
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[name] = v
	}
	return out
}
