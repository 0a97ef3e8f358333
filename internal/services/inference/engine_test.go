package inference

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"
	xlogger "QuantPulse/pkg/logger"
)

type fakePredictionLog struct {
	recs []models.PredictionRecord
	err  error
}

func (f *fakePredictionLog) Append(_ context.Context, rec models.PredictionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakePredictionLog) Recent(_ context.Context, n int) ([]models.PredictionRecord, error) {
	if n > len(f.recs) {
		n = len(f.recs)
	}
	return f.recs[len(f.recs)-n:], nil
}

type nopMetrics struct{}

func (nopMetrics) RecordTickIngested(string, string)          {}
func (nopMetrics) RecordFeedStatus(string, models.FeedStatus) {}
func (nopMetrics) RecordError(string)                         {}
func (nopMetrics) RecordLastPrice(string, float64)            {}
func (nopMetrics) RecordLatency(string, float64)              {}
func (nopMetrics) RecordPrediction(string, float64, float64)  {}

type captureObserver struct {
	recs []models.PredictionRecord
	vols []float64
}

func (c *captureObserver) Observe(rec models.PredictionRecord, vol float64) {
	c.recs = append(c.recs, rec)
	c.vols = append(c.vols, vol)
}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	lg, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lg
}

func testEngine(t *testing.T, predLog *fakePredictionLog) *Engine {
	t.Helper()
	if predLog == nil {
		predLog = &fakePredictionLog{}
	}
	return NewEngine(NewLinearModel(""), predLog, nopMetrics{}, testLogger(t), Options{})
}

func featureVec(symbol string, feats map[string]float64) *models.FeatureVector {
	return &models.FeatureVector{Symbol: symbol, Timestamp: time.Now().UnixMilli(), Features: feats}
}

func TestPredictBounded(t *testing.T) {
	eng := testEngine(t, nil)

	p, err := eng.Predict(context.Background(), featureVec("BTCUSD", map[string]float64{
		models.FeatMomentum:      0.2, // saturates
		models.FeatFlowImbalance: 1,
		models.FeatSmartMoney:    1,
		models.FeatPriceSMARatio: 1.05,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Value < -1 || p.Value > 1 {
		t.Fatalf("prediction out of range: %v", p.Value)
	}
	if p.Confidence > 0.95 {
		t.Fatalf("confidence above cap: %v", p.Confidence)
	}
	if p.ModelVersion != "linear-v1" {
		t.Fatalf("unexpected model version %q", p.ModelVersion)
	}
}

func TestPredictConfidenceFromMagnitude(t *testing.T) {
	eng := testEngine(t, nil)

	p, err := eng.Predict(context.Background(), featureVec("ETHUSD", map[string]float64{
		models.FeatMomentum: 0,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Zero inputs score zero; confidence sits at the floor.
	if p.Value != 0 {
		t.Fatalf("expected zero prediction, got %v", p.Value)
	}
	if math.Abs(p.Confidence-0.1) > 1e-12 {
		t.Fatalf("expected floor confidence 0.1, got %v", p.Confidence)
	}
}

func TestPredictStreamLowerCap(t *testing.T) {
	eng := testEngine(t, nil)
	fv := featureVec("BTCUSD", map[string]float64{
		models.FeatMomentum:      0.2,
		models.FeatFlowImbalance: 1,
		models.FeatSmartMoney:    1,
		models.FeatPriceSMARatio: 1.05,
	})

	full, err := eng.Predict(context.Background(), fv)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	stream, err := eng.PredictStream(context.Background(), fv)
	if err != nil {
		t.Fatalf("predict stream: %v", err)
	}
	// All bullish inputs saturated: |tanh(1.15)|+0.1 ~ 0.918, which only the
	// stream cap clips.
	if full.Confidence <= 0.90 || full.Confidence > 0.95 {
		t.Fatalf("unexpected full confidence %v", full.Confidence)
	}
	if stream.Confidence != 0.90 {
		t.Fatalf("expected stream cap 0.90, got %v", stream.Confidence)
	}
}

func TestPredictNoModel(t *testing.T) {
	eng := NewEngine(nil, &fakePredictionLog{}, nopMetrics{}, testLogger(t), Options{})
	if _, err := eng.Predict(context.Background(), featureVec("BTCUSD", nil)); !errors.Is(err, ErrNoActiveModel) {
		t.Fatalf("expected ErrNoActiveModel, got %v", err)
	}
	if _, err := eng.PredictBatch(context.Background(), nil); !errors.Is(err, ErrNoActiveModel) {
		t.Fatalf("expected ErrNoActiveModel, got %v", err)
	}
}

func TestPredictLogAppendFailureIsSwallowed(t *testing.T) {
	predLog := &fakePredictionLog{err: errors.New("clickhouse down")}
	eng := testEngine(t, predLog)

	p, err := eng.Predict(context.Background(), featureVec("BTCUSD", map[string]float64{models.FeatMomentum: 0.01}))
	if err != nil {
		t.Fatalf("prediction should survive log failure, got %v", err)
	}
	if p == nil {
		t.Fatal("expected a prediction")
	}
}

func TestPredictAppendsRecord(t *testing.T) {
	predLog := &fakePredictionLog{}
	eng := testEngine(t, predLog)

	if _, err := eng.Predict(context.Background(), featureVec("SOLUSD", map[string]float64{models.FeatMomentum: 0.01})); err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(predLog.recs) != 1 {
		t.Fatalf("expected 1 logged record, got %d", len(predLog.recs))
	}
	rec := predLog.recs[0]
	if rec.Symbol != "SOLUSD" || rec.ModelVersion != "linear-v1" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.LatencyMs < 0 {
		t.Fatalf("negative latency %v", rec.LatencyMs)
	}
}

func TestObserverSeesPrediction(t *testing.T) {
	eng := testEngine(t, nil)
	obs := &captureObserver{}
	eng.SetObserver(obs)

	if _, err := eng.Predict(context.Background(), featureVec("BTCUSD", map[string]float64{
		models.FeatMomentum:   0.01,
		models.FeatVolatility: 0.06,
	})); err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(obs.recs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs.recs))
	}
	if obs.vols[0] != 0.06 {
		t.Fatalf("expected volatility 0.06 passed through, got %v", obs.vols[0])
	}
}

func TestPredictBatchPartialSuccess(t *testing.T) {
	eng := testEngine(t, nil)
	fvs := []*models.FeatureVector{
		featureVec("BTCUSD", map[string]float64{models.FeatMomentum: 0.01}),
		featureVec("ETHUSD", map[string]float64{models.FeatMomentum: -0.01}),
	}

	res, err := eng.PredictBatch(context.Background(), fvs)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Items))
	}
	if res.ErrorCount != 0 {
		t.Fatalf("expected 0 errors, got %d", res.ErrorCount)
	}
	if res.AggregateLatency < 0 {
		t.Fatalf("negative aggregate latency %v", res.AggregateLatency)
	}
	if res.Items[0].Prediction.Value <= 0 || res.Items[1].Prediction.Value >= 0 {
		t.Fatalf("momentum sign not reflected: %v / %v",
			res.Items[0].Prediction.Value, res.Items[1].Prediction.Value)
	}
}

func TestLatencyStats(t *testing.T) {
	eng := testEngine(t, nil)
	for i := 0; i < 20; i++ {
		if _, err := eng.Predict(context.Background(), featureVec("BTCUSD", map[string]float64{models.FeatMomentum: 0.01})); err != nil {
			t.Fatalf("predict: %v", err)
		}
	}
	avg, p95, n := eng.LatencyStats(time.Minute)
	if n != 20 {
		t.Fatalf("expected 20 samples, got %d", n)
	}
	if avg <= 0 || p95 <= 0 {
		t.Fatalf("expected positive stats, got avg=%v p95=%v", avg, p95)
	}
}

func TestNormalizeFeaturesClamped(t *testing.T) {
	out := normalizeFeatures(map[string]float64{
		models.FeatMomentum:      0.5,  // way past scale
		models.FeatVolatility:    -0.5, // past negative scale
		models.FeatFlowImbalance: 0.25,
		models.FeatPrice:         50000, // unscaled, dropped
	})
	if out[models.FeatMomentum] != 1 {
		t.Fatalf("momentum not clamped: %v", out[models.FeatMomentum])
	}
	if out[models.FeatVolatility] != -1 {
		t.Fatalf("volatility not clamped: %v", out[models.FeatVolatility])
	}
	if out[models.FeatFlowImbalance] != 0.25 {
		t.Fatalf("imbalance rescaled unexpectedly: %v", out[models.FeatFlowImbalance])
	}
	if _, ok := out[models.FeatPrice]; ok {
		t.Fatal("raw price should not enter the score")
	}
}
