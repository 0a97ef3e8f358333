package usecase

import (
	"context"
	"strings"
	"testing"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	"QuantPulse/internal/services/features"
	"QuantPulse/internal/services/inference"
)

type fakePredictionStore struct {
	recs []models.PredictionRecord
}

func (f *fakePredictionStore) Append(_ context.Context, rec models.PredictionRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakePredictionStore) Recent(_ context.Context, n int) ([]models.PredictionRecord, error) {
	if n > len(f.recs) {
		n = len(f.recs)
	}
	return f.recs[len(f.recs)-n:], nil
}

func testInferenceUseCase(t *testing.T, buffers *TickBuffers, cycle *IngestionCycle) *InferenceUseCase {
	t.Helper()
	engine := inference.NewEngine(inference.NewLinearModel(""), &fakePredictionStore{}, nopMetrics{}, testLogger(t), inference.Options{})
	return NewInferenceUseCase(engine, features.NewExtractor(), buffers, cycle)
}

func emptyCycle(t *testing.T) *IngestionCycle {
	t.Helper()
	return testCycle(t, &fakeFeed{name: "binance", res: &domrepo.FeedResult{}}, &fakeTickStore{}, &fakePublisher{}, NewTickBuffers(10))
}

func fillWindow(buffers *TickBuffers, symbol string, n int) {
	for i := 0; i < n; i++ {
		buffers.Append(models.Tick{
			Symbol:    symbol,
			Exchange:  "binance",
			Price:     100 + float64(i),
			Volume:    10,
			Timestamp: int64((i + 1) * 1000),
		})
	}
}

func TestPredictRequiresFullWindow(t *testing.T) {
	buffers := NewTickBuffers(100)
	uc := testInferenceUseCase(t, buffers, emptyCycle(t))

	fillWindow(buffers, "AAPL", 9)
	if _, err := uc.Predict(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected failure with 9 buffered ticks")
	}

	fillWindow(buffers, "AAPL", 1)
	p, err := uc.Predict(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("10-tick window should predict: %v", err)
	}
	if p.Value < -1 || p.Value > 1 {
		t.Fatalf("prediction out of range: %v", p.Value)
	}
}

func TestPredictBatchReportsPerSymbolErrors(t *testing.T) {
	buffers := NewTickBuffers(100)
	uc := testInferenceUseCase(t, buffers, emptyCycle(t))
	fillWindow(buffers, "AAPL", 10)

	res, err := uc.PredictBatch(context.Background(), []string{"AAPL", "TSLA"})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if res.ErrorCount != 1 {
		t.Fatalf("expected 1 error, got %d", res.ErrorCount)
	}
	if res.Items[0].Prediction == nil {
		t.Fatalf("AAPL should predict: %+v", res.Items[0])
	}
	if res.Items[1].Error == "" || !strings.Contains(res.Items[1].Error, "TSLA") {
		t.Fatalf("TSLA should fail with context: %+v", res.Items[1])
	}
}

func TestPredictStreamAppendsAndScores(t *testing.T) {
	buffers := NewTickBuffers(100)
	uc := testInferenceUseCase(t, buffers, emptyCycle(t))

	ticks := []models.Tick{
		{Symbol: "AAPL", Exchange: "binance", Price: 100, Volume: 5, Timestamp: 1000},
		{Symbol: "AAPL", Exchange: "binance", Price: 101, Volume: 5, Timestamp: 2000},
		{Symbol: "AAPL", Exchange: "binance", Price: 102, Volume: 5, Timestamp: 3000},
	}
	res, err := uc.PredictStream(context.Background(), "AAPL", ticks)
	if err != nil {
		t.Fatalf("stream predict: %v", err)
	}
	if len(res.Predictions) != len(ticks) {
		t.Fatalf("expected one prediction per tick, got %d", len(res.Predictions))
	}
	for i, p := range res.Predictions {
		if p.Confidence > 0.90 {
			t.Fatalf("prediction %d confidence above cap: %v", i, p.Confidence)
		}
	}
	if res.BufferSize != 3 {
		t.Fatalf("buffer size not reported, got %d", res.BufferSize)
	}
	if buffers.Len("AAPL") != 3 {
		t.Fatalf("ticks not buffered, got %d", buffers.Len("AAPL"))
	}
	if res.ModelVersion == "" {
		t.Fatal("model version missing from stream result")
	}
}

func TestPredictStreamRejectsMismatchedSymbol(t *testing.T) {
	uc := testInferenceUseCase(t, NewTickBuffers(100), emptyCycle(t))

	_, err := uc.PredictStream(context.Background(), "AAPL", []models.Tick{
		{Symbol: "MSFT", Exchange: "binance", Price: 100, Volume: 1, Timestamp: 1000},
	})
	if err == nil {
		t.Fatal("expected mismatch rejection")
	}
}

func TestRouteDispatch(t *testing.T) {
	buffers := NewTickBuffers(100)
	uc := testInferenceUseCase(t, buffers, emptyCycle(t))
	fillWindow(buffers, "AAPL", 10)

	out, err := uc.Route(context.Background(), &models.InferenceRequest{Action: "predict", Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("route predict: %v", err)
	}
	if _, ok := out.(*inference.Prediction); !ok {
		t.Fatalf("unexpected result type %T", out)
	}

	if _, err := uc.Route(context.Background(), &models.InferenceRequest{Action: "explode"}); err == nil {
		t.Fatal("expected unknown action error")
	}
}
