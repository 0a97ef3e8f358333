package usecase

import (
	"context"
	"fmt"

	"QuantPulse/internal/domain/models"
	domsvc "QuantPulse/internal/domain/service"
	"QuantPulse/internal/services/inference"
)

// InferenceUseCase orchestrates prediction requests: it pulls the symbol's
// trailing window and latest book, extracts features, and scores them through
// the engine.
type InferenceUseCase struct {
	engine    *inference.Engine
	extractor domsvc.FeatureExtractor
	buffers   *TickBuffers
	cycle     *IngestionCycle
}

func NewInferenceUseCase(engine *inference.Engine, extractor domsvc.FeatureExtractor, buffers *TickBuffers, cycle *IngestionCycle) *InferenceUseCase {
	return &InferenceUseCase{
		engine:    engine,
		extractor: extractor,
		buffers:   buffers,
		cycle:     cycle,
	}
}

// Predict runs the full path for one symbol from buffered state.
func (uc *InferenceUseCase) Predict(ctx context.Context, symbol string) (*inference.Prediction, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	window := uc.buffers.Snapshot(symbol)
	fv, err := uc.extractor.Extract(window, uc.cycle.LatestBook(symbol))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", symbol, err)
	}
	return uc.engine.Predict(ctx, fv)
}

// PredictBatch runs the full path for each symbol sequentially. Per-symbol
// failures land in the result items; the batch itself succeeds.
func (uc *InferenceUseCase) PredictBatch(ctx context.Context, symbols []string) (*inference.BatchResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols required")
	}
	res := &inference.BatchResult{Items: make([]inference.BatchItem, 0, len(symbols))}
	for _, symbol := range symbols {
		p, err := uc.Predict(ctx, symbol)
		if err != nil {
			res.Items = append(res.Items, inference.BatchItem{Symbol: symbol, Error: err.Error()})
			res.ErrorCount++
			continue
		}
		res.Items = append(res.Items, inference.BatchItem{Symbol: symbol, Prediction: p})
		res.AggregateLatency += p.LatencyMs
	}
	return res, nil
}

// PredictStream appends the submitted ticks to the symbol's trailing buffer
// one at a time, scoring the reduced feature set on the fast path after each
// append. The result lists one lightweight prediction per tick plus the
// buffer size after the whole batch landed.
func (uc *InferenceUseCase) PredictStream(ctx context.Context, symbol string, ticks []models.Tick) (*inference.StreamResult, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if len(ticks) == 0 {
		return nil, fmt.Errorf("ticks required")
	}
	for _, t := range ticks {
		if t.Symbol != symbol {
			return nil, fmt.Errorf("tick symbol %q does not match %q", t.Symbol, symbol)
		}
	}

	res := &inference.StreamResult{
		Symbol:      symbol,
		Predictions: make([]inference.StreamPrediction, 0, len(ticks)),
	}
	for _, t := range ticks {
		uc.buffers.Append(t)
		fv, err := uc.extractor.ExtractStream(uc.buffers.Snapshot(symbol))
		if err != nil {
			return nil, fmt.Errorf("extract stream %s: %w", symbol, err)
		}
		p, err := uc.engine.PredictStream(ctx, fv)
		if err != nil {
			return nil, err
		}
		res.Predictions = append(res.Predictions, inference.StreamPrediction{
			Value:      p.Value,
			Confidence: p.Confidence,
			LatencyMs:  p.LatencyMs,
		})
		res.ModelVersion = p.ModelVersion
	}
	res.BufferSize = uc.buffers.Len(symbol)
	return res, nil
}

// Route dispatches an inference request by action.
func (uc *InferenceUseCase) Route(ctx context.Context, req *models.InferenceRequest) (interface{}, error) {
	switch req.Action {
	case "predict":
		return uc.Predict(ctx, req.Symbol)
	case "batch_predict":
		return uc.PredictBatch(ctx, req.Symbols)
	case "stream_predict":
		return uc.PredictStream(ctx, req.Symbol, req.Ticks)
	default:
		return nil, fmt.Errorf("unknown action %q", req.Action)
	}
}
