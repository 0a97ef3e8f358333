package features

import (
	"errors"
	"fmt"
	"math"

	"QuantPulse/internal/domain/models"
)

// MinWindow is the smallest tick window the full extraction path accepts.
const MinWindow = 10

// StreamWindow is the reduced window used by the low-latency path.
const StreamWindow = 5

// TopLevels bounds how deep into the book imbalance features look.
const TopLevels = 5

// ErrInsufficientData is returned when a window holds fewer ticks than the
// path requires. Callers should wait for more data rather than treat it as
// a hard failure.
var ErrInsufficientData = errors.New("insufficient data")

// Extractor derives feature vectors from tick windows and book snapshots.
// Extraction is a pure function of its inputs: the same ordered window and
// snapshot always produce the same vector.
type Extractor struct{}

func NewExtractor() *Extractor { return &Extractor{} }

// Extract computes the full feature set from an ordered window of at least
// MinWindow ticks plus the latest order-book snapshot (may be nil, in which
// case book features are 0). Every output is finite; a zero denominator
// yields 0 instead of NaN/Inf.
func (e *Extractor) Extract(window []models.Tick, book *models.OrderBookSnapshot) (*models.FeatureVector, error) {
	if len(window) < MinWindow {
		return nil, fmt.Errorf("%w: need %d ticks, have %d", ErrInsufficientData, MinWindow, len(window))
	}

	latest := window[len(window)-1]
	sma5 := SMA(prices(window), 5)
	sma10 := SMA(prices(window), 10)

	feats := map[string]float64{
		models.FeatSMA5:          sma5,
		models.FeatSMA10:         sma10,
		models.FeatMomentum:      Momentum(window),
		models.FeatVolatility:    Volatility(window),
		models.FeatPriceSMARatio: safeDiv(latest.Price, sma10),
		models.FeatVolumeSMA:     SMA(volumes(window), 10),
		models.FeatSpread:        quoteSpread(latest),
	}

	if book != nil {
		feats[models.FeatBidAskSpread] = BookSpread(book)
		feats[models.FeatFlowImbalance] = FlowImbalance(book, TopLevels)
		feats[models.FeatSmartMoney] = SmartMoney(book, TopLevels)
	} else {
		feats[models.FeatBidAskSpread] = 0
		feats[models.FeatFlowImbalance] = 0
		feats[models.FeatSmartMoney] = 0
	}

	sanitize(feats)
	return &models.FeatureVector{
		Symbol:    latest.Symbol,
		Timestamp: latest.Timestamp,
		Features:  feats,
	}, nil
}

// ExtractStream computes the reduced low-latency feature set from the last
// StreamWindow buffered ticks. It trades completeness for bounded latency
// when the full window is unavailable.
func (e *Extractor) ExtractStream(window []models.Tick) (*models.FeatureVector, error) {
	if len(window) == 0 {
		return nil, fmt.Errorf("%w: empty stream window", ErrInsufficientData)
	}
	if len(window) > StreamWindow {
		window = window[len(window)-StreamWindow:]
	}

	latest := window[len(window)-1]
	feats := map[string]float64{
		models.FeatPrice:      latest.Price,
		models.FeatVolume:     latest.Volume,
		models.FeatSpread:     quoteSpread(latest),
		models.FeatMomentum:   Momentum(window),
		models.FeatVolatility: Volatility(window),
	}

	sanitize(feats)
	return &models.FeatureVector{
		Symbol:    latest.Symbol,
		Timestamp: latest.Timestamp,
		Features:  feats,
	}, nil
}

// SMA returns the simple moving average of the trailing n values,
// or of the whole series when it is shorter than n.
func SMA(xs []float64, n int) float64 {
	if len(xs) == 0 || n <= 0 {
		return 0
	}
	if n > len(xs) {
		n = len(xs)
	}
	sum := 0.0
	for _, x := range xs[len(xs)-n:] {
		sum += x
	}
	return sum / float64(n)
}

// Momentum is the fractional price change across the window.
func Momentum(window []models.Tick) float64 {
	if len(window) < 2 {
		return 0
	}
	first := window[0].Price
	if first == 0 {
		return 0
	}
	return (window[len(window)-1].Price - first) / first
}

// Volatility is the sample standard deviation of tick-to-tick returns.
func Volatility(window []models.Tick) float64 {
	rets := Returns(window)
	if len(rets) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))

	variance := 0.0
	for _, r := range rets {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(rets) - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Returns computes tick-to-tick fractional returns. It returns a slice of
// length len(window)-1, with 0 where a previous price is non-positive.
func Returns(window []models.Tick) []float64 {
	if len(window) < 2 {
		return nil
	}
	out := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		prev := window[i-1].Price
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (window[i].Price-prev)/prev)
	}
	return out
}

// FlowImbalance is (sum bid sizes - sum ask sizes) / (sum bid + sum ask)
// over the top n levels, clamped to [-1,1]. An empty book yields 0.
func FlowImbalance(book *models.OrderBookSnapshot, n int) float64 {
	bidVol := sideVolume(book.Bids, n)
	askVol := sideVolume(book.Asks, n)
	total := bidVol + askVol
	if total == 0 {
		return 0
	}
	imb := (bidVol - askVol) / total
	if imb > 1 {
		return 1
	}
	if imb < -1 {
		return -1
	}
	return imb
}

// SmartMoney is a liquidity-weighted pressure signal: depth-discounted size
// imbalance over the top n levels. Deeper levels contribute progressively
// less. An empty book yields 0.
func SmartMoney(book *models.OrderBookSnapshot, n int) float64 {
	var bid, ask, total float64
	for i, lvl := range book.Bids {
		if i >= n {
			break
		}
		w := 1.0 / float64(i+1)
		bid += lvl.Size * w
		total += lvl.Size * w
	}
	for i, lvl := range book.Asks {
		if i >= n {
			break
		}
		w := 1.0 / float64(i+1)
		ask += lvl.Size * w
		total += lvl.Size * w
	}
	if total == 0 {
		return 0
	}
	return (bid - ask) / total
}

// BookSpread is best ask minus best bid, 0 when either side is empty.
func BookSpread(book *models.OrderBookSnapshot) float64 {
	bb, okB := book.BestBid()
	ba, okA := book.BestAsk()
	if !okB || !okA {
		return 0
	}
	return ba.Price - bb.Price
}

func quoteSpread(t models.Tick) float64 {
	if !t.HasQuote {
		return 0
	}
	return t.Spread
}

func sideVolume(levels []models.BookLevel, n int) float64 {
	sum := 0.0
	for i, lvl := range levels {
		if i >= n {
			break
		}
		sum += lvl.Size
	}
	return sum
}

func prices(window []models.Tick) []float64 {
	out := make([]float64, len(window))
	for i, t := range window {
		out[i] = t.Price
	}
	return out
}

func volumes(window []models.Tick) []float64 {
	out := make([]float64, len(window))
	for i, t := range window {
		out[i] = t.Volume
	}
	return out
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// sanitize replaces any non-finite value with 0. NaN must never leave the
// extractor.
func sanitize(feats map[string]float64) {
	for k, v := range feats {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			feats[k] = 0
		}
	}
}
