package normalizer

import (
	"fmt"
	"sort"

	"QuantPulse/internal/domain/models"
)

// RawTick is the wire shape a feed gateway returns for one trade observation.
// Field presence varies per exchange; Bid/Ask are optional.
type RawTick struct {
	Symbol    string   `json:"symbol"`
	Price     float64  `json:"price"`
	Volume    float64  `json:"volume"`
	Timestamp int64    `json:"timestamp"`
	Bid       *float64 `json:"bid,omitempty"`
	Ask       *float64 `json:"ask,omitempty"`
}

// RawBookLevel is one raw (price, size) pair.
type RawBookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// RawBook is the wire shape of an order-book snapshot. Level ordering is not
// guaranteed by the upstream.
type RawBook struct {
	Symbol    string         `json:"symbol"`
	Bids      []RawBookLevel `json:"bids"`
	Asks      []RawBookLevel `json:"asks"`
	Timestamp int64          `json:"timestamp"`
}

// NormalizeTick converts a raw record into a canonical Tick, stamping the
// exchange and deriving spread when both quote sides are present.
func NormalizeTick(exchange string, r RawTick) (models.Tick, error) {
	if r.Symbol == "" {
		return models.Tick{}, fmt.Errorf("tick: symbol empty")
	}
	if r.Price <= 0 {
		return models.Tick{}, fmt.Errorf("tick %s: price %v not positive", r.Symbol, r.Price)
	}
	if r.Volume < 0 {
		return models.Tick{}, fmt.Errorf("tick %s: negative volume %v", r.Symbol, r.Volume)
	}
	if r.Timestamp <= 0 {
		return models.Tick{}, fmt.Errorf("tick %s: timestamp %d invalid", r.Symbol, r.Timestamp)
	}

	t := models.Tick{
		Symbol:    r.Symbol,
		Exchange:  exchange,
		Price:     r.Price,
		Volume:    r.Volume,
		Timestamp: r.Timestamp,
	}
	if r.Bid != nil && r.Ask != nil {
		t.Bid = *r.Bid
		t.Ask = *r.Ask
		t.Spread = *r.Ask - *r.Bid
		t.HasQuote = true
	}
	return t, nil
}

// NormalizeBook converts a raw snapshot into canonical form: bids sorted
// price-descending, asks price-ascending, negative sizes rejected.
func NormalizeBook(exchange string, r RawBook) (models.OrderBookSnapshot, error) {
	if r.Symbol == "" {
		return models.OrderBookSnapshot{}, fmt.Errorf("book: symbol empty")
	}
	if r.Timestamp <= 0 {
		return models.OrderBookSnapshot{}, fmt.Errorf("book %s: timestamp %d invalid", r.Symbol, r.Timestamp)
	}

	bids, err := normalizeSide(r.Symbol, r.Bids)
	if err != nil {
		return models.OrderBookSnapshot{}, err
	}
	asks, err := normalizeSide(r.Symbol, r.Asks)
	if err != nil {
		return models.OrderBookSnapshot{}, err
	}

	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.SliceStable(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	return models.OrderBookSnapshot{
		Symbol:    r.Symbol,
		Exchange:  exchange,
		Bids:      bids,
		Asks:      asks,
		Timestamp: r.Timestamp,
	}, nil
}

func normalizeSide(symbol string, raw []RawBookLevel) ([]models.BookLevel, error) {
	out := make([]models.BookLevel, 0, len(raw))
	for _, lvl := range raw {
		if lvl.Size < 0 {
			return nil, fmt.Errorf("book %s: negative size %v at price %v", symbol, lvl.Size, lvl.Price)
		}
		if lvl.Price <= 0 {
			continue // zero-price placeholder levels are dropped, not fatal
		}
		out = append(out, models.BookLevel{Price: lvl.Price, Size: lvl.Size})
	}
	return out, nil
}
