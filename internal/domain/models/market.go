package models

// FeedStatus describes the health state of one upstream feed.
type FeedStatus string

const (
	FeedConnected FeedStatus = "connected"
	FeedStale     FeedStatus = "stale"
	FeedError     FeedStatus = "error"
)

// Tick is a single timestamped trade/quote observation for a symbol on one exchange.
// Timestamp is milliseconds since epoch. Bid/Ask/Spread are populated only when
// HasQuote is true; when both sides are present, Spread = Ask - Bid.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Exchange  string  `json:"exchange"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"`
	Bid       float64 `json:"bid,omitempty"`
	Ask       float64 `json:"ask,omitempty"`
	Spread    float64 `json:"spread,omitempty"`
	HasQuote  bool    `json:"-"`
}

// BookLevel is one (price, size) entry on a side of the order book.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBookSnapshot is a point-in-time view of the book for one (symbol, exchange).
// Bids are price-descending, asks price-ascending, sizes non-negative.
type OrderBookSnapshot struct {
	Symbol    string      `json:"symbol"`
	Exchange  string      `json:"exchange"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	Timestamp int64       `json:"timestamp"`
}

// BestBid returns the top-of-book bid, or false if the side is empty.
func (b *OrderBookSnapshot) BestBid() (BookLevel, bool) {
	if len(b.Bids) == 0 {
		return BookLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the top-of-book ask, or false if the side is empty.
func (b *OrderBookSnapshot) BestAsk() (BookLevel, bool) {
	if len(b.Asks) == 0 {
		return BookLevel{}, false
	}
	return b.Asks[0], true
}

// FeedHealth is the per-feed health verdict recomputed every ingestion cycle.
type FeedHealth struct {
	Exchange     string     `json:"exchange"`
	Status       FeedStatus `json:"status"`
	LatencyMs    float64    `json:"latency_ms"`
	MessageCount int        `json:"message_count"`
	Error        string     `json:"error,omitempty"`
}
