package normalizer

import "testing"

func f(v float64) *float64 { return &v }

func TestNormalizeTickSpread(t *testing.T) {
	tk, err := NormalizeTick("binance", RawTick{
		Symbol: "AAPL", Price: 100, Volume: 1, Timestamp: 1000,
		Bid: f(99.5), Ask: f(100.5),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !tk.HasQuote {
		t.Fatalf("expected quote populated")
	}
	if tk.Spread != 1.0 {
		t.Fatalf("spread = %v, want 1.0", tk.Spread)
	}
	if tk.Exchange != "binance" {
		t.Fatalf("exchange = %q", tk.Exchange)
	}
}

func TestNormalizeTickRejects(t *testing.T) {
	cases := []RawTick{
		{Symbol: "", Price: 100, Volume: 1, Timestamp: 1000},
		{Symbol: "AAPL", Price: 0, Volume: 1, Timestamp: 1000},
		{Symbol: "AAPL", Price: -5, Volume: 1, Timestamp: 1000},
		{Symbol: "AAPL", Price: 100, Volume: -1, Timestamp: 1000},
		{Symbol: "AAPL", Price: 100, Volume: 1, Timestamp: 0},
	}
	for i, r := range cases {
		if _, err := NormalizeTick("binance", r); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestNormalizeBookOrdering(t *testing.T) {
	b, err := NormalizeBook("coinbase", RawBook{
		Symbol:    "BTC-USD",
		Timestamp: 2000,
		Bids:      []RawBookLevel{{Price: 99, Size: 1}, {Price: 101, Size: 2}, {Price: 100, Size: 3}},
		Asks:      []RawBookLevel{{Price: 104, Size: 1}, {Price: 102, Size: 2}},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	for i := 1; i < len(b.Bids); i++ {
		if b.Bids[i].Price > b.Bids[i-1].Price {
			t.Fatalf("bids not descending: %v", b.Bids)
		}
	}
	for i := 1; i < len(b.Asks); i++ {
		if b.Asks[i].Price < b.Asks[i-1].Price {
			t.Fatalf("asks not ascending: %v", b.Asks)
		}
	}
}

func TestNormalizeBookNegativeSize(t *testing.T) {
	_, err := NormalizeBook("coinbase", RawBook{
		Symbol:    "BTC-USD",
		Timestamp: 2000,
		Bids:      []RawBookLevel{{Price: 99, Size: -1}},
	})
	if err == nil {
		t.Fatalf("expected error for negative size")
	}
}
