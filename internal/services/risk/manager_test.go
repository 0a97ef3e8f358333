package risk

import (
	"math"
	"testing"

	"QuantPulse/internal/domain/models"
)

func testLimits() models.RiskLimits {
	return models.RiskLimits{
		MaxPositionSize:        100000,
		DailyLossLimit:         50000,
		MaxDrawdown:            0.2,
		ConcentrationLimit:     0.5,
		LeverageLimit:          3,
		StopLossPercent:        0.02,
		TakeProfitPercent:      0.05,
		MaxCorrelatedPositions: 5,
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(testLimits(), 1_000_000, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerRejectsBadLimits(t *testing.T) {
	bad := testLimits()
	bad.MaxDrawdown = 1.5
	if _, err := NewManager(bad, 1_000_000, nil); err == nil {
		t.Fatal("expected error for max_drawdown outside (0,1)")
	}
	if _, err := NewManager(testLimits(), 0, nil); err == nil {
		t.Fatal("expected error for zero capital")
	}
}

func TestDailyLossLimitObservable(t *testing.T) {
	m := newTestManager(t)

	m.RecordTrade(-60000)

	metrics := m.CalculateRiskMetrics()
	if metrics.DailyPnL >= -m.Limits().DailyLossLimit {
		t.Fatalf("expected dailyPnL < -dailyLossLimit, got pnl=%v limit=%v",
			metrics.DailyPnL, m.Limits().DailyLossLimit)
	}

	breaches := m.Breaches()
	found := false
	for _, b := range breaches {
		if b.Limit == "daily_loss_limit" {
			found = true
			if b.Value != 60000 || b.Threshold != 50000 {
				t.Fatalf("unexpected breach detail %+v", b)
			}
		}
	}
	if !found {
		t.Fatalf("daily_loss_limit breach not reported: %+v", breaches)
	}
}

func TestPortfolioValueWithOpenPosition(t *testing.T) {
	m := newTestManager(t)

	m.RecordPosition(models.Position{Symbol: "BTCUSD", Quantity: 2, AvgPrice: 50000, MarkPrice: 50000})
	m.MarkPrice("BTCUSD", 51000)

	metrics := m.CalculateRiskMetrics()
	if metrics.PortfolioValue != 1_002_000 {
		t.Fatalf("expected 1002000 with unrealized gain, got %v", metrics.PortfolioValue)
	}
	if metrics.Exposure != 102000 {
		t.Fatalf("expected exposure 102000, got %v", metrics.Exposure)
	}
	if metrics.PositionCount != 1 {
		t.Fatalf("expected 1 position, got %d", metrics.PositionCount)
	}
}

func TestDrawdownTracksPeak(t *testing.T) {
	m := newTestManager(t)

	m.RecordTrade(100000)  // peak 1.1M
	m.RecordTrade(-220000) // value 880k, 20% off peak

	metrics := m.CalculateRiskMetrics()
	if math.Abs(metrics.MaxDrawdown-0.2) > 1e-9 {
		t.Fatalf("expected drawdown 0.2, got %v", metrics.MaxDrawdown)
	}

	// Recovery does not erase the observed maximum.
	m.RecordTrade(300000)
	if got := m.CalculateRiskMetrics().MaxDrawdown; math.Abs(got-0.2) > 1e-9 {
		t.Fatalf("drawdown should be sticky, got %v", got)
	}
}

func TestSharpeRatio(t *testing.T) {
	m := newTestManager(t)

	// Alternating outcomes with positive mean return.
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			m.RecordTrade(20000)
		} else {
			m.RecordTrade(-10000)
		}
	}
	metrics := m.CalculateRiskMetrics()
	if metrics.SharpeRatio <= 0 {
		t.Fatalf("expected positive sharpe for positive-mean returns, got %v", metrics.SharpeRatio)
	}
	if math.IsNaN(metrics.SharpeRatio) || math.IsInf(metrics.SharpeRatio, 0) {
		t.Fatalf("sharpe not finite: %v", metrics.SharpeRatio)
	}
}

func TestSharpeZeroCases(t *testing.T) {
	if s := annualizedSharpe(nil); s != 0 {
		t.Fatalf("empty series sharpe should be 0, got %v", s)
	}
	if s := annualizedSharpe([]float64{0.01}); s != 0 {
		t.Fatalf("single return sharpe should be 0, got %v", s)
	}
	if s := annualizedSharpe([]float64{0.01, 0.01, 0.01}); s != 0 {
		t.Fatalf("zero variance sharpe should be 0, got %v", s)
	}
}

func TestPositionSizeAndConcentrationBreaches(t *testing.T) {
	m := newTestManager(t)

	m.RecordPosition(models.Position{Symbol: "BTCUSD", Quantity: 3, AvgPrice: 50000, MarkPrice: 50000})

	byLimit := map[string]bool{}
	for _, b := range m.Breaches() {
		byLimit[b.Limit] = true
	}
	if !byLimit["max_position_size"] {
		t.Fatal("expected max_position_size breach at 150k notional")
	}
	if byLimit["leverage_limit"] {
		t.Fatal("leverage 0.15 should not breach limit 3")
	}
}

func TestZeroQuantityRemovesPosition(t *testing.T) {
	m := newTestManager(t)

	m.RecordPosition(models.Position{Symbol: "BTCUSD", Quantity: 1, AvgPrice: 100, MarkPrice: 100})
	m.RecordPosition(models.Position{Symbol: "BTCUSD", Quantity: 0})

	if got := m.CalculateRiskMetrics().PositionCount; got != 0 {
		t.Fatalf("expected 0 positions, got %d", got)
	}
}

func TestResetDaily(t *testing.T) {
	m := newTestManager(t)

	m.RecordTrade(-10000)
	m.ResetDaily()

	if pnl := m.CalculateRiskMetrics().DailyPnL; pnl != 0 {
		t.Fatalf("expected daily pnl reset, got %v", pnl)
	}
}
