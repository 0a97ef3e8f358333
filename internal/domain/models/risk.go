package models

import "fmt"

// RiskLimits are configured once at startup and immutable for the session.
type RiskLimits struct {
	MaxPositionSize        float64 `yaml:"max_position_size" json:"max_position_size"`
	DailyLossLimit         float64 `yaml:"daily_loss_limit" json:"daily_loss_limit"`
	MaxDrawdown            float64 `yaml:"max_drawdown" json:"max_drawdown"` // fraction of peak, in (0,1)
	ConcentrationLimit     float64 `yaml:"concentration_limit" json:"concentration_limit"`
	LeverageLimit          float64 `yaml:"leverage_limit" json:"leverage_limit"`
	StopLossPercent        float64 `yaml:"stop_loss_percent" json:"stop_loss_percent"`
	TakeProfitPercent      float64 `yaml:"take_profit_percent" json:"take_profit_percent"`
	MaxCorrelatedPositions int     `yaml:"max_correlated_positions" json:"max_correlated_positions"`
}

// Validate checks limit sanity before a session starts.
func (l RiskLimits) Validate() error {
	if l.MaxPositionSize <= 0 {
		return fmt.Errorf("max_position_size must be positive")
	}
	if l.DailyLossLimit <= 0 {
		return fmt.Errorf("daily_loss_limit must be positive")
	}
	if l.MaxDrawdown <= 0 || l.MaxDrawdown >= 1 {
		return fmt.Errorf("max_drawdown must be in (0,1), got %v", l.MaxDrawdown)
	}
	if l.ConcentrationLimit <= 0 {
		return fmt.Errorf("concentration_limit must be positive")
	}
	if l.LeverageLimit <= 0 {
		return fmt.Errorf("leverage_limit must be positive")
	}
	if l.MaxCorrelatedPositions <= 0 {
		return fmt.Errorf("max_correlated_positions must be positive")
	}
	return nil
}

// Position is the current holding for one symbol.
type Position struct {
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	AvgPrice  float64 `json:"avg_price"`
	MarkPrice float64 `json:"mark_price"`
}

// Notional returns the absolute mark-to-market exposure of the position.
func (p Position) Notional() float64 {
	n := p.Quantity * p.MarkPrice
	if n < 0 {
		return -n
	}
	return n
}

// RiskMetrics is a recomputed snapshot over current position/trade state.
type RiskMetrics struct {
	PortfolioValue float64 `json:"portfolio_value"`
	DailyPnL       float64 `json:"daily_pnl"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	Exposure       float64 `json:"exposure"`
	Leverage       float64 `json:"leverage"`
	PositionCount  int     `json:"position_count"`
}

// LimitBreach names one risk limit exceeded by the current metrics.
type LimitBreach struct {
	Limit     string  `json:"limit"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}
