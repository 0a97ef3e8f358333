package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"QuantPulse/internal/domain/models"
	xlogger "QuantPulse/pkg/logger"
)

// Trading days used to annualize the Sharpe ratio.
const annualizationFactor = 252

// Manager holds position and trade state and computes the metrics a gating
// caller decides on. It never executes or rejects trades itself.
type Manager struct {
	limits models.RiskLimits
	logger *xlogger.Logger

	mu           sync.RWMutex
	capital      float64
	positions    map[string]models.Position
	dailyPnL     float64
	returns      []float64 // per-trade returns on capital
	peakValue    float64
	maxDrawdown  float64 // worst observed fraction of peak
	lastResetDay int     // yyyymmdd of the last daily reset
}

// NewManager validates the limits once; they are immutable for the session.
func NewManager(limits models.RiskLimits, startingCapital float64, logger *xlogger.Logger) (*Manager, error) {
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk limits: %w", err)
	}
	if startingCapital <= 0 {
		return nil, fmt.Errorf("starting capital must be positive, got %v", startingCapital)
	}
	return &Manager{
		limits:       limits,
		logger:       logger,
		capital:      startingCapital,
		positions:    make(map[string]models.Position),
		peakValue:    startingCapital,
		lastResetDay: dayKey(time.Now()),
	}, nil
}

// Limits returns a copy of the session limits.
func (m *Manager) Limits() models.RiskLimits { return m.limits }

// RecordPosition replaces the holding for a symbol. A zero quantity removes
// the position.
func (m *Manager) RecordPosition(pos models.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pos.Quantity == 0 {
		delete(m.positions, pos.Symbol)
	} else {
		m.positions[pos.Symbol] = pos
	}
	m.updateDrawdownLocked()
}

// MarkPrice updates the mark used for a symbol's exposure without changing
// the holding.
func (m *Manager) MarkPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return
	}
	pos.MarkPrice = price
	m.positions[symbol] = pos
	m.updateDrawdownLocked()
}

// RecordTrade books a realized trade outcome. PnL attribution is the
// execution system's job; this only accumulates what it reports.
func (m *Manager) RecordTrade(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maybeResetDayLocked(time.Now())

	base := m.capital
	m.capital += pnl
	m.dailyPnL += pnl
	if base > 0 {
		m.returns = append(m.returns, pnl/base)
	}
	m.updateDrawdownLocked()

	if m.logger != nil && m.dailyPnL < -m.limits.DailyLossLimit {
		m.logger.Warn("daily loss limit exceeded",
			xlogger.Float64("daily_pnl", m.dailyPnL),
			xlogger.Float64("limit", m.limits.DailyLossLimit),
		)
	}
}

// CalculateRiskMetrics recomputes the snapshot from current state. It is a
// pure read; nothing is persisted.
func (m *Manager) CalculateRiskMetrics() models.RiskMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exposure := m.grossExposureLocked()
	value := m.portfolioValueLocked()

	var leverage float64
	if value > 0 {
		leverage = exposure / value
	}

	return models.RiskMetrics{
		PortfolioValue: value,
		DailyPnL:       m.dailyPnL,
		MaxDrawdown:    m.maxDrawdown,
		SharpeRatio:    annualizedSharpe(m.returns),
		Exposure:       exposure,
		Leverage:       leverage,
		PositionCount:  len(m.positions),
	}
}

// Breaches evaluates the current metrics against the session limits and names
// every limit exceeded. Callers gate on the result before executing.
func (m *Manager) Breaches() []models.LimitBreach {
	metrics := m.CalculateRiskMetrics()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var breaches []models.LimitBreach

	if metrics.DailyPnL < -m.limits.DailyLossLimit {
		breaches = append(breaches, models.LimitBreach{
			Limit:     "daily_loss_limit",
			Value:     -metrics.DailyPnL,
			Threshold: m.limits.DailyLossLimit,
		})
	}
	if metrics.MaxDrawdown > m.limits.MaxDrawdown {
		breaches = append(breaches, models.LimitBreach{
			Limit:     "max_drawdown",
			Value:     metrics.MaxDrawdown,
			Threshold: m.limits.MaxDrawdown,
		})
	}
	if metrics.Leverage > m.limits.LeverageLimit {
		breaches = append(breaches, models.LimitBreach{
			Limit:     "leverage_limit",
			Value:     metrics.Leverage,
			Threshold: m.limits.LeverageLimit,
		})
	}
	for _, pos := range m.positions {
		if n := pos.Notional(); n > m.limits.MaxPositionSize {
			breaches = append(breaches, models.LimitBreach{
				Limit:     "max_position_size",
				Value:     n,
				Threshold: m.limits.MaxPositionSize,
			})
		}
	}
	if metrics.PortfolioValue > 0 {
		for _, pos := range m.positions {
			if c := pos.Notional() / metrics.PortfolioValue; c > m.limits.ConcentrationLimit {
				breaches = append(breaches, models.LimitBreach{
					Limit:     "concentration_limit",
					Value:     c,
					Threshold: m.limits.ConcentrationLimit,
				})
			}
		}
	}

	return breaches
}

// ResetDaily zeroes the daily PnL accumulator, normally at the session
// boundary.
func (m *Manager) ResetDaily() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyPnL = 0
	m.lastResetDay = dayKey(time.Now())
}

func (m *Manager) maybeResetDayLocked(now time.Time) {
	if key := dayKey(now); key != m.lastResetDay {
		m.dailyPnL = 0
		m.lastResetDay = key
	}
}

func (m *Manager) portfolioValueLocked() float64 {
	value := m.capital
	for _, pos := range m.positions {
		// Unrealized PnL on the open holding.
		value += pos.Quantity * (pos.MarkPrice - pos.AvgPrice)
	}
	return value
}

func (m *Manager) grossExposureLocked() float64 {
	var exposure float64
	for _, pos := range m.positions {
		exposure += pos.Notional()
	}
	return exposure
}

func (m *Manager) updateDrawdownLocked() {
	value := m.portfolioValueLocked()
	if value > m.peakValue {
		m.peakValue = value
	}
	if m.peakValue > 0 {
		if dd := (m.peakValue - value) / m.peakValue; dd > m.maxDrawdown {
			m.maxDrawdown = dd
		}
	}
}

// annualizedSharpe computes mean/stddev of the per-trade return series scaled
// by sqrt(252). Fewer than two returns or zero variance yields 0.
func annualizedSharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(annualizationFactor)
}

func dayKey(t time.Time) int {
	y, mo, d := t.UTC().Date()
	return y*10000 + int(mo)*100 + d
}
