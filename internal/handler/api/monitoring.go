package api

import (
	"encoding/json"
	"net/http"
	"time"

	models "QuantPulse/internal/domain/models"
	"QuantPulse/internal/service/cache"
	"QuantPulse/internal/services/drift"
	"QuantPulse/internal/services/risk"
	"QuantPulse/internal/usecase"
	xhttp "QuantPulse/pkg/http"
	xlogger "QuantPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MonitoringTTLs control response caching for the hot read endpoints.
type MonitoringTTLs struct {
	Status time.Duration
	PnL    time.Duration
}

// MonitoringHandler exposes system health, risk, and drift state.
type MonitoringHandler struct {
	logger *xlogger.Logger
	status *usecase.StatusAggregator
	drift  *drift.Monitor
	risk   *risk.Manager
	cache  cache.BytesCache
	ttls   MonitoringTTLs
}

func NewMonitoringHandler(logger *xlogger.Logger, status *usecase.StatusAggregator, monitor *drift.Monitor, riskMgr *risk.Manager, c cache.BytesCache, ttls MonitoringTTLs) *MonitoringHandler {
	if ttls.Status <= 0 {
		ttls.Status = 5 * time.Second
	}
	if ttls.PnL <= 0 {
		ttls.PnL = 2 * time.Second
	}
	return &MonitoringHandler{
		logger: logger,
		status: status,
		drift:  monitor,
		risk:   riskMgr,
		cache:  c,
		ttls:   ttls,
	}
}

func (h *MonitoringHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/monitoring")
	g.GET("/status", h.Status)
	g.GET("/metrics", h.RiskMetrics)
	g.GET("/pnl", h.PnL)
	g.GET("/alerts", h.Alerts)
	g.POST("/alerts/resolve", h.ResolveAlerts)
	g.GET("/drift", h.Drift)
}

// Status returns the composed system-health verdict, cached briefly.
func (h *MonitoringHandler) Status(c echo.Context) error {
	if data, ok := h.cached("monitoring:status"); ok {
		return c.JSONBlob(http.StatusOK, data)
	}

	status := h.status.SystemStatus(c.Request().Context())
	return h.respond(c, "monitoring:status", status, h.ttls.Status)
}

// RiskMetrics returns the current risk snapshot with any breached limits.
func (h *MonitoringHandler) RiskMetrics(c echo.Context) error {
	type payload struct {
		Metrics  models.RiskMetrics   `json:"metrics"`
		Breaches []models.LimitBreach `json:"breaches,omitempty"`
		Limits   models.RiskLimits    `json:"limits"`
	}
	return xhttp.SuccessResponse(c, payload{
		Metrics:  h.risk.CalculateRiskMetrics(),
		Breaches: h.risk.Breaches(),
		Limits:   h.risk.Limits(),
	})
}

// PnL returns the PnL-focused subset of the risk snapshot, cached briefly.
func (h *MonitoringHandler) PnL(c echo.Context) error {
	if data, ok := h.cached("monitoring:pnl"); ok {
		return c.JSONBlob(http.StatusOK, data)
	}

	metrics := h.risk.CalculateRiskMetrics()
	type payload struct {
		PortfolioValue float64 `json:"portfolio_value"`
		DailyPnL       float64 `json:"daily_pnl"`
		MaxDrawdown    float64 `json:"max_drawdown"`
		SharpeRatio    float64 `json:"sharpe_ratio"`
		Timestamp      int64   `json:"timestamp"`
	}
	return h.respond(c, "monitoring:pnl", payload{
		PortfolioValue: metrics.PortfolioValue,
		DailyPnL:       metrics.DailyPnL,
		MaxDrawdown:    metrics.MaxDrawdown,
		SharpeRatio:    metrics.SharpeRatio,
		Timestamp:      time.Now().UnixMilli(),
	}, h.ttls.PnL)
}

// Alerts returns the unresolved alert backlog.
func (h *MonitoringHandler) Alerts(c echo.Context) error {
	req := &models.AlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	alerts, err := h.drift.Alerts(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("alerts query error", xlogger.Error(err))
		return xhttp.ErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, alerts)
}

// ResolveAlerts closes alerts of one type up to a cutoff. Alerts never
// resolve on their own, this is the only path.
func (h *MonitoringHandler) ResolveAlerts(c echo.Context) error {
	req := &models.ResolveAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	before := xhttp.ParseTimeDefault(req.Before, time.Now()).UnixMilli()
	if err := h.drift.Resolve(c.Request().Context(), req.Type, before); err != nil {
		h.logger.Error("alert resolve error", xlogger.Error(err))
		return xhttp.ErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"type": req.Type, "before": before})
}

// Drift runs an on-demand drift check over the requested lookback.
func (h *MonitoringHandler) Drift(c echo.Context) error {
	req := &models.DriftCheckRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.drift.CheckDriftWindow(c.Request().Context(), req.Lookback)
	if err != nil {
		h.logger.Error("drift check error", xlogger.Error(err))
		return xhttp.ErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

// cached returns a previously rendered envelope when the cache has it.
func (h *MonitoringHandler) cached(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	data, ok, err := h.cache.GetBytes(key)
	if err != nil || !ok {
		return nil, false
	}
	return data, true
}

// respond renders the success envelope, stores it, and writes it.
func (h *MonitoringHandler) respond(c echo.Context, key string, data interface{}, ttl time.Duration) error {
	envelope := xhttp.APIResponse{
		Success: true,
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	}
	blob, err := json.Marshal(envelope)
	if err != nil {
		return xhttp.ErrorResponse(c, err)
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(key, blob, ttl); err != nil {
			h.logger.Warn("response cache write failed", xlogger.Error(err))
		}
	}
	return c.JSONBlob(http.StatusOK, blob)
}
