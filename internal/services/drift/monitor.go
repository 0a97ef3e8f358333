package drift

import (
	"context"
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	xlogger "QuantPulse/pkg/logger"
)

// Options are the windowed-check thresholds. Zero values fall back to the
// service defaults.
type Options struct {
	MinSample           int           // below this the check reports insufficient data
	Lookback            int           // predictions pulled per check
	ConfidenceThreshold float64       // decline between halves that flags drift
	LatencyThresholdMs  float64       // increase between halves that flags drift
	InlineConfidenceMin float64       // per-prediction confidence floor
	InlineVolatilityMax float64       // per-prediction volatility ceiling
	CheckInterval       time.Duration // background sweep cadence
}

func (o *Options) defaults() {
	if o.MinSample <= 0 {
		o.MinSample = 50
	}
	if o.Lookback <= 0 {
		o.Lookback = 100
	}
	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = 0.2
	}
	if o.LatencyThresholdMs <= 0 {
		o.LatencyThresholdMs = 0.5
	}
	if o.InlineConfidenceMin <= 0 {
		o.InlineConfidenceMin = 0.3
	}
	if o.InlineVolatilityMax <= 0 {
		o.InlineVolatilityMax = 0.05
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = time.Minute
	}
}

// Monitor compares the older and newer halves of the recent prediction window
// and raises alerts when quality degrades between them. It also hooks into the
// inference engine for per-prediction checks.
type Monitor struct {
	predictions domrepo.PredictionLog
	alerts      domrepo.AlertLog
	metrics     domrepo.Metrics
	logger      *xlogger.Logger
	opts        Options
}

func NewMonitor(predictions domrepo.PredictionLog, alerts domrepo.AlertLog, metrics domrepo.Metrics, logger *xlogger.Logger, opts Options) *Monitor {
	opts.defaults()
	return &Monitor{
		predictions: predictions,
		alerts:      alerts,
		metrics:     metrics,
		logger:      logger,
		opts:        opts,
	}
}

// CheckDrift pulls the configured lookback window and compares halves. Too
// small a window is a defined no-signal result, not an error.
func (m *Monitor) CheckDrift(ctx context.Context) (*models.DriftReport, error) {
	return m.CheckDriftWindow(ctx, m.opts.Lookback)
}

// CheckDriftWindow runs the check over an explicit lookback.
func (m *Monitor) CheckDriftWindow(ctx context.Context, lookback int) (*models.DriftReport, error) {
	if lookback <= 0 {
		lookback = m.opts.Lookback
	}
	recs, err := m.predictions.Recent(ctx, lookback)
	if err != nil {
		return nil, fmt.Errorf("load recent predictions: %w", err)
	}

	report := &models.DriftReport{
		SampleSize: len(recs),
		Timestamp:  time.Now().UnixMilli(),
	}
	if len(recs) < m.opts.MinSample {
		report.Reason = models.DriftReasonInsufficient
		return report, nil
	}

	// Recs are ordered oldest first; the split point divides the reference
	// half from the half under test.
	mid := len(recs) / 2
	older, newer := recs[:mid], recs[mid:]

	report.ConfidenceDecline = avgConfidence(older) - avgConfidence(newer)
	report.LatencyIncreaseMs = avgLatency(newer) - avgLatency(older)

	if report.ConfidenceDecline > m.opts.ConfidenceThreshold {
		report.Detected = true
		report.Alerts = append(report.Alerts, models.DriftAlert{
			Type:      models.AlertConfidenceDrift,
			Severity:  models.SeverityHigh,
			Message:   fmt.Sprintf("mean confidence declined %.3f over the last %d predictions", report.ConfidenceDecline, len(recs)),
			Timestamp: report.Timestamp,
		})
	}
	if report.LatencyIncreaseMs > m.opts.LatencyThresholdMs {
		report.Detected = true
		report.Alerts = append(report.Alerts, models.DriftAlert{
			Type:      models.AlertLatencyDrift,
			Severity:  models.SeverityMedium,
			Message:   fmt.Sprintf("mean latency rose %.3fms over the last %d predictions", report.LatencyIncreaseMs, len(recs)),
			Timestamp: report.Timestamp,
		})
	}

	for _, alert := range report.Alerts {
		if err := m.alerts.Append(ctx, alert); err != nil {
			m.metrics.RecordError("alert_append")
			m.logger.Error("drift alert append failed",
				xlogger.String("type", alert.Type),
				xlogger.Error(err),
			)
		}
	}

	return report, nil
}

// Observe runs the per-prediction checks inline with the inference path.
// Alert writes must never slow or fail a prediction, so failures are logged
// and dropped.
func (m *Monitor) Observe(rec models.PredictionRecord, volatility float64) {
	now := time.Now().UnixMilli()
	var raised []models.DriftAlert

	if rec.Confidence < m.opts.InlineConfidenceMin {
		raised = append(raised, models.DriftAlert{
			Type:      models.AlertConfidence,
			Severity:  models.SeverityMedium,
			Message:   fmt.Sprintf("%s prediction confidence %.3f below %.2f", rec.Symbol, rec.Confidence, m.opts.InlineConfidenceMin),
			Timestamp: now,
		})
	}
	if volatility > m.opts.InlineVolatilityMax {
		raised = append(raised, models.DriftAlert{
			Type:      models.AlertVolatility,
			Severity:  models.SeverityHigh,
			Message:   fmt.Sprintf("%s volatility %.4f above %.2f", rec.Symbol, volatility, m.opts.InlineVolatilityMax),
			Timestamp: now,
		})
	}

	for _, alert := range raised {
		if err := m.alerts.Append(context.Background(), alert); err != nil {
			m.metrics.RecordError("alert_append")
			m.logger.Error("inline alert append failed",
				xlogger.String("type", alert.Type),
				xlogger.Error(err),
			)
		}
	}
}

// Alerts returns the unresolved alert backlog, newest first.
func (m *Monitor) Alerts(ctx context.Context, limit int) ([]models.DriftAlert, error) {
	if limit <= 0 {
		limit = 100
	}
	alerts, err := m.alerts.Unresolved(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load unresolved alerts: %w", err)
	}
	return alerts, nil
}

// Resolve marks alerts of the given type created at or before the cutoff as
// resolved.
func (m *Monitor) Resolve(ctx context.Context, alertType string, before int64) error {
	if err := m.alerts.Resolve(ctx, alertType, before); err != nil {
		return fmt.Errorf("resolve alerts: %w", err)
	}
	return nil
}

// Run sweeps the drift check on the configured interval until ctx ends.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := m.CheckDrift(ctx)
			if err != nil {
				m.logger.Error("scheduled drift check failed", xlogger.Error(err))
				continue
			}
			if report.Detected {
				m.logger.Warn("drift detected",
					xlogger.Float64("confidence_decline", report.ConfidenceDecline),
					xlogger.Float64("latency_increase_ms", report.LatencyIncreaseMs),
					xlogger.Int("alerts", len(report.Alerts)),
				)
			}
		}
	}
}

func avgConfidence(recs []models.PredictionRecord) float64 {
	if len(recs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range recs {
		sum += r.Confidence
	}
	return sum / float64(len(recs))
}

func avgLatency(recs []models.PredictionRecord) float64 {
	if len(recs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range recs {
		sum += r.LatencyMs
	}
	return sum / float64(len(recs))
}
