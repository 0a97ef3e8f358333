package drift

import (
	"context"
	"testing"

	"QuantPulse/internal/domain/models"
	xlogger "QuantPulse/pkg/logger"
)

type fakePredictionLog struct {
	recs []models.PredictionRecord
}

func (f *fakePredictionLog) Append(_ context.Context, rec models.PredictionRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakePredictionLog) Recent(_ context.Context, n int) ([]models.PredictionRecord, error) {
	if n > len(f.recs) {
		n = len(f.recs)
	}
	return f.recs[len(f.recs)-n:], nil
}

type fakeAlertLog struct {
	alerts []models.DriftAlert
}

func (f *fakeAlertLog) Append(_ context.Context, alert models.DriftAlert) error {
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeAlertLog) Unresolved(_ context.Context, limit int) ([]models.DriftAlert, error) {
	var out []models.DriftAlert
	for i := len(f.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if !f.alerts[i].Resolved {
			out = append(out, f.alerts[i])
		}
	}
	return out, nil
}

func (f *fakeAlertLog) Resolve(_ context.Context, alertType string, before int64) error {
	for i := range f.alerts {
		if f.alerts[i].Type == alertType && f.alerts[i].Timestamp <= before {
			f.alerts[i].Resolved = true
		}
	}
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordTickIngested(string, string)          {}
func (nopMetrics) RecordFeedStatus(string, models.FeedStatus) {}
func (nopMetrics) RecordError(string)                         {}
func (nopMetrics) RecordLastPrice(string, float64)            {}
func (nopMetrics) RecordLatency(string, float64)              {}
func (nopMetrics) RecordPrediction(string, float64, float64)  {}

func testMonitor(t *testing.T, preds *fakePredictionLog, alerts *fakeAlertLog) *Monitor {
	t.Helper()
	lg, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewMonitor(preds, alerts, nopMetrics{}, lg, Options{})
}

func fill(preds *fakePredictionLog, n int, confidence, latencyMs float64) {
	for i := 0; i < n; i++ {
		preds.recs = append(preds.recs, models.PredictionRecord{
			Symbol:     "BTCUSD",
			Confidence: confidence,
			LatencyMs:  latencyMs,
		})
	}
}

func TestCheckDriftInsufficientData(t *testing.T) {
	preds := &fakePredictionLog{}
	alerts := &fakeAlertLog{}
	fill(preds, 49, 0.8, 1.0)

	report, err := testMonitor(t, preds, alerts).CheckDrift(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.Detected {
		t.Fatal("should not detect drift below the minimum sample")
	}
	if report.Reason != models.DriftReasonInsufficient {
		t.Fatalf("expected insufficient_data, got %q", report.Reason)
	}
	if report.SampleSize != 49 {
		t.Fatalf("expected sample size 49, got %d", report.SampleSize)
	}
	if len(alerts.alerts) != 0 {
		t.Fatalf("no alerts expected, got %d", len(alerts.alerts))
	}
}

func TestCheckDriftConfidenceDecline(t *testing.T) {
	preds := &fakePredictionLog{}
	alerts := &fakeAlertLog{}
	fill(preds, 50, 0.8, 1.0) // older half
	fill(preds, 50, 0.5, 1.0) // newer half, 0.3 decline

	report, err := testMonitor(t, preds, alerts).CheckDrift(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !report.Detected {
		t.Fatal("expected drift")
	}
	if d := report.ConfidenceDecline; d < 0.29 || d > 0.31 {
		t.Fatalf("expected decline ~0.3, got %v", d)
	}
	if len(report.Alerts) != 1 || report.Alerts[0].Type != models.AlertConfidenceDrift {
		t.Fatalf("unexpected alerts %+v", report.Alerts)
	}
	if report.Alerts[0].Severity != models.SeverityHigh {
		t.Fatalf("expected high severity, got %s", report.Alerts[0].Severity)
	}
	if len(alerts.alerts) != 1 {
		t.Fatalf("alert not persisted, got %d", len(alerts.alerts))
	}
}

func TestCheckDriftLatencyIncrease(t *testing.T) {
	preds := &fakePredictionLog{}
	alerts := &fakeAlertLog{}
	fill(preds, 50, 0.8, 1.0)
	fill(preds, 50, 0.8, 2.0) // 1ms increase

	report, err := testMonitor(t, preds, alerts).CheckDrift(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !report.Detected {
		t.Fatal("expected drift")
	}
	if len(report.Alerts) != 1 || report.Alerts[0].Type != models.AlertLatencyDrift {
		t.Fatalf("unexpected alerts %+v", report.Alerts)
	}
	if report.Alerts[0].Severity != models.SeverityMedium {
		t.Fatalf("expected medium severity, got %s", report.Alerts[0].Severity)
	}
}

func TestCheckDriftSteadyState(t *testing.T) {
	preds := &fakePredictionLog{}
	alerts := &fakeAlertLog{}
	fill(preds, 100, 0.8, 1.0)

	report, err := testMonitor(t, preds, alerts).CheckDrift(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.Detected {
		t.Fatalf("steady window flagged drift: %+v", report)
	}
	if report.Reason != "" {
		t.Fatalf("unexpected reason %q", report.Reason)
	}
}

func TestObserveLowConfidence(t *testing.T) {
	alerts := &fakeAlertLog{}
	m := testMonitor(t, &fakePredictionLog{}, alerts)

	m.Observe(models.PredictionRecord{Symbol: "BTCUSD", Confidence: 0.2}, 0.01)

	if len(alerts.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts.alerts))
	}
	a := alerts.alerts[0]
	if a.Type != models.AlertConfidence || a.Severity != models.SeverityMedium {
		t.Fatalf("unexpected alert %+v", a)
	}
}

func TestObserveHighVolatility(t *testing.T) {
	alerts := &fakeAlertLog{}
	m := testMonitor(t, &fakePredictionLog{}, alerts)

	m.Observe(models.PredictionRecord{Symbol: "BTCUSD", Confidence: 0.9}, 0.08)

	if len(alerts.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts.alerts))
	}
	a := alerts.alerts[0]
	if a.Type != models.AlertVolatility || a.Severity != models.SeverityHigh {
		t.Fatalf("unexpected alert %+v", a)
	}
}

func TestObserveHealthyPrediction(t *testing.T) {
	alerts := &fakeAlertLog{}
	m := testMonitor(t, &fakePredictionLog{}, alerts)

	m.Observe(models.PredictionRecord{Symbol: "BTCUSD", Confidence: 0.9}, 0.01)

	if len(alerts.alerts) != 0 {
		t.Fatalf("no alerts expected, got %d", len(alerts.alerts))
	}
}

func TestResolve(t *testing.T) {
	alerts := &fakeAlertLog{}
	m := testMonitor(t, &fakePredictionLog{}, alerts)

	m.Observe(models.PredictionRecord{Symbol: "BTCUSD", Confidence: 0.2}, 0.01)
	m.Observe(models.PredictionRecord{Symbol: "ETHUSD", Confidence: 0.9}, 0.08)

	if err := m.Resolve(context.Background(), models.AlertConfidence, alerts.alerts[0].Timestamp); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	open, err := m.Alerts(context.Background(), 10)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(open) != 1 || open[0].Type != models.AlertVolatility {
		t.Fatalf("unexpected unresolved set %+v", open)
	}
}
