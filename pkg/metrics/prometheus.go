package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"QuantPulse/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksIngested *prometheus.CounterVec
	feedStatus    *prometheus.GaugeVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	prediction    *prometheus.GaugeVec
	confidence    *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantpulse_ticks_ingested_total",
				Help: "Total number of ticks accepted after dedup",
			},
			[]string{"exchange", "symbol"},
		),
		feedStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantpulse_feed_up",
				Help: "Feed health: 1 connected, 0.5 stale, 0 error",
			},
			[]string{"exchange"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantpulse_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.0005, .001, .002, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
		prediction: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantpulse_last_prediction",
				Help: "Last prediction value for a symbol",
			},
			[]string{"symbol"},
		),
		confidence: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantpulse_prediction_confidence",
				Help:    "Distribution of prediction confidence",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"symbol"},
		),
	}
}

// RecordTickIngested counts one tick accepted after dedup.
func (r *Recorder) RecordTickIngested(exchange, symbol string) {
	r.ticksIngested.WithLabelValues(exchange, symbol).Inc()
}

// RecordFeedStatus records the per-cycle feed health verdict.
func (r *Recorder) RecordFeedStatus(exchange string, status models.FeedStatus) {
	v := 0.0
	switch status {
	case models.FeedConnected:
		v = 1
	case models.FeedStale:
		v = 0.5
	}
	r.feedStatus.WithLabelValues(exchange).Set(v)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordPrediction records the outcome of one inference call.
func (r *Recorder) RecordPrediction(symbol string, value, confidence float64) {
	r.prediction.WithLabelValues(symbol).Set(value)
	r.confidence.WithLabelValues(symbol).Observe(confidence)
}
