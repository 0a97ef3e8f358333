package usecase

import (
	"context"
	"encoding/json"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	pkgkafka "QuantPulse/pkg/kafka"
)

// KafkaTicksHandler consumes published ticks back off the bus and writes
// them to storage. Runs when the service is deployed as a standalone
// consumer, decoupling ingestion from persistence.
type KafkaTicksHandler struct {
	topic   string
	store   domrepo.TickStore
	metrics domrepo.Metrics
}

func NewKafkaTicksHandler(topic string, store domrepo.TickStore, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, exchange, t, c, v, b?, a?}
func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol   string  `json:"symbol"`
		Exchange string  `json:"exchange"`
		T        int64   `json:"t"`
		C        float64 `json:"c"`
		V        float64 `json:"v"`
		Bid      float64 `json:"b"`
		Ask      float64 `json:"a"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.UnixMilli(m.T)).Seconds())

	tick := models.Tick{
		Symbol:    m.Symbol,
		Exchange:  m.Exchange,
		Price:     m.C,
		Volume:    m.V,
		Timestamp: m.T,
	}
	if m.Bid > 0 && m.Ask > 0 {
		tick.Bid = m.Bid
		tick.Ask = m.Ask
		tick.Spread = m.Ask - m.Bid
		tick.HasQuote = true
	}

	start := time.Now()
	err := h.store.StoreTicks(ctx, []models.Tick{tick})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordTickIngested(m.Exchange, m.Symbol)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
