package repository

import (
	"context"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	pkgkafka "QuantPulse/pkg/kafka"
)

// KafkaPublisher pushes normalized ticks to the bus, keyed by symbol so
// per-symbol ordering survives partitioning.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func tickPayload(t *models.Tick) map[string]interface{} {
	payload := map[string]interface{}{
		"symbol":   t.Symbol,
		"exchange": t.Exchange,
		"t":        t.Timestamp,
		"c":        t.Price,
		"v":        t.Volume,
	}
	if t.HasQuote {
		payload["b"] = t.Bid
		payload["a"] = t.Ask
	}
	return payload
}

func (p *KafkaPublisher) Publish(ctx context.Context, t *models.Tick) error {
	return p.producer.Publish(ctx, p.topic, []byte(t.Symbol), tickPayload(t))
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, ticks []models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i := range ticks {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(ticks[i].Symbol),
			Value: tickPayload(&ticks[i]),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
