package service

import "QuantPulse/internal/domain/models"

// Model is a pluggable scoring function. Score receives the normalized
// feature vector and returns a raw activation; the inference engine clamps
// it to [-1,1] through tanh and derives confidence. Implementations must be
// safe for concurrent use.
type Model interface {
	Version() string
	Score(features map[string]float64) float64
}

// FeatureExtractor derives a feature vector from a tick window and the latest
// order-book snapshot for the symbol.
type FeatureExtractor interface {
	Extract(window []models.Tick, book *models.OrderBookSnapshot) (*models.FeatureVector, error)
	ExtractStream(window []models.Tick) (*models.FeatureVector, error)
}
