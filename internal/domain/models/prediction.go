package models

import "time"

// PredictionRecord is one entry of the append-only prediction log.
// Records are immutable once appended; prediction is in [-1,1] and
// confidence = min(|prediction|+0.1, cap) for the path that produced it.
type PredictionRecord struct {
	Symbol       string             `json:"symbol"`
	Prediction   float64            `json:"prediction"`
	Confidence   float64            `json:"confidence"`
	LatencyMs    float64            `json:"latency_ms"`
	Timestamp    int64              `json:"timestamp"`
	ModelVersion string             `json:"model_version"`
	Features     map[string]float64 `json:"features,omitempty"`
}

// ModelDeployment is the single-row active model metadata.
type ModelDeployment struct {
	Version    string    `json:"version"`
	DeployedAt time.Time `json:"deployed_at"`
	Status     string    `json:"status"` // "active", "retired"
}
