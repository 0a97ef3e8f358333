package models

// FeedsStatus reports ingestion throughput over the trailing window.
type FeedsStatus struct {
	Healthy    bool           `json:"healthy"`
	TickCounts map[string]int `json:"tick_counts"` // per exchange, last 5 minutes
	WindowSecs int            `json:"window_secs"`
}

// ModelStatus reports active model freshness against the staleness threshold.
type ModelStatus struct {
	Healthy      bool    `json:"healthy"`
	Version      string  `json:"version,omitempty"`
	AgeDays      float64 `json:"age_days"`
	MaxAgeDays   float64 `json:"max_age_days"`
	ActiveExists bool    `json:"active_exists"`
}

// InferenceStatus reports serving latency against the budget targets.
type InferenceStatus struct {
	Healthy     bool    `json:"healthy"`
	AvgMs       float64 `json:"avg_ms"`
	P95Ms       float64 `json:"p95_ms"`
	AvgTargetMs float64 `json:"avg_target_ms"`
	P95TargetMs float64 `json:"p95_target_ms"`
	SampleSize  int     `json:"sample_size"`
}

// SystemStatus composes the three sub-checks; Overall is a strict AND.
type SystemStatus struct {
	DataFeeds FeedsStatus     `json:"dataFeeds"`
	Model     ModelStatus     `json:"model"`
	Inference InferenceStatus `json:"inference"`
	Overall   bool            `json:"overall"`
	Timestamp int64           `json:"timestamp"`
}
