package models

// Alert types raised by the drift monitor.
const (
	AlertConfidenceDrift = "confidence_drift"
	AlertLatencyDrift    = "latency_drift"
	AlertConfidence      = "confidence"
	AlertVolatility      = "volatility"
)

// Alert severities, ordered.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// DriftAlert is created once per breach event and appended to the unresolved
// alert log. Resolution is an external action, never automatic.
type DriftAlert struct {
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Resolved  bool   `json:"resolved"`
}

// DriftReasonInsufficient marks the defined "no signal" drift result.
const DriftReasonInsufficient = "insufficient_data"

// DriftReport is the outcome of a windowed drift check. When the lookback
// holds too few predictions, Detected is false and Reason is
// DriftReasonInsufficient; that is a result, not an error.
type DriftReport struct {
	Detected          bool         `json:"drift_detected"`
	Reason            string       `json:"reason,omitempty"`
	SampleSize        int          `json:"sample_size"`
	ConfidenceDecline float64      `json:"confidence_decline"`
	LatencyIncreaseMs float64      `json:"latency_increase_ms"`
	Alerts            []DriftAlert `json:"alerts,omitempty"`
	Timestamp         int64        `json:"timestamp"`
}
