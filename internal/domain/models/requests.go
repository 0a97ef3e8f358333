package models

// Requests for the pipeline HTTP endpoints. Defined in domain for consistency and reuse.

type IngestRequest struct {
	Symbols   []string `json:"symbols" validate:"required,min=1,dive,required"`
	Exchanges []string `json:"exchanges" validate:"required,min=1,dive,required"`
}

type PredictRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

type BatchPredictRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,lte=100,dive,required"`
}

type StreamPredictRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	Ticks  []Tick `json:"ticks" validate:"required,min=1,lte=1000"`
}

// InferenceRequest is the routed inference trigger: action selects the path,
// the remaining fields carry the action-specific payload.
type InferenceRequest struct {
	Action  string   `json:"action" default:"predict" validate:"oneof=predict batch_predict stream_predict"`
	Symbol  string   `json:"symbol"`
	Symbols []string `json:"symbols"`
	Ticks   []Tick   `json:"ticks"`
}

type DriftCheckRequest struct {
	Lookback int `query:"lookback" json:"lookback" default:"100" validate:"gte=1,lte=10000"`
}

type AlertsRequest struct {
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// ResolveAlertRequest marks alerts of one type as handled. Before accepts
// RFC3339 or unix seconds; empty means now.
type ResolveAlertRequest struct {
	Type   string `json:"type" validate:"required,oneof=confidence_drift latency_drift confidence volatility"`
	Before string `json:"before" validate:"omitempty"`
}
