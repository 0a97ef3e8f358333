package models

// Canonical feature names produced by the extractor.
const (
	FeatSpread        = "spread"
	FeatFlowImbalance = "orderFlowImbalance"
	FeatSmartMoney    = "smartMoney"
	FeatSMA5          = "sma_5"
	FeatSMA10         = "sma_10"
	FeatMomentum      = "momentum"
	FeatVolatility    = "volatility"
	FeatVolumeSMA     = "volume_sma"
	FeatBidAskSpread  = "bid_ask_spread"
	FeatPriceSMARatio = "price_sma_ratio"
	FeatPrice         = "price"
	FeatVolume        = "volume"
)

// FeatureVector holds the named numeric features derived from a tick window
// plus the latest order-book snapshot. All values are finite; extraction
// substitutes 0 where a denominator would be zero.
type FeatureVector struct {
	Symbol    string             `json:"symbol"`
	Timestamp int64              `json:"timestamp"`
	Features  map[string]float64 `json:"features"`
}

// Get returns the named feature or 0 when absent.
func (v *FeatureVector) Get(name string) float64 {
	if v == nil || v.Features == nil {
		return 0
	}
	return v.Features[name]
}
