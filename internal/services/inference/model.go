package inference

import (
	"QuantPulse/internal/domain/models"
	domsvc "QuantPulse/internal/domain/service"
)

// LinearModel is the default fixed-weight scoring function. It is a
// placeholder for a trained model: the engine only depends on the Model
// interface, so a real scorer can be swapped in without touching the
// serving path.
type LinearModel struct {
	version string
	weights map[string]float64
	bias    float64
}

// NewLinearModel builds the default model. An empty version falls back to
// "linear-v1".
func NewLinearModel(version string) *LinearModel {
	if version == "" {
		version = "linear-v1"
	}
	return &LinearModel{
		version: version,
		weights: map[string]float64{
			models.FeatMomentum:      0.45,
			models.FeatFlowImbalance: 0.30,
			models.FeatSmartMoney:    0.15,
			models.FeatPriceSMARatio: 0.25,
			models.FeatVolatility:    -0.20,
			models.FeatSpread:        -0.10,
			models.FeatBidAskSpread:  -0.05,
		},
		bias: 0,
	}
}

func (m *LinearModel) Version() string { return m.version }

// Score computes the weighted sum of normalized features. Unknown features
// are ignored so the same model serves both the full and stream paths.
func (m *LinearModel) Score(features map[string]float64) float64 {
	sum := m.bias
	for name, w := range m.weights {
		if v, ok := features[name]; ok {
			sum += w * v
		}
	}
	return sum
}

var _ domsvc.Model = (*LinearModel)(nil)
