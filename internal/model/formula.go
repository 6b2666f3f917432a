package model

import (
	"fmt"
	"math"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// Formula is the arithmetic estimator used when no trained forest is
// deployed:
//
//	flood   = round2(humidity/100 * (rainfall/10 + 0.3))
//	cyclone = round2(temperature/40 * (pressure/1000 + 0.2))
//
// Results are clamped to [0, 1].
type Formula struct {
	hazard   domain.Hazard
	features []string
	estimate func(x []float64) float64
}

// NewFormula returns the estimator for hazard.
func NewFormula(hazard domain.Hazard) (*Formula, error) {
	switch hazard {
	case domain.HazardFlood:
		return &Formula{
			hazard:   hazard,
			features: []string{"Humidity (%)", "Rainfall (mm)"},
			estimate: func(x []float64) float64 { return x[0] / 100 * (x[1]/10 + 0.3) },
		}, nil
	case domain.HazardCyclone:
		return &Formula{
			hazard:   hazard,
			features: []string{"Temperature (°C)", "Pressure (hPa)"},
			estimate: func(x []float64) float64 { return x[0] / 40 * (x[1]/1000 + 0.2) },
		}, nil
	default:
		return nil, fmt.Errorf("no formula for hazard %q", hazard)
	}
}

// FeatureNames returns the formula's inputs.
func (f *Formula) FeatureNames() []string {
	return append([]string(nil), f.features...)
}

// PredictProba evaluates the formula.
func (f *Formula) PredictProba(x []float64) ([2]float64, error) {
	if len(x) != len(f.features) {
		return [2]float64{}, fmt.Errorf("%s formula: expected %d features, got %d", f.hazard, len(f.features), len(x))
	}
	p := clamp01(round2(f.estimate(x)))
	return [2]float64{1 - p, p}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
