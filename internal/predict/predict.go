// Package predict scores voyage feature vectors against a fitted excess
// consumption model. The model artifact is a JSON dump of an additive
// regression tree ensemble; when no artifact is configured a deterministic
// heuristic stands in so the service can serve predictions cold.
package predict

import (
	"fmt"
	"math"
)

// DefaultGlobalEfficiency is the fleet-wide efficiency factor applied when
// no calibration is available for the requested ship.
const DefaultGlobalEfficiency = 0.004158

// Info describes a fitted predictor for status and model endpoints.
type Info struct {
	Name     string   `json:"model_name"`
	Version  string   `json:"model_version"`
	Kind     string   `json:"model_type"`
	Features []string `json:"features"`
	Trees    int      `json:"tree_count,omitempty"`
}

// Predictor produces an excess consumption ratio from an assembled feature
// vector. Implementations must be safe for concurrent use.
type Predictor interface {
	// Predict returns the predicted excess ratio for one feature vector
	// ordered to match Features.
	Predict(features []float64) (float64, error)

	// Features lists the model inputs in scoring order.
	Features() []string

	// Info describes the model.
	Info() Info
}

var (
	_ Predictor = (*Ensemble)(nil)
	_ Predictor = Heuristic{}
)

// Heuristic growth curve constants. A hull fouls toward a ceiling excess
// ratio over roughly a year laid up, faster the more of the recent window
// the ship spent idle.
const (
	heuristicMaxRatio  = 0.35
	heuristicScaleDays = 400.0
	heuristicIdleBoost = 1.5
)

// Heuristic is the fallback predictor used when no model artifact is
// configured. It maps time since the last hull cleaning to an excess ratio
// along a saturating growth curve, accelerated by recent idle exposure.
type Heuristic struct{}

// Predict evaluates the growth curve on the days-since-cleaning and idle
// fraction positions of the training layout.
func (Heuristic) Predict(features []float64) (float64, error) {
	if len(features) != len(TrainingFeatures) {
		return 0, fmt.Errorf("feature vector has %d values, heuristic expects %d", len(features), len(TrainingFeatures))
	}
	days := features[idxDaysSinceCleaning]
	if math.IsNaN(days) || days <= 0 {
		return 0, nil
	}
	pct := features[idxPctIdleRecent]
	if math.IsNaN(pct) || pct < 0 {
		pct = 0
	}
	effectiveDays := days * (1 + heuristicIdleBoost*pct)
	return heuristicMaxRatio * (1 - math.Exp(-effectiveDays/heuristicScaleDays)), nil
}

// Features returns the training feature layout.
func (Heuristic) Features() []string {
	out := make([]string, len(TrainingFeatures))
	copy(out, TrainingFeatures)
	return out
}

// Info identifies the heuristic.
func (h Heuristic) Info() Info {
	return Info{
		Name:     "fouling-growth-heuristic",
		Version:  "builtin",
		Kind:     "heuristic",
		Features: h.Features(),
	}
}
