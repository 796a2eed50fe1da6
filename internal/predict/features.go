package predict

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/hullwatch/hullwatch/internal/fouling"
)

// TrainingFeatures is the scoring order of the eight voyage features the
// excess consumption model is fitted on.
var TrainingFeatures = []string{
	"speed",
	"beaufortScale",
	"days_since_cleaning",
	"pct_idle_recent",
	"accumulated_fouling_risk",
	"historical_avg_speed",
	"paint_x_speed",
	"paint_encoded",
}

// HydroFeatures extends the training layout for models fitted with the hull
// friction chain appended.
var HydroFeatures = []string{
	"reynolds_number",
	"friction_coefficient",
	"delta_roughness",
	"power_penalty",
}

// Positions within TrainingFeatures, fixed by the fitted artifacts.
const (
	idxSpeed = iota
	idxBeaufort
	idxDaysSinceCleaning
	idxPctIdleRecent
	idxFoulingRisk
	idxHistoricalSpeed
	idxPaintXSpeed
	idxPaintEncoded
)

// OperationalFeatures returns the training features extended with the
// hydrodynamic chain, the twelve-column layout batch scoring uses.
func OperationalFeatures() []string {
	out := make([]string, 0, len(TrainingFeatures)+len(HydroFeatures))
	out = append(out, TrainingFeatures...)
	return append(out, HydroFeatures...)
}

// LoadEncodingFile reads a stored paint encoding table, a JSON object of
// label to code. Scoring against a fitted model must use the codes the model
// trained on, not whatever the current run derived.
func LoadEncodingFile(path string) (fouling.PaintEncoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encoding %s: %w", path, err)
	}
	var enc fouling.PaintEncoding
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("parse encoding %s: %w", path, err)
	}
	return enc, nil
}

// Input carries one voyage's raw characteristics for scoring. Optional
// numeric fields use NaN when unknown.
type Input struct {
	SpeedKnots         float64
	BeaufortScale      float64
	DaysSinceCleaning  float64
	PctIdleRecent      float64
	HistoricalAvgSpeed float64
	PaintType          string
}

// Vector assembles the feature values for names, in order. An unknown
// historical average speed falls back to the current speed, an empty paint
// label to Generic and an unencoded one to code zero, and every remaining
// unknown, including names outside the recognized set, fills with zero.
func Vector(in Input, names []string, enc fouling.PaintEncoding) []float64 {
	paint := in.PaintType
	if paint == "" {
		paint = "Generic"
	}
	code := 0
	if c, ok := enc.Code(paint); ok {
		code = c
	}
	hydro := fouling.HydroForSpeed(in.SpeedKnots)

	out := make([]float64, len(names))
	for i, name := range names {
		out[i] = zeroIfNaN(featureValue(name, in, code, hydro))
	}
	return out
}

func featureValue(name string, in Input, paintCode int, hydro fouling.HydroState) float64 {
	switch name {
	case "speed":
		return in.SpeedKnots
	case "beaufortScale":
		return in.BeaufortScale
	case "days_since_cleaning":
		return in.DaysSinceCleaning
	case "pct_idle_recent":
		return in.PctIdleRecent
	case "accumulated_fouling_risk":
		return zeroIfNaN(in.PctIdleRecent) * zeroIfNaN(in.DaysSinceCleaning)
	case "historical_avg_speed":
		if math.IsNaN(in.HistoricalAvgSpeed) {
			return in.SpeedKnots
		}
		return in.HistoricalAvgSpeed
	case "paint_x_speed":
		return float64(paintCode) * in.SpeedKnots
	case "paint_encoded":
		return float64(paintCode)
	case "reynolds_number":
		return hydro.ReynoldsNumber
	case "friction_coefficient":
		return hydro.FrictionCoefficient
	case "delta_roughness":
		return hydro.DeltaRoughness
	case "power_penalty":
		return hydro.PowerPenalty
	}
	return 0
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
