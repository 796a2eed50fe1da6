package fouling

import (
	"math"
	"sort"

	"github.com/hullwatch/hullwatch/internal/types"
)

// ExcessRatio is the fractional difference between observed and baseline
// consumption. A non-positive baseline has no meaningful ratio and yields
// NaN.
func ExcessRatio(observed, baseline float64) float64 {
	if math.IsNaN(observed) || math.IsNaN(baseline) || baseline <= 0 {
		return math.NaN()
	}
	return (observed - baseline) / baseline
}

// BioIndex maps an excess ratio to the (0,1) severity scale through the
// sigmoid 1/(1+exp(-k(r-mid))). The transform saturates smoothly for extreme
// ratios; stableSigmoid keeps the exponential from overflowing. NaN in, NaN
// out.
func BioIndex(ratio float64, p Params) float64 {
	if math.IsNaN(ratio) {
		return math.NaN()
	}
	idx := stableSigmoid(p.SigmoidK * (ratio - p.SigmoidMidpoint))
	// The sigmoid is already bounded; the clip only guards rounding dust.
	return math.Min(1, math.Max(0, idx))
}

// BioIndex0To10 is the reported severity index: BioIndex scaled to 0-10 and
// rounded to one decimal.
func BioIndex0To10(ratio float64, p Params) float64 {
	idx := BioIndex(ratio, p)
	if math.IsNaN(idx) {
		return math.NaN()
	}
	return math.Round(idx*100) / 10
}

// stableSigmoid evaluates 1/(1+exp(-x)) without overflowing for large |x|.
func stableSigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Classify assigns the qualitative severity class from the raw excess ratio.
// The thresholds are fixed; the dynamic reference percentile never
// participates. Classification depends on nothing but the ratio.
func Classify(ratio float64) string {
	switch {
	case math.IsNaN(ratio):
		return types.ClassUnknown
	case ratio < 0.10:
		return types.ClassLight
	case ratio < 0.20:
		return types.ClassModerate
	default:
		return types.ClassSevere
	}
}

// DynamicReference is the descriptive reference ratio for a run: the
// configured percentile of the observed excess ratios, floored. It is
// reported alongside the run for fleet benchmarking and is not an input to
// the index or the classification.
func DynamicReference(ratios []float64, p Params) float64 {
	clean := make([]float64, 0, len(ratios))
	for _, r := range ratios {
		if !math.IsNaN(r) {
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		return p.ReferenceFloor
	}
	sort.Float64s(clean)
	return math.Max(quantileLinear(p.ReferencePercentile, clean), p.ReferenceFloor)
}
