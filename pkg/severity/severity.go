// Package severity maps biofouling index values onto the operational bands
// maintenance planners act on.
package severity

import "math"

// Index thresholds on the 0-10 biofouling scale.
const (
	// DefaultRiskThreshold is the floor for the high-risk fleet report.
	DefaultRiskThreshold = 7.0

	// CleaningFloor is the index at which hull cleaning is recommended
	// outright rather than watch-listed.
	CleaningFloor = 8.0
)

// Maintenance recommendations.
const (
	RecommendClean   = "Cleaning recommended"
	RecommendMonitor = "Monitor closely"
)

// Band labels. These correspond to the standard excess ratio cutpoints
// mapped through the index sigmoid: 10% excess lands at index 5.0 and 20%
// excess at index 7.3.
const (
	BandLight    = "Light"
	BandModerate = "Moderate"
	BandSevere   = "Severe"
	BandUnknown  = "Unknown"
)

// Band returns the severity band for a 0-10 biofouling index.
func Band(index float64) string {
	switch {
	case math.IsNaN(index):
		return BandUnknown
	case index < 5.0:
		return BandLight
	case index < 7.3:
		return BandModerate
	default:
		return BandSevere
	}
}

// Recommendation maps a ship's worst observed index to the action the
// maintenance planner should take.
func Recommendation(maxIndex float64) string {
	if maxIndex >= CleaningFloor {
		return RecommendClean
	}
	return RecommendMonitor
}
