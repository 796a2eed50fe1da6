// Package fouling implements the physics-calibrated baseline and biofouling
// severity pipeline: expected clean-hull fuel consumption from an admiralty
// power model with per-vessel calibration, excess-consumption ratios against
// observed burn, a bounded sigmoid severity index with qualitative
// classification, and cost/emissions impact estimates.
package fouling

import (
	"fmt"
	"math"
)

// Params defines all tunable constants of the pipeline. A Params value is
// immutable once handed to a component; there is no package-level state.
type Params struct {
	// IdleSpeedThreshold is the speed in knots below which a leg counts as
	// idle time (e.g., 5.0)
	IdleSpeedThreshold float64 `json:"idle_speed_threshold"`

	// RollingWindowDays is the trailing window for the idle-time fraction,
	// in days (e.g., 30)
	RollingWindowDays int `json:"rolling_window_days"`

	// HistoricalSpeedEvents is the number of prior events averaged into
	// historical_avg_speed (e.g., 10)
	HistoricalSpeedEvents int `json:"historical_speed_events"`

	// AdmiraltyScaleFactor divides the admiralty power term and scales the
	// draft substitute when displacement is missing (e.g., 10000)
	AdmiraltyScaleFactor float64 `json:"admiralty_scale_factor"`

	// CleanThresholdDays marks an event as "clean hull" for calibration when
	// days_since_cleaning is below it (e.g., 90)
	CleanThresholdDays float64 `json:"clean_threshold_days"`

	// CalibratePerShip enables per-vessel efficiency factors with a global
	// median fallback; when false every ship uses the global factor
	CalibratePerShip bool `json:"calibrate_per_ship"`

	// MinCleanEvents is the minimum number of qualifying clean events a ship
	// needs for its own factor; ships below it use the global fallback (1
	// accepts any)
	MinCleanEvents int `json:"min_clean_events"`

	// SigmoidK is the steepness of the index transform (e.g., 10)
	SigmoidK float64 `json:"sigmoid_k"`

	// SigmoidMidpoint is the excess ratio mapped to index 0.5 (e.g., 0.10)
	SigmoidMidpoint float64 `json:"sigmoid_midpoint"`

	// FuelPriceUSDPerTon converts additional fuel to cost (e.g., 500)
	FuelPriceUSDPerTon float64 `json:"fuel_price_usd_per_ton"`

	// CO2TonPerFuelTon converts additional fuel to emissions (e.g., 3.114)
	CO2TonPerFuelTon float64 `json:"co2_ton_per_fuel_ton"`

	// MinConsumptionTons drops sessions whose summed consumption is at or
	// below it (e.g., 0.1)
	MinConsumptionTons float64 `json:"min_consumption_tons"`

	// TrimLowerQuantile and TrimUpperQuantile bound the consumption
	// distribution; rows outside [P(lower), P(upper)] are trimmed
	// (e.g., 0.01 and 0.99)
	TrimLowerQuantile float64 `json:"trim_lower_quantile"`
	TrimUpperQuantile float64 `json:"trim_upper_quantile"`

	// RatioMin and RatioMax bound plausible excess ratios; rows outside the
	// open interval are excluded from reports and training (e.g., -0.5, 1.0)
	RatioMin float64 `json:"ratio_min"`
	RatioMax float64 `json:"ratio_max"`

	// ReferencePercentile and ReferenceFloor control the dynamic descriptive
	// reference: P(percentile) of the run's ratios, floored (e.g., 0.75, 0.05).
	// The reference never feeds classification or the sigmoid.
	ReferencePercentile float64 `json:"reference_percentile"`
	ReferenceFloor      float64 `json:"reference_floor"`

	// SPCKeyword marks self-polishing copolymer coatings in paint labels
	SPCKeyword string `json:"spc_keyword"`

	// PaintPenaltyThreshold and PaintPenaltyFactor derate SPC coatings on
	// ships idling above the threshold (e.g., 0.3 and 0.8)
	PaintPenaltyThreshold float64 `json:"paint_penalty_threshold"`
	PaintPenaltyFactor    float64 `json:"paint_penalty_factor"`
}

// idleEpsilon pads the idle-window denominator so an empty window divides to
// zero instead of NaN.
const idleEpsilon = 1e-6

// DefaultParams returns the calibrated production defaults.
func DefaultParams() Params {
	return Params{
		IdleSpeedThreshold:    5.0,
		RollingWindowDays:     30,
		HistoricalSpeedEvents: 10,
		AdmiraltyScaleFactor:  10000,
		CleanThresholdDays:    90,
		CalibratePerShip:      true,
		MinCleanEvents:        1,
		SigmoidK:              10,
		SigmoidMidpoint:       0.10,
		FuelPriceUSDPerTon:    500,
		CO2TonPerFuelTon:      3.114,
		MinConsumptionTons:    0.1,
		TrimLowerQuantile:     0.01,
		TrimUpperQuantile:     0.99,
		RatioMin:              -0.5,
		RatioMax:              1.0,
		ReferencePercentile:   0.75,
		ReferenceFloor:        0.05,
		SPCKeyword:            "SPC",
		PaintPenaltyThreshold: 0.3,
		PaintPenaltyFactor:    0.8,
	}
}

// Validate checks internal consistency of the parameter set.
func (p Params) Validate() error {
	if p.IdleSpeedThreshold < 0 {
		return fmt.Errorf("idle speed threshold must be >= 0, got %v", p.IdleSpeedThreshold)
	}
	if p.RollingWindowDays <= 0 {
		return fmt.Errorf("rolling window must be positive, got %d", p.RollingWindowDays)
	}
	if p.HistoricalSpeedEvents <= 0 {
		return fmt.Errorf("historical speed window must be positive, got %d", p.HistoricalSpeedEvents)
	}
	if p.AdmiraltyScaleFactor <= 0 {
		return fmt.Errorf("admiralty scale factor must be positive, got %v", p.AdmiraltyScaleFactor)
	}
	if p.CleanThresholdDays <= 0 {
		return fmt.Errorf("clean threshold must be positive, got %v", p.CleanThresholdDays)
	}
	if p.MinCleanEvents < 1 {
		return fmt.Errorf("minimum clean events must be >= 1, got %d", p.MinCleanEvents)
	}
	if p.SigmoidK <= 0 {
		return fmt.Errorf("sigmoid k must be positive, got %v", p.SigmoidK)
	}
	if p.TrimLowerQuantile < 0 || p.TrimUpperQuantile > 1 || p.TrimLowerQuantile >= p.TrimUpperQuantile {
		return fmt.Errorf("trim quantiles must satisfy 0 <= lower < upper <= 1, got [%v, %v]",
			p.TrimLowerQuantile, p.TrimUpperQuantile)
	}
	if p.RatioMin >= p.RatioMax {
		return fmt.Errorf("ratio bounds must satisfy min < max, got [%v, %v]", p.RatioMin, p.RatioMax)
	}
	if p.ReferencePercentile <= 0 || p.ReferencePercentile >= 1 {
		return fmt.Errorf("reference percentile must be in (0, 1), got %v", p.ReferencePercentile)
	}
	if math.IsNaN(p.FuelPriceUSDPerTon) || p.FuelPriceUSDPerTon < 0 {
		return fmt.Errorf("fuel price must be >= 0, got %v", p.FuelPriceUSDPerTon)
	}
	if p.CO2TonPerFuelTon < 0 {
		return fmt.Errorf("CO2 factor must be >= 0, got %v", p.CO2TonPerFuelTon)
	}
	return nil
}
