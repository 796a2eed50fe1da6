package types

import (
	"math"
	"time"
)

// VoyageEvent is one navigation session for one ship, as ingested from the
// fleet telemetry exports. ShipName is normalized (uppercase, trimmed) by the
// loaders. Displacement and MidDraft may be zero when the export omits them;
// the baseline estimator substitutes draft-derived displacement in that case.
type VoyageEvent struct {
	ShipName         string    `json:"ship_name"`
	SessionID        string    `json:"session_id"`
	StartDate        time.Time `json:"start_date"`
	SpeedKnots       float64   `json:"speed_knots"`
	DurationHours    float64   `json:"duration_hours"`
	DisplacementTons float64   `json:"displacement_tons,omitempty"`
	MidDraftMeters   float64   `json:"mid_draft_m,omitempty"`
	BeaufortScale    int       `json:"beaufort_scale"`
}

// ConsumptionRecord is one fuel line item for a session. Sessions usually
// carry several line items (one per fuel type); they are summed per session
// before merging with events.
type ConsumptionRecord struct {
	SessionID    string  `json:"session_id"`
	ConsumedTons float64 `json:"consumed_tons"`
}

// DrydockRecord is one hull-cleaning/docking occurrence for a ship. The
// docking date resets the fouling-accumulation clock; the paint label is the
// coating applied at that docking.
type DrydockRecord struct {
	ShipName  string    `json:"ship_name"`
	DockDate  time.Time `json:"dock_date"`
	PaintType string    `json:"paint_type"`
}

// EventFeatures holds the derived per-event features. DaysSinceCleaning and
// HistoricalAvgSpeed are NaN when the ship has no prior drydock record or no
// prior events; callers must treat NaN as missing, never as zero.
type EventFeatures struct {
	DaysSinceCleaning      float64 `json:"days_since_cleaning"`
	IdleHours              float64 `json:"idle_hours"`
	PctIdleRecent          float64 `json:"pct_idle_recent"`
	HistoricalAvgSpeed     float64 `json:"historical_avg_speed"`
	AccumulatedFoulingRisk float64 `json:"accumulated_fouling_risk"`
	PaintType              string  `json:"paint_type"`
	PaintEncoded           float64 `json:"paint_encoded"`
	PaintXSpeed            float64 `json:"paint_x_speed"`
	IsSPC                  bool    `json:"is_spc"`
	PaintPerformanceFactor float64 `json:"paint_performance_factor"`
}

// HasCleaningRecord reports whether a prior drydock record was found for the
// event.
func (f *EventFeatures) HasCleaningRecord() bool {
	return !math.IsNaN(f.DaysSinceCleaning)
}
