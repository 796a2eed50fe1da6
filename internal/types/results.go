package types

import "time"

// Severity classification labels, assigned from the raw excess ratio.
const (
	ClassLight    = "Light"
	ClassModerate = "Moderate"
	ClassSevere   = "Severe"
	ClassUnknown  = "Unknown"
)

// BiofoulingResult is one computed record per voyage event. Created by the
// pipeline, never mutated within a run, superseded wholesale by the next run.
type BiofoulingResult struct {
	ShipName               string    `gorm:"column:ship_name;index" json:"ship_name"`
	SessionID              string    `gorm:"column:session_id" json:"session_id"`
	StartDate              time.Time `gorm:"column:start_date;index" json:"start_date"`
	SpeedKnots             float64   `gorm:"column:speed_knots" json:"speed_knots"`
	DurationHours          float64   `gorm:"column:duration_hours" json:"duration_hours"`
	BeaufortScale          int       `gorm:"column:beaufort_scale" json:"beaufort_scale"`
	ConsumedTons           float64   `gorm:"column:consumed_tons" json:"consumed_tons"`
	DaysSinceCleaning      float64   `gorm:"column:days_since_cleaning" json:"days_since_cleaning"`
	PctIdleRecent          float64   `gorm:"column:pct_idle_recent" json:"pct_idle_recent"`
	AccumulatedFoulingRisk float64   `gorm:"column:accumulated_fouling_risk" json:"accumulated_fouling_risk"`
	PaintType              string    `gorm:"column:paint_type" json:"paint_type"`
	TheoreticalPower       float64   `gorm:"column:theoretical_power" json:"theoretical_power"`
	EfficiencyFactor       float64   `gorm:"column:efficiency_factor" json:"efficiency_factor"`
	BaselineConsumption    float64   `gorm:"column:baseline_consumption" json:"baseline_consumption"`
	ExcessRatio            float64   `gorm:"column:excess_ratio" json:"excess_ratio"`
	BioIndex               float64   `gorm:"column:bio_index" json:"bio_index_0_10"`
	BioClass               string    `gorm:"column:bio_class;index" json:"bio_class"`
	AdditionalFuelTons     float64   `gorm:"column:additional_fuel_tons" json:"additional_fuel_tons"`
	AdditionalCostUSD      float64   `gorm:"column:additional_cost_usd" json:"additional_cost_usd"`
	AdditionalCO2Tons      float64   `gorm:"column:additional_co2_tons" json:"additional_co2_tons"`
}

// TableName implements the gorm Tabler interface
func (BiofoulingResult) TableName() string {
	return "biofouling_results"
}

// ShipSummary aggregates all results for one ship. Derived purely by
// aggregation; ships with no surviving rows are omitted, never emitted as
// zero rows.
type ShipSummary struct {
	ShipName            string  `gorm:"column:ship_name;primaryKey" json:"ship_name"`
	AvgExcessRatio      float64 `gorm:"column:avg_excess_ratio" json:"avg_excess_ratio"`
	MaxExcessRatio      float64 `gorm:"column:max_excess_ratio" json:"max_excess_ratio"`
	NumEvents           int     `gorm:"column:num_events" json:"num_events"`
	AvgBioIndex         float64 `gorm:"column:avg_bio_index" json:"avg_bio_index"`
	MaxBioIndex         float64 `gorm:"column:max_bio_index" json:"max_bio_index"`
	TotalBaselineFuel   float64 `gorm:"column:total_baseline_fuel" json:"total_baseline_fuel"`
	TotalRealFuel       float64 `gorm:"column:total_real_fuel" json:"total_real_fuel"`
	TotalAdditionalFuel float64 `gorm:"column:total_additional_fuel" json:"total_additional_fuel"`
	TotalAdditionalCost float64 `gorm:"column:total_additional_cost_usd" json:"total_additional_cost_usd"`
	TotalAdditionalCO2  float64 `gorm:"column:total_additional_co2" json:"total_additional_co2"`
}

// TableName implements the gorm Tabler interface
func (ShipSummary) TableName() string {
	return "ship_summaries"
}

// Diagnostics counts rows excluded at each hygiene stage of a run. A report
// is never emitted without these counts alongside it.
type Diagnostics struct {
	EventsLoaded           int `json:"events_loaded"`
	MalformedRows          int `json:"malformed_rows"`
	MissingConsumption     int `json:"missing_consumption"`
	NonPositiveConsumption int `json:"non_positive_consumption"`
	PercentileTrimmed      int `json:"percentile_trimmed"`
	MissingDaysSince       int `json:"missing_days_since_cleaning"`
	RatioOutOfRange        int `json:"ratio_out_of_range"`
	ZeroPowerCalibration   int `json:"zero_power_calibration_skips"`
	ResultsEmitted         int `json:"results_emitted"`
}

// Excluded returns the total number of rows dropped between load and report.
func (d Diagnostics) Excluded() int {
	return d.MissingConsumption + d.NonPositiveConsumption + d.PercentileTrimmed +
		d.MissingDaysSince + d.RatioOutOfRange
}

// FleetSummary aggregates across all ships.
type FleetSummary struct {
	NumShips            int     `json:"num_ships"`
	NumEvents           int     `json:"num_events"`
	AvgExcessRatio      float64 `json:"avg_excess_ratio"`
	AvgBioIndex         float64 `json:"avg_bio_index"`
	MaxBioIndex         float64 `json:"max_bio_index"`
	TotalBaselineFuel   float64 `json:"total_baseline_fuel"`
	TotalRealFuel       float64 `json:"total_real_fuel"`
	TotalAdditionalFuel float64 `json:"total_additional_fuel"`
	TotalAdditionalCost float64 `json:"total_additional_cost_usd"`
	TotalAdditionalCO2  float64 `json:"total_additional_co2"`
}

// ReportStatistics holds fleet-wide descriptive statistics for one run.
type ReportStatistics struct {
	NumEvents         int            `json:"num_events"`
	NumShips          int            `json:"num_ships"`
	AvgExcessRatio    float64        `json:"avg_excess_ratio"`
	MaxExcessRatio    float64        `json:"max_excess_ratio"`
	AvgBioIndex       float64        `json:"avg_bio_index"`
	MaxBioIndex       float64        `json:"max_bio_index"`
	ClassCounts       map[string]int `json:"class_counts"`
	TotalAdditional   float64        `json:"total_additional_fuel"`
	TotalCostUSD      float64        `json:"total_additional_cost_usd"`
	TotalCO2Tons      float64        `json:"total_additional_co2"`
	DynamicReference  float64        `json:"dynamic_reference"`
	GlobalEfficiency  float64        `json:"global_efficiency_factor"`
	CalibratedShips   int            `json:"calibrated_ships"`
	LastPipelineRunID string         `json:"last_pipeline_run_id,omitempty"`
}

// ShipRisk is one row of the high-risk report: ships whose worst observed
// index meets the caller's threshold.
type ShipRisk struct {
	ShipName       string    `json:"ship_name"`
	MaxBioIndex    float64   `json:"max_bio_index"`
	AvgBioIndex    float64   `json:"avg_bio_index"`
	LatestBioClass string    `json:"latest_bio_class"`
	LatestEvent    time.Time `json:"latest_event"`
	Recommendation string    `json:"recommendation"`
}
