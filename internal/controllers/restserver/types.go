package restserver

import (
	"time"

	"github.com/jackc/pgtype"
	"gorm.io/gorm"

	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/predict"
	"github.com/hullwatch/hullwatch/internal/storage"
	"github.com/hullwatch/hullwatch/internal/types"
)

// OceanConditionsRecord mirrors the cache table the ocean conditions
// controller maintains, so the handlers can read it with their own DB handle.
type OceanConditionsRecord struct {
	gorm.Model

	Location  string       `gorm:"uniqueIndex:idx_ocean_location,not null"`
	Latitude  float64      `gorm:"not null"`
	Longitude float64      `gorm:"not null"`
	FetchedAt time.Time    `gorm:"not null"`
	Data      pgtype.JSONB `gorm:"type:jsonb;default:'{}';not null"`
}

// TableName implements the GORM Tabler interface to specify the correct table name
func (OceanConditionsRecord) TableName() string {
	return "ocean_conditions"
}

// ConditionsDocument is the normalized sea-state document cached per
// location.
type ConditionsDocument struct {
	BeaufortScale    float64 `json:"beaufort_scale"`
	WaveHeightM      float64 `json:"wave_height_m"`
	WindSpeedKt      float64 `json:"wind_speed_kt"`
	WindDirectionDeg float64 `json:"wind_direction_deg"`
	Source           string  `json:"source,omitempty"`
}

// PredictionRequest is one voyage to score. Required numeric fields are
// pointers so an absent field is distinguishable from a legitimate zero.
type PredictionRequest struct {
	ShipName          string   `json:"ship_name"`
	SpeedKnots        *float64 `json:"speed_knots"`
	DurationHours     *float64 `json:"duration_hours"`
	DaysSinceCleaning *float64 `json:"days_since_cleaning"`
	DisplacementTons  *float64 `json:"displacement_tons,omitempty"`
	MidDraftMeters    *float64 `json:"mid_draft_m,omitempty"`
	BeaufortScale     *float64 `json:"beaufort_scale,omitempty"`
	PctIdleRecent     *float64 `json:"pct_idle_recent,omitempty"`
	PaintType         string   `json:"paint_type,omitempty"`
}

// PredictionResponse reports one scored voyage with its consumption, index,
// and impact estimates.
type PredictionResponse struct {
	ShipName             string             `json:"ship_name"`
	Status               string             `json:"status"`
	PredictedConsumption float64            `json:"predicted_consumption_tons"`
	BaselineConsumption  float64            `json:"baseline_consumption_tons"`
	ExcessRatio          float64            `json:"excess_ratio"`
	BioIndex             float64            `json:"bio_index_0_10"`
	BioClass             string             `json:"bio_class"`
	AdditionalFuelTons   float64            `json:"additional_fuel_tons"`
	AdditionalCostUSD    float64            `json:"additional_cost_usd"`
	AdditionalCO2Tons    float64            `json:"additional_co2_tons"`
	Hydrodynamics        fouling.HydroState `json:"hydrodynamics"`
	SeaState             *SeaStateView      `json:"sea_state,omitempty"`
	PredictionTimestamp  time.Time          `json:"prediction_timestamp"`
	ModelVersion         string             `json:"model_version"`
}

// SeaStateView is the cached ocean conditions snapshot attached to single
// prediction responses when the integration is configured.
type SeaStateView struct {
	Location      string    `json:"location"`
	BeaufortScale float64   `json:"beaufort_scale"`
	WaveHeightM   float64   `json:"wave_height_m"`
	WindSpeedKt   float64   `json:"wind_speed_kt"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// BatchPredictionRequest scores several voyages in one call.
type BatchPredictionRequest struct {
	Predictions []PredictionRequest `json:"predictions"`
}

// BatchPredictionError locates one failed item of a batch.
type BatchPredictionError struct {
	Index    int    `json:"index"`
	ShipName string `json:"ship_name,omitempty"`
	Error    string `json:"error"`
}

// BatchPredictionResponse reports the batch outcome with per-item errors.
type BatchPredictionResponse struct {
	Total      int                    `json:"total"`
	Successful int                    `json:"successful"`
	Failed     int                    `json:"failed"`
	Results    []PredictionResponse   `json:"results"`
	Errors     []BatchPredictionError `json:"errors"`
}

// ScenarioResponse contrasts the request against a freshly cleaned hull and
// a year-fouled one.
type ScenarioResponse struct {
	ShipName string             `json:"ship_name"`
	Clean    PredictionResponse `json:"clean"`
	Current  PredictionResponse `json:"current"`
	Fouled   PredictionResponse `json:"fouled"`
	Delta    ScenarioDelta      `json:"delta"`
}

// ScenarioDelta is the fuel penalty between the clean and fouled scenarios.
type ScenarioDelta struct {
	AdditionalFuelTons float64 `json:"additional_fuel_tons"`
	FuelIncreasePct    float64 `json:"fuel_increase_pct"`
	AdditionalCostUSD  float64 `json:"additional_cost_usd"`
	AdditionalCO2Tons  float64 `json:"additional_co2_tons"`
}

// ShipInfo is one row of the fleet listing.
type ShipInfo struct {
	ShipName          string     `json:"ship_name"`
	TotalEvents       int        `json:"total_events"`
	LastEventDate     *time.Time `json:"last_event_date,omitempty"`
	DaysSinceCleaning *float64   `json:"days_since_cleaning,omitempty"`
	PaintType         string     `json:"paint_type,omitempty"`
	BioIndex          *float64   `json:"bio_index_0_10,omitempty"`
	BioClass          string     `json:"bio_class,omitempty"`
}

// ShipList is the fleet listing response.
type ShipList struct {
	Total int        `json:"total"`
	Ships []ShipInfo `json:"ships"`
}

// ShipDetail is one ship's latest state plus its event history from the
// current run.
type ShipDetail struct {
	ShipInfo
	Results []types.BiofoulingResult `json:"results"`
}

// FleetSummaryResponse wraps the fleet aggregate with its per-ship rows.
type FleetSummaryResponse struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Fleet       types.FleetSummary  `json:"fleet"`
	Ships       []types.ShipSummary `json:"ships"`
}

// BiofoulingReportResponse is the filtered per-event report page.
type BiofoulingReportResponse struct {
	GeneratedAt  time.Time                `json:"generated_at"`
	TotalRecords int                      `json:"total_records"`
	Offset       int                      `json:"offset"`
	Limit        int                      `json:"limit"`
	Records      []types.BiofoulingResult `json:"records"`
}

// HighRiskResponse lists ships whose worst index meets the threshold.
type HighRiskResponse struct {
	Threshold     float64          `json:"threshold"`
	TotalHighRisk int              `json:"total_high_risk"`
	Ships         []types.ShipRisk `json:"ships"`
}

// FeatureImportance is one ranked model feature.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
	Rank       int     `json:"rank"`
}

// ModelInfoResponse describes the active predictor and the scoring
// parameters applied around it.
type ModelInfoResponse struct {
	predict.Info
	Loaded     bool           `json:"is_loaded"`
	Parameters fouling.Params `json:"parameters"`
}

// OceanLocationView is one location's cached sea state.
type OceanLocationView struct {
	Location   string             `json:"location"`
	Latitude   float64            `json:"latitude"`
	Longitude  float64            `json:"longitude"`
	FetchedAt  time.Time          `json:"fetched_at"`
	Conditions ConditionsDocument `json:"conditions"`
}

// OceanResponse reports the cached sea state for every configured location.
type OceanResponse struct {
	Count     int                 `json:"count"`
	Locations []OceanLocationView `json:"locations"`
}

// ServiceStatus identifies the running service.
type ServiceStatus struct {
	Name          string  `json:"name"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// PipelineStatus reports the state of the in-memory run cache.
type PipelineStatus struct {
	CacheReady     bool       `json:"cache_ready"`
	RunID          string     `json:"run_id,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	ResultsEmitted int        `json:"results_emitted"`
	Ships          int        `json:"ships"`
	LastRefresh    *time.Time `json:"last_refresh,omitempty"`
}

// SystemStatusResponse is the full service status document.
type SystemStatusResponse struct {
	Timestamp time.Time                      `json:"timestamp"`
	Service   ServiceStatus                  `json:"service"`
	Model     predict.Info                   `json:"model"`
	Pipeline  PipelineStatus                 `json:"pipeline"`
	Storage   map[string]*storage.HealthData `json:"storage"`
}

// HealthResponse is the liveness document served at /health.
type HealthResponse struct {
	Status      string    `json:"status"`
	Version     string    `json:"version"`
	ModelLoaded bool      `json:"model_loaded"`
	Timestamp   time.Time `json:"timestamp"`
}

// MetricsResponse reports request counters since process start.
type MetricsResponse struct {
	Timestamp        time.Time  `json:"timestamp"`
	UptimeSeconds    float64    `json:"uptime_seconds"`
	RequestsTotal    int64      `json:"requests_total"`
	PredictionsTotal int64      `json:"predictions_total"`
	CacheUpdatedAt   *time.Time `json:"cache_updated_at,omitempty"`
	LastRunID        string     `json:"last_run_id,omitempty"`
}
