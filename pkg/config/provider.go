// Package config supplies HullWatch configuration through pluggable
// providers (YAML files and SQLite databases), with environment overrides
// layered on top. Loaded sections convert to the typed settings the pipeline
// and controllers consume.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/ingest"
)

// ConfigProvider defines the interface for configuration data sources.
type ConfigProvider interface {
	// LoadConfig loads the complete configuration.
	LoadConfig() (*ConfigData, error)

	// Section accessors.
	GetPipeline() (*PipelineData, error)
	GetIngest() (*IngestData, error)
	GetModel() (*ModelData, error)
	GetStorageConfig() (*StorageData, error)
	GetControllers() ([]ControllerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure.
type ConfigData struct {
	Pipeline    PipelineData     `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`
	Ingest      IngestData       `json:"ingest,omitempty" yaml:"ingest,omitempty"`
	Model       ModelData        `json:"model,omitempty" yaml:"model,omitempty"`
	Storage     StorageData      `json:"storage,omitempty" yaml:"storage,omitempty"`
	Controllers []ControllerData `json:"controllers,omitempty" yaml:"controllers,omitempty"`
}

// PipelineData tunes the severity pipeline. Zero-valued fields take the
// calibrated defaults, so a zero cannot express "disable"; the one toggle
// where that matters, per-ship calibration, is a pointer.
type PipelineData struct {
	IdleSpeedThreshold    float64 `json:"idle_speed_threshold,omitempty" yaml:"idle-speed-threshold,omitempty"`
	RollingWindowDays     int     `json:"rolling_window_days,omitempty" yaml:"rolling-window-days,omitempty"`
	HistoricalSpeedEvents int     `json:"historical_speed_events,omitempty" yaml:"historical-speed-events,omitempty"`
	AdmiraltyScaleFactor  float64 `json:"admiralty_scale_factor,omitempty" yaml:"admiralty-scale-factor,omitempty"`
	CleanThresholdDays    float64 `json:"clean_threshold_days,omitempty" yaml:"clean-threshold-days,omitempty"`
	PerShipCalibration    *bool   `json:"per_ship_calibration,omitempty" yaml:"per-ship-calibration,omitempty"`
	MinCleanEvents        int     `json:"min_clean_events,omitempty" yaml:"min-clean-events,omitempty"`
	SigmoidK              float64 `json:"sigmoid_k,omitempty" yaml:"sigmoid-k,omitempty"`
	SigmoidMidpoint       float64 `json:"sigmoid_midpoint,omitempty" yaml:"sigmoid-midpoint,omitempty"`
	FuelPriceUSDPerTon    float64 `json:"fuel_price_usd_per_ton,omitempty" yaml:"fuel-price-usd-per-ton,omitempty"`
	CO2TonPerFuelTon      float64 `json:"co2_ton_per_fuel_ton,omitempty" yaml:"co2-ton-per-fuel-ton,omitempty"`
	MinConsumptionTons    float64 `json:"min_consumption_tons,omitempty" yaml:"min-consumption-tons,omitempty"`
	TrimLowerQuantile     float64 `json:"trim_lower_quantile,omitempty" yaml:"trim-lower-quantile,omitempty"`
	TrimUpperQuantile     float64 `json:"trim_upper_quantile,omitempty" yaml:"trim-upper-quantile,omitempty"`
	RatioMin              float64 `json:"ratio_min,omitempty" yaml:"ratio-min,omitempty"`
	RatioMax              float64 `json:"ratio_max,omitempty" yaml:"ratio-max,omitempty"`
	ReferencePercentile   float64 `json:"reference_percentile,omitempty" yaml:"reference-percentile,omitempty"`
	ReferenceFloor        float64 `json:"reference_floor,omitempty" yaml:"reference-floor,omitempty"`
	SPCKeyword            string  `json:"spc_keyword,omitempty" yaml:"spc-keyword,omitempty"`
	PaintPenaltyThreshold float64 `json:"paint_penalty_threshold,omitempty" yaml:"paint-penalty-threshold,omitempty"`
	PaintPenaltyFactor    float64 `json:"paint_penalty_factor,omitempty" yaml:"paint-penalty-factor,omitempty"`
}

// Params overlays the configured values onto the calibrated defaults.
func (p PipelineData) Params() fouling.Params {
	out := fouling.DefaultParams()
	if p.IdleSpeedThreshold > 0 {
		out.IdleSpeedThreshold = p.IdleSpeedThreshold
	}
	if p.RollingWindowDays > 0 {
		out.RollingWindowDays = p.RollingWindowDays
	}
	if p.HistoricalSpeedEvents > 0 {
		out.HistoricalSpeedEvents = p.HistoricalSpeedEvents
	}
	if p.AdmiraltyScaleFactor > 0 {
		out.AdmiraltyScaleFactor = p.AdmiraltyScaleFactor
	}
	if p.CleanThresholdDays > 0 {
		out.CleanThresholdDays = p.CleanThresholdDays
	}
	if p.PerShipCalibration != nil {
		out.CalibratePerShip = *p.PerShipCalibration
	}
	if p.MinCleanEvents > 0 {
		out.MinCleanEvents = p.MinCleanEvents
	}
	if p.SigmoidK > 0 {
		out.SigmoidK = p.SigmoidK
	}
	if p.SigmoidMidpoint > 0 {
		out.SigmoidMidpoint = p.SigmoidMidpoint
	}
	if p.FuelPriceUSDPerTon > 0 {
		out.FuelPriceUSDPerTon = p.FuelPriceUSDPerTon
	}
	if p.CO2TonPerFuelTon > 0 {
		out.CO2TonPerFuelTon = p.CO2TonPerFuelTon
	}
	if p.MinConsumptionTons > 0 {
		out.MinConsumptionTons = p.MinConsumptionTons
	}
	if p.TrimLowerQuantile > 0 {
		out.TrimLowerQuantile = p.TrimLowerQuantile
	}
	if p.TrimUpperQuantile > 0 {
		out.TrimUpperQuantile = p.TrimUpperQuantile
	}
	if p.RatioMin != 0 {
		out.RatioMin = p.RatioMin
	}
	if p.RatioMax != 0 {
		out.RatioMax = p.RatioMax
	}
	if p.ReferencePercentile > 0 {
		out.ReferencePercentile = p.ReferencePercentile
	}
	if p.ReferenceFloor > 0 {
		out.ReferenceFloor = p.ReferenceFloor
	}
	if p.SPCKeyword != "" {
		out.SPCKeyword = p.SPCKeyword
	}
	if p.PaintPenaltyThreshold > 0 {
		out.PaintPenaltyThreshold = p.PaintPenaltyThreshold
	}
	if p.PaintPenaltyFactor > 0 {
		out.PaintPenaltyFactor = p.PaintPenaltyFactor
	}
	return out
}

// IngestData names the fleet input files and their header mapping.
type IngestData struct {
	EventsPath      string         `json:"events_path,omitempty" yaml:"events-path,omitempty"`
	ConsumptionPath string         `json:"consumption_path,omitempty" yaml:"consumption-path,omitempty"`
	DrydockPath     string         `json:"drydock_path,omitempty" yaml:"drydock-path,omitempty"`
	DrydockSheet    string         `json:"drydock_sheet,omitempty" yaml:"drydock-sheet,omitempty"`
	PaintPath       string         `json:"paint_path,omitempty" yaml:"paint-path,omitempty"`
	PaintSheet      string         `json:"paint_sheet,omitempty" yaml:"paint-sheet,omitempty"`
	Columns         ingest.Columns `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// Drydocks bundles the docking history source for the loader.
func (i *IngestData) Drydocks() ingest.DrydockSource {
	return ingest.DrydockSource{
		Path:       i.DrydockPath,
		Sheet:      i.DrydockSheet,
		PaintPath:  i.PaintPath,
		PaintSheet: i.PaintSheet,
	}
}

// ModelData locates the prediction model artifacts. An empty path selects
// the built-in heuristic predictor.
type ModelData struct {
	Path             string  `json:"path,omitempty" yaml:"path,omitempty"`
	EncodingPath     string  `json:"encoding_path,omitempty" yaml:"encoding-path,omitempty"`
	GlobalEfficiency float64 `json:"global_efficiency,omitempty" yaml:"global-efficiency,omitempty"`
}

// StorageData holds the configuration for the result storage backends.
type StorageData struct {
	Postgres *PostgresData  `json:"postgres,omitempty" yaml:"postgres,omitempty"`
	SQLite   *SQLiteData    `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	CSV      *CSVReportData `json:"csv,omitempty" yaml:"csv,omitempty"`
}

type PostgresData struct {
	ConnectionString string `json:"connection_string" yaml:"connection-string"`
}

type SQLiteData struct {
	Path string `json:"path" yaml:"path"`
}

type CSVReportData struct {
	Directory string `json:"directory" yaml:"directory"`
}

// ControllerData holds the configuration for one controller instance.
type ControllerData struct {
	Type            string               `json:"type,omitempty" yaml:"type,omitempty"`
	RESTServer      *RESTServerData      `json:"rest,omitempty" yaml:"rest,omitempty"`
	OceanConditions *OceanConditionsData `json:"ocean,omitempty" yaml:"ocean,omitempty"`
	PipelineCache   *PipelineCacheData   `json:"pipeline_cache,omitempty" yaml:"pipeline-cache,omitempty"`
}

type RESTServerData struct {
	Port           int      `json:"port,omitempty" yaml:"port,omitempty"`
	ListenAddr     string   `json:"listen_addr,omitempty" yaml:"listen-addr,omitempty"`
	Cert           string   `json:"cert,omitempty" yaml:"cert,omitempty"`
	Key            string   `json:"key,omitempty" yaml:"key,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed-origins,omitempty"`
}

type OceanConditionsData struct {
	APIEndpoint     string   `json:"api_endpoint,omitempty" yaml:"api-endpoint,omitempty"`
	APIKey          string   `json:"api_key,omitempty" yaml:"api-key,omitempty"`
	Locations       []string `json:"locations,omitempty" yaml:"locations,omitempty"`
	RefreshInterval string   `json:"refresh_interval,omitempty" yaml:"refresh-interval,omitempty"`
}

type PipelineCacheData struct {
	RefreshInterval string `json:"refresh_interval,omitempty" yaml:"refresh-interval,omitempty"`
}

// NewProvider selects a provider from a source string: an explicit
// "yaml:path" or "sqlite:path" prefix, else the file extension decides.
func NewProvider(source string) (ConfigProvider, error) {
	switch {
	case strings.HasPrefix(source, "yaml:"):
		return NewYAMLProvider(strings.TrimPrefix(source, "yaml:")), nil
	case strings.HasPrefix(source, "sqlite:"):
		return NewSQLiteProvider(strings.TrimPrefix(source, "sqlite:"))
	}
	switch strings.ToLower(filepath.Ext(source)) {
	case ".yaml", ".yml":
		return NewYAMLProvider(source), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteProvider(source)
	}
	return nil, fmt.Errorf("cannot infer config backend for %q: use a yaml: or sqlite: prefix", source)
}
