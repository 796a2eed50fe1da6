package database

import (
	"time"

	"github.com/jackc/pgtype"
)

// PipelineRun records one completed pipeline execution. The per-event rows
// land in biofouling_results; this table carries the run metadata and the
// fitted calibration so reruns can be audited.
type PipelineRun struct {
	RunID            string       `gorm:"primaryKey;column:run_id"`
	StartedAt        time.Time    `gorm:"column:started_at;not null"`
	FinishedAt       time.Time    `gorm:"column:finished_at;not null"`
	EventsLoaded     int          `gorm:"column:events_loaded"`
	MalformedRows    int          `gorm:"column:malformed_rows"`
	ExcludedRows     int          `gorm:"column:excluded_rows"`
	ResultsEmitted   int          `gorm:"column:results_emitted"`
	GlobalEfficiency float64      `gorm:"column:global_efficiency"`
	CalibratedShips  int          `gorm:"column:calibrated_ships"`
	DynamicReference float64      `gorm:"column:dynamic_reference"`
	Params           pgtype.JSONB `gorm:"column:params;type:jsonb;not null"`
}

// TableName specifies the table name for PipelineRun
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

// PredictionLog is the audit row written for each prediction served over the
// API. Scenario comparisons log one row per scenario.
type PredictionLog struct {
	ID           int64     `gorm:"primaryKey;autoIncrement;column:id"`
	CreatedAt    time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	ShipName     string    `gorm:"column:ship_name;index"`
	ModelName    string    `gorm:"column:model_name"`
	ModelVersion string    `gorm:"column:model_version"`
	FoulingRatio float64   `gorm:"column:fouling_ratio"`
	BioIndex     float64   `gorm:"column:bio_index"`
	Severity     string    `gorm:"column:severity"`
}

// TableName specifies the table name for PredictionLog
func (PredictionLog) TableName() string {
	return "prediction_log"
}
