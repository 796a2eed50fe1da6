package postgres

// Schema for the results warehouse. Results and summaries are a snapshot of
// the latest run; pipeline_runs and prediction_log accumulate.

const createResultsTableSQL = `
CREATE TABLE IF NOT EXISTS biofouling_results (
	ship_name                TEXT NOT NULL,
	session_id               TEXT,
	start_date               TIMESTAMPTZ NOT NULL,
	speed_knots              DOUBLE PRECISION,
	duration_hours           DOUBLE PRECISION,
	beaufort_scale           INTEGER,
	consumed_tons            DOUBLE PRECISION,
	days_since_cleaning      DOUBLE PRECISION,
	pct_idle_recent          DOUBLE PRECISION,
	accumulated_fouling_risk DOUBLE PRECISION,
	paint_type               TEXT,
	theoretical_power        DOUBLE PRECISION,
	efficiency_factor        DOUBLE PRECISION,
	baseline_consumption     DOUBLE PRECISION,
	excess_ratio             DOUBLE PRECISION,
	bio_index                DOUBLE PRECISION,
	bio_class                TEXT,
	additional_fuel_tons     DOUBLE PRECISION,
	additional_cost_usd      DOUBLE PRECISION,
	additional_co2_tons      DOUBLE PRECISION
)`

const createResultsIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_biofouling_results_ship
	ON biofouling_results (ship_name, start_date DESC);
CREATE INDEX IF NOT EXISTS idx_biofouling_results_class
	ON biofouling_results (bio_class)`

const createSummariesTableSQL = `
CREATE TABLE IF NOT EXISTS ship_summaries (
	ship_name                 TEXT PRIMARY KEY,
	avg_excess_ratio          DOUBLE PRECISION,
	max_excess_ratio          DOUBLE PRECISION,
	num_events                INTEGER,
	avg_bio_index             DOUBLE PRECISION,
	max_bio_index             DOUBLE PRECISION,
	total_baseline_fuel       DOUBLE PRECISION,
	total_real_fuel           DOUBLE PRECISION,
	total_additional_fuel     DOUBLE PRECISION,
	total_additional_cost_usd DOUBLE PRECISION,
	total_additional_co2      DOUBLE PRECISION
)`

const createRunsTableSQL = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id            TEXT PRIMARY KEY,
	started_at        TIMESTAMPTZ NOT NULL,
	finished_at       TIMESTAMPTZ NOT NULL,
	events_loaded     INTEGER,
	malformed_rows    INTEGER,
	excluded_rows     INTEGER,
	results_emitted   INTEGER,
	global_efficiency DOUBLE PRECISION,
	calibrated_ships  INTEGER,
	dynamic_reference DOUBLE PRECISION,
	params            JSONB NOT NULL
)`

const createPredictionLogTableSQL = `
CREATE TABLE IF NOT EXISTS prediction_log (
	id            BIGSERIAL PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ship_name     TEXT,
	model_name    TEXT,
	model_version TEXT,
	fouling_ratio DOUBLE PRECISION,
	bio_index     DOUBLE PRECISION,
	severity      TEXT
);
CREATE INDEX IF NOT EXISTS idx_prediction_log_ship
	ON prediction_log (ship_name, created_at DESC)`
