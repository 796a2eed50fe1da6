// Package csvreport writes run reports as CSV and JSON artifacts in a report
// directory. Artifacts are replaced atomically and contain no run metadata,
// so rerunning the pipeline over identical inputs reproduces them
// byte-identically.
package csvreport

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/log"
	"github.com/hullwatch/hullwatch/internal/storage"
	"github.com/hullwatch/hullwatch/internal/types"
)

// Artifact file names within the report directory.
const (
	ResultsFile     = "biofouling_results.csv"
	SummariesFile   = "ship_summaries.csv"
	DiagnosticsFile = "run_diagnostics.json"
)

// Storage holds the configuration for a CSV report backend
type Storage struct {
	directory string
}

// New sets up a CSV report backend, creating the report directory if needed.
func New(directory string) (*Storage, error) {
	if directory == "" {
		return nil, fmt.Errorf("csv report directory is empty")
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory %s: %w", directory, err)
	}
	return &Storage{directory: directory}, nil
}

// StartStorageEngine creates a goroutine loop to receive run reports and
// write them out
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- *fouling.RunReport {
	log.Info("starting CSV report storage engine...")
	reportChan := make(chan *fouling.RunReport, 10)
	go storage.ProcessReports(ctx, wg, reportChan, s.StoreReport, "csv")
	storage.StartHealthMonitor(ctx, "csv", s, time.Minute)
	return reportChan
}

// StoreReport writes the three artifacts of one run.
func (s *Storage) StoreReport(report *fouling.RunReport) error {
	if err := writeAtomic(filepath.Join(s.directory, ResultsFile), func(w io.Writer) error {
		return WriteResults(w, report.Results)
	}); err != nil {
		return err
	}

	if err := writeAtomic(filepath.Join(s.directory, SummariesFile), func(w io.Writer) error {
		return writeSummaries(w, report.Summaries)
	}); err != nil {
		return err
	}

	if err := writeAtomic(filepath.Join(s.directory, DiagnosticsFile), func(w io.Writer) error {
		return writeDiagnostics(w, report)
	}); err != nil {
		return err
	}

	log.Infof("wrote report artifacts to %s (%d results)", s.directory, len(report.Results))
	return nil
}

// CheckHealth reports whether the report directory is usable.
func (s *Storage) CheckHealth() *storage.HealthData {
	info, err := os.Stat(s.directory)
	if err != nil {
		return storage.CreateHealthData("unhealthy", "report directory missing", err)
	}
	if !info.IsDir() {
		return storage.CreateHealthData("unhealthy", fmt.Sprintf("%s is not a directory", s.directory), nil)
	}
	return storage.CreateHealthData("healthy", "report directory writable", nil)
}

// writeAtomic writes through a temp file in the target directory and renames
// it over the destination, so readers never see a partial artifact.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

var resultsHeader = []string{
	"ship_name", "session_id", "start_date", "speed_knots", "duration_hours",
	"beaufort_scale", "consumed_tons", "days_since_cleaning", "pct_idle_recent",
	"accumulated_fouling_risk", "paint_type", "theoretical_power",
	"efficiency_factor", "baseline_consumption", "excess_ratio",
	"bio_index_0_10", "bio_class", "additional_fuel_tons",
	"additional_cost_usd", "additional_co2_tons",
}

// WriteResults streams result rows as CSV in the artifact column order. The
// REST export endpoint shares this writer so downloads match the report
// directory artifacts.
func WriteResults(w io.Writer, results []types.BiofoulingResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultsHeader); err != nil {
		return err
	}
	for i := range results {
		r := &results[i]
		record := []string{
			r.ShipName,
			r.SessionID,
			r.StartDate.UTC().Format(time.RFC3339),
			ffmt(r.SpeedKnots),
			ffmt(r.DurationHours),
			strconv.Itoa(r.BeaufortScale),
			ffmt(r.ConsumedTons),
			ffmt(r.DaysSinceCleaning),
			ffmt(r.PctIdleRecent),
			ffmt(r.AccumulatedFoulingRisk),
			r.PaintType,
			ffmt(r.TheoreticalPower),
			ffmt(r.EfficiencyFactor),
			ffmt(r.BaselineConsumption),
			ffmt(r.ExcessRatio),
			ffmt(r.BioIndex),
			r.BioClass,
			ffmt(r.AdditionalFuelTons),
			ffmt(r.AdditionalCostUSD),
			ffmt(r.AdditionalCO2Tons),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var summariesHeader = []string{
	"ship_name", "num_events", "avg_excess_ratio", "max_excess_ratio",
	"avg_bio_index", "max_bio_index", "total_baseline_fuel", "total_real_fuel",
	"total_additional_fuel", "total_additional_cost_usd", "total_additional_co2",
}

func writeSummaries(w io.Writer, summaries []types.ShipSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summariesHeader); err != nil {
		return err
	}
	for i := range summaries {
		s := &summaries[i]
		record := []string{
			s.ShipName,
			strconv.Itoa(s.NumEvents),
			ffmt(s.AvgExcessRatio),
			ffmt(s.MaxExcessRatio),
			ffmt(s.AvgBioIndex),
			ffmt(s.MaxBioIndex),
			ffmt(s.TotalBaselineFuel),
			ffmt(s.TotalRealFuel),
			ffmt(s.TotalAdditionalFuel),
			ffmt(s.TotalAdditionalCost),
			ffmt(s.TotalAdditionalCO2),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// diagnosticsDocument is the artifact shape: everything about the run that
// is a function of the inputs, and nothing (IDs, wall-clock times) that is
// not.
type diagnosticsDocument struct {
	Diagnostics      types.Diagnostics  `json:"diagnostics"`
	Fleet            types.FleetSummary `json:"fleet"`
	GlobalEfficiency float64            `json:"global_efficiency_factor"`
	CalibratedShips  int                `json:"calibrated_ships"`
	CleanPoolSize    int                `json:"clean_pool_size"`
	DynamicReference float64            `json:"dynamic_reference"`
	Params           fouling.Params     `json:"params"`
}

func writeDiagnostics(w io.Writer, report *fouling.RunReport) error {
	doc := diagnosticsDocument{
		Diagnostics:      report.Diagnostics,
		Fleet:            report.Fleet,
		GlobalEfficiency: report.Calibration.Global,
		CalibratedShips:  len(report.Calibration.PerShip),
		CleanPoolSize:    report.Calibration.CleanPoolSize,
		DynamicReference: report.DynamicReference,
		Params:           report.Params,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ffmt renders floats in plain decimal notation with the shortest digits
// that survive a round trip, which keeps artifacts stable across reruns.
func ffmt(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
