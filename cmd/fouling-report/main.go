package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hullwatch/hullwatch/internal/constants"
	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/ingest"
	"github.com/hullwatch/hullwatch/internal/predict"
	"github.com/hullwatch/hullwatch/internal/storage/csvreport"
	"github.com/hullwatch/hullwatch/internal/storage/postgres"
	"github.com/hullwatch/hullwatch/internal/storage/sqlitearchive"
	"github.com/hullwatch/hullwatch/internal/types"
	"github.com/hullwatch/hullwatch/pkg/config"
	"github.com/hullwatch/hullwatch/pkg/severity"
)

func main() {
	// Command line flags
	var (
		cfgSource    = flag.String("config", "", "Configuration source (yaml:/sqlite: prefix or file extension)")
		eventsPath   = flag.String("events", "", "Voyage events export (overrides config)")
		consPath     = flag.String("consumption", "", "Fuel consumption export (overrides config)")
		drydockPath  = flag.String("drydock", "", "Drydock history export (overrides config)")
		drydockSheet = flag.String("drydock-sheet", "", "Sheet name inside an XLSX drydock export")
		paintPath    = flag.String("paint", "", "Coating table (overrides config)")
		paintSheet   = flag.String("paint-sheet", "", "Sheet name inside an XLSX coating table")
		outDir       = flag.String("out", "reports", "Report artifact directory (empty to skip artifacts)")
		store        = flag.Bool("store", false, "Also store the run to the backends in the config")
		evaluate     = flag.Bool("evaluate", false, "Hold out the newest voyages and score the model against them")
		trainFrac    = flag.Float64("train-frac", 0.8, "Training share of the chronological holdout split")
		shifts       = flag.Bool("shifts", false, "Scan per-ship ratio series for step changes (possible unrecorded cleanings)")
		threshold    = flag.Float64("risk-threshold", severity.DefaultRiskThreshold, "High-risk index threshold")
		showVersion  = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("fouling-report %s\n", constants.Version)
		os.Exit(0)
	}

	config.LoadDotEnv()

	var provider config.ConfigProvider
	if *cfgSource != "" {
		var err error
		provider, err = config.NewProvider(*cfgSource)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening configuration: %v\n", err)
			os.Exit(1)
		}
		defer provider.Close()
	}

	ing := ingestConfig(provider)
	override(&ing.EventsPath, *eventsPath)
	override(&ing.ConsumptionPath, *consPath)
	override(&ing.DrydockPath, *drydockPath)
	override(&ing.DrydockSheet, *drydockSheet)
	override(&ing.PaintPath, *paintPath)
	override(&ing.PaintSheet, *paintSheet)

	if ing.EventsPath == "" || ing.ConsumptionPath == "" {
		fmt.Fprintf(os.Stderr, "Error: events and consumption inputs are required (-events/-consumption or a config ingest section)\n")
		flag.Usage()
		os.Exit(1)
	}

	params := pipelineParams(provider)

	fmt.Printf("HullWatch Fouling Report\n")
	fmt.Printf("========================\n\n")
	fmt.Printf("Inputs:\n")
	fmt.Printf("  Events:      %s\n", ing.EventsPath)
	fmt.Printf("  Consumption: %s\n", ing.ConsumptionPath)
	if ing.DrydockPath != "" {
		fmt.Printf("  Drydock:     %s\n", ing.DrydockPath)
	}
	if ing.PaintPath != "" {
		fmt.Printf("  Coatings:    %s\n", ing.PaintPath)
	}
	fmt.Println()

	started := time.Now()

	events, evStats, err := ingest.LoadEvents(ing.EventsPath, ing.Columns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading events: %v\n", err)
		os.Exit(1)
	}
	consumption, conStats, err := ingest.LoadConsumption(ing.ConsumptionPath, ing.Columns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading consumption: %v\n", err)
		os.Exit(1)
	}

	var drydocks []types.DrydockRecord
	var dockStats ingest.Stats
	if ing.DrydockPath != "" {
		drydocks, dockStats, err = ingest.LoadDrydocks(ing.Drydocks(), ing.Columns)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading drydock history: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Loaded %d events, %d consumption lines, %d drydock entries (%d malformed rows skipped)\n\n",
		evStats.Loaded, conStats.Loaded, dockStats.Loaded,
		evStats.Malformed+conStats.Malformed+dockStats.Malformed)

	report, err := fouling.Run(events, consumption, drydocks, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running pipeline: %v\n", err)
		os.Exit(1)
	}
	report.Diagnostics.MalformedRows = evStats.Malformed + conStats.Malformed + dockStats.Malformed

	fmt.Printf("Run %s completed in %s\n\n", report.RunID, time.Since(started).Round(time.Millisecond))

	displayCalibration(report)
	displayDiagnostics(report)
	displayFleet(report)
	displayHighRisk(report, *threshold)
	if *shifts {
		displayShifts(report)
	}

	if *outDir != "" {
		artifacts, err := csvreport.New(*outDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error preparing artifact directory: %v\n", err)
			os.Exit(1)
		}
		if err := artifacts.StoreReport(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing artifacts: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Artifacts written to %s (%s, %s, %s)\n\n",
			*outDir, csvreport.ResultsFile, csvreport.SummariesFile, csvreport.DiagnosticsFile)
	}

	if *store {
		if provider == nil {
			fmt.Fprintf(os.Stderr, "Error: -store requires -config to locate the storage backends\n")
			os.Exit(1)
		}
		if err := storeToBackends(provider, report); err != nil {
			fmt.Fprintf(os.Stderr, "Error storing run: %v\n", err)
			os.Exit(1)
		}
	}

	if *evaluate {
		if err := evaluateModel(provider, report, *trainFrac); err != nil {
			fmt.Fprintf(os.Stderr, "Error evaluating model: %v\n", err)
			os.Exit(1)
		}
	}
}

// ingestConfig returns the config's ingest section, or an empty one when no
// config was given.
func ingestConfig(provider config.ConfigProvider) config.IngestData {
	if provider == nil {
		return config.IngestData{}
	}
	ing, err := provider.GetIngest()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ingest configuration: %v\n", err)
		os.Exit(1)
	}
	return *ing
}

func pipelineParams(provider config.ConfigProvider) fouling.Params {
	if provider == nil {
		return fouling.DefaultParams()
	}
	pipe, err := provider.GetPipeline()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading pipeline configuration: %v\n", err)
		os.Exit(1)
	}
	return pipe.Params()
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func displayCalibration(report *fouling.RunReport) {
	cal := report.Calibration
	fmt.Printf("Efficiency Calibration\n")
	fmt.Printf("======================\n\n")
	fmt.Printf("  Global factor:    %.6g (median of %d clean events)\n", cal.Global, cal.CleanPoolSize)
	fmt.Printf("  Calibrated ships: %d\n", len(cal.PerShip))
	if cal.ZeroPowerSkips > 0 {
		fmt.Printf("  Skipped:          %d clean events without positive power-duration\n", cal.ZeroPowerSkips)
	}
	fmt.Printf("  Dynamic reference: %.4f\n\n", report.DynamicReference)
}

func displayDiagnostics(report *fouling.RunReport) {
	d := report.Diagnostics
	fmt.Printf("Row Accounting\n")
	fmt.Printf("==============\n\n")
	fmt.Printf("  %-28s %6d\n", "Events loaded", d.EventsLoaded)
	fmt.Printf("  %-28s %6d\n", "Malformed input rows", d.MalformedRows)
	fmt.Printf("  %-28s %6d\n", "No consumption match", d.MissingConsumption)
	fmt.Printf("  %-28s %6d\n", "No cleaning history", d.MissingDaysSince)
	fmt.Printf("  %-28s %6d\n", "Consumption at/below floor", d.NonPositiveConsumption)
	fmt.Printf("  %-28s %6d\n", "Percentile trimmed", d.PercentileTrimmed)
	fmt.Printf("  %-28s %6d\n", "Ratio out of range", d.RatioOutOfRange)
	fmt.Printf("  %-28s %6d\n", "Results emitted", d.ResultsEmitted)
	fmt.Println()
}

func displayFleet(report *fouling.RunReport) {
	fmt.Printf("Fleet Summary\n")
	fmt.Printf("=============\n\n")

	fmt.Printf("%-20s | %6s | %9s | %9s | %8s | %-8s | %10s\n",
		"Ship", "Events", "Avg Ratio", "Max Ratio", "Max Idx", "Band", "Fuel (t)")
	fmt.Printf("---------------------+--------+-----------+-----------+----------+----------+-----------\n")
	for _, s := range report.Summaries {
		fmt.Printf("%-20s | %6d | %9.4f | %9.4f | %8.1f | %-8s | %10.2f\n",
			s.ShipName, s.NumEvents, s.AvgExcessRatio, s.MaxExcessRatio,
			s.MaxBioIndex, severity.Band(s.MaxBioIndex), s.TotalAdditionalFuel)
	}

	fleet := report.Fleet
	fmt.Printf("\n  Fleet: %d ships, %d events, avg ratio %.4f, additional %.1f t fuel / $%.0f / %.1f t CO2\n\n",
		fleet.NumShips, fleet.NumEvents, fleet.AvgExcessRatio,
		fleet.TotalAdditionalFuel, fleet.TotalAdditionalCost, fleet.TotalAdditionalCO2)
}

func displayHighRisk(report *fouling.RunReport, threshold float64) {
	risks := report.HighRisk(threshold)
	if len(risks) == 0 {
		fmt.Printf("No ships at or above index %.1f\n\n", threshold)
		return
	}

	fmt.Printf("High-Risk Ships (index >= %.1f)\n", threshold)
	fmt.Printf("==============================\n\n")
	for _, r := range risks {
		fmt.Printf("  %-20s max %.1f  avg %.1f  latest %-8s  %s\n",
			r.ShipName, r.MaxBioIndex, r.AvgBioIndex, r.LatestBioClass, r.Recommendation)
	}
	fmt.Println()
}

// displayShifts reports step changes in each ship's excess-ratio series.
// Downward steps with no matching drydock entry usually mean a cleaning
// happened that the maintenance export never recorded.
func displayShifts(report *fouling.RunReport) {
	found := fouling.DetectRatioShifts(fouling.RowsFromResults(report.Results),
		fouling.DefaultShiftMinSegment, fouling.DefaultShiftPenalty)

	fmt.Printf("Ratio Shifts\n")
	fmt.Printf("============\n\n")
	if len(found) == 0 {
		fmt.Printf("  No step changes detected\n\n")
		return
	}
	for _, s := range found {
		note := ""
		if s.LooksLikeCleaning() {
			note = "  possible unrecorded cleaning"
		}
		fmt.Printf("  %-20s %s  %.4f -> %.4f%s\n",
			s.ShipName, s.At.Format("2006-01-02"), s.Before, s.After, note)
	}
	fmt.Println()
}

// storeToBackends delivers the run synchronously to each backend in the
// config's storage section.
func storeToBackends(provider config.ConfigProvider, report *fouling.RunReport) error {
	sc, err := provider.GetStorageConfig()
	if err != nil {
		return fmt.Errorf("loading storage configuration: %w", err)
	}

	ctx := context.Background()
	stored := 0

	if sc.Postgres != nil && sc.Postgres.ConnectionString != "" {
		engine, err := postgres.New(ctx, sc.Postgres.ConnectionString)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := engine.StoreReport(report); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		fmt.Printf("Stored run %s to Postgres\n", report.RunID)
		stored++
	}

	if sc.SQLite != nil && sc.SQLite.Path != "" {
		engine, err := sqlitearchive.New(ctx, sc.SQLite.Path)
		if err != nil {
			return fmt.Errorf("sqlite archive: %w", err)
		}
		defer engine.Close()
		if err := engine.StoreReport(report); err != nil {
			return fmt.Errorf("sqlite archive: %w", err)
		}
		fmt.Printf("Stored run %s to %s\n", report.RunID, sc.SQLite.Path)
		stored++
	}

	if stored == 0 {
		return fmt.Errorf("no storage backends configured")
	}
	fmt.Println()
	return nil
}

// evaluateModel replays the run's processed rows through the configured
// predictor, holding out the newest voyages.
func evaluateModel(provider config.ConfigProvider, report *fouling.RunReport, trainFrac float64) error {
	predictor, encoding, err := loadPredictor(provider, report)
	if err != nil {
		return err
	}
	info := predictor.Info()

	ratioFor := func(r fouling.Row) float64 {
		in := predict.Input{
			SpeedKnots:         r.Event.SpeedKnots,
			BeaufortScale:      float64(r.Event.BeaufortScale),
			DaysSinceCleaning:  r.Feat.DaysSinceCleaning,
			PctIdleRecent:      r.Feat.PctIdleRecent,
			HistoricalAvgSpeed: r.Feat.HistoricalAvgSpeed,
			PaintType:          r.Feat.PaintType,
		}
		ratio, err := predictor.Predict(predict.Vector(in, predictor.Features(), encoding))
		if err != nil {
			return 0
		}
		return ratio
	}

	rows := fouling.RowsFromResults(report.Results)
	train, test := fouling.ChronoSplit(rows, trainFrac)
	metrics := fouling.Evaluate(test, ratioFor)
	metrics.TrainRows = len(train)

	fmt.Printf("Model Evaluation (%s %s)\n", info.Name, info.Version)
	fmt.Printf("================\n\n")
	fmt.Printf("  Split:    %d train / %d test (newest %.0f%% held out)\n",
		metrics.TrainRows, metrics.TestRows, (1-trainFrac)*100)
	fmt.Printf("  RMSE:     %.3f t\n", metrics.RMSE)
	fmt.Printf("  MAE:      %.3f t\n", metrics.MAE)
	fmt.Printf("  WMAPE:    %.4f\n", metrics.WMAPE)
	fmt.Printf("  Accuracy: %.2f%%\n\n", metrics.AccuracyPct)

	fmt.Printf("Residuals by hull age:\n")
	for _, bin := range metrics.Bins {
		if bin.Count == 0 {
			fmt.Printf("  %4.0f-%4.0f days: no voyages\n", bin.MinDays, bin.MaxDays)
			continue
		}
		fmt.Printf("  %4.0f-%4.0f days: %3d voyages, mean abs error %.3f t\n",
			bin.MinDays, bin.MaxDays, bin.Count, bin.MeanAbsErr)
	}
	fmt.Println()

	if len(test) > 0 {
		clean, fouled := fouling.ScenarioRatios(test[0], 30, 400, ratioFor)
		fmt.Printf("Scenario check (%s at %.0f kt):\n", test[0].Event.ShipName, test[0].Event.SpeedKnots)
		fmt.Printf("  30 days since cleaning:  ratio %.4f\n", clean)
		fmt.Printf("  400 days since cleaning: ratio %.4f\n", fouled)
		if fouled < clean {
			fmt.Printf("  WARNING: model predicts less excess for the older hull\n")
		}
		fmt.Println()
	}
	return nil
}

// loadPredictor builds the predictor and paint encoding for evaluation from
// the config's model section, falling back to the built-in heuristic and the
// run's own encoding.
func loadPredictor(provider config.ConfigProvider, report *fouling.RunReport) (predict.Predictor, fouling.PaintEncoding, error) {
	var predictor predict.Predictor = predict.Heuristic{}
	encoding := report.PaintEncoding

	if provider == nil {
		return predictor, encoding, nil
	}
	model, err := provider.GetModel()
	if err != nil {
		return nil, nil, fmt.Errorf("loading model configuration: %w", err)
	}
	if model.Path != "" {
		predictor, err = predict.LoadEnsembleFile(model.Path)
		if err != nil {
			return nil, nil, err
		}
	}
	if model.EncodingPath != "" {
		encoding, err = predict.LoadEncodingFile(model.EncodingPath)
		if err != nil {
			return nil, nil, err
		}
	}
	return predictor, encoding, nil
}
