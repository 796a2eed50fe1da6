package main

import (
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	_ "github.com/lib/pq"
	"gonum.org/v1/gonum/stat"
)

// FactorSample is one clean event's implied efficiency factor: observed
// consumption divided by theoretical power times duration.
type FactorSample struct {
	ShipName     string
	StartDate    time.Time
	ConsumedTons float64
	PowerHours   float64
	Factor       float64
	StoredFactor float64
}

// ShipCalibration is the fitted factor for one ship.
type ShipCalibration struct {
	ShipName     string
	SampleCount  int
	Factor       float64 // median, the factor the pipeline would use
	Mean         float64
	StdDev       float64
	StoredFactor float64 // mean factor the stored results were computed with
	DriftPct     float64 // (Factor - StoredFactor) / StoredFactor
	Fallback     bool    // true when below -min-events and the fleet factor applies
}

func main() {
	// Command line flags
	var (
		dbHost    = flag.String("db-host", "localhost", "Database host")
		dbPort    = flag.Int("db-port", 5432, "Database port")
		dbUser    = flag.String("db-user", "postgres", "Database user")
		dbPass    = flag.String("db-pass", "", "Database password")
		dbName    = flag.String("db-name", "hullwatch", "Database name")
		sslMode   = flag.String("sslmode", "disable", "Postgres sslmode")
		cleanDays = flag.Float64("clean-days", 90, "Days-since-cleaning ceiling for a clean event")
		minEvents = flag.Int("min-events", 1, "Minimum clean events for a per-ship factor")
		writeBack = flag.Bool("write", false, "Write the fitted factors to the efficiency_factors table")
		csvOutput = flag.String("csv", "", "Optional CSV output file for the factor samples")
	)
	flag.Parse()

	// Connect to database
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		*dbHost, *dbPort, *dbUser, *dbPass, *dbName, *sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// Test connection
	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging database: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Hull Efficiency Factor Calibration\n")
	fmt.Printf("==================================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Database:        %s@%s:%d/%s\n", *dbUser, *dbHost, *dbPort, *dbName)
	fmt.Printf("  Clean threshold: < %.0f days since cleaning\n", *cleanDays)
	fmt.Printf("  Min events:      %d per ship\n\n", *minEvents)

	samples := fetchCleanSamples(db, *cleanDays)
	if len(samples) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no clean events in biofouling_results. Run the pipeline first.\n")
		os.Exit(1)
	}
	fmt.Printf("Collected %d clean-event samples\n\n", len(samples))

	global, ships := calibrate(samples, *minEvents)

	displayGlobal(global, len(samples))
	displayShips(ships, global.Factor)

	if *writeBack {
		if err := writeFactors(db, global, ships); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing factors: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d per-ship factors and the fleet factor to efficiency_factors\n", countCalibrated(ships))
	}

	if *csvOutput != "" {
		if err := exportCSV(*csvOutput, samples); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		} else {
			fmt.Printf("\nSamples exported to: %s\n", *csvOutput)
		}
	}
}

func fetchCleanSamples(db *sql.DB, cleanDays float64) []FactorSample {
	query := `
		SELECT
			ship_name,
			start_date,
			consumed_tons,
			theoretical_power * duration_hours AS power_hours,
			efficiency_factor
		FROM biofouling_results
		WHERE days_since_cleaning IS NOT NULL
		  AND days_since_cleaning < $1
		  AND theoretical_power * duration_hours > 0
		  AND consumed_tons > 0
		ORDER BY ship_name, start_date
	`

	rows, err := db.Query(query, cleanDays)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying results: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	var samples []FactorSample
	for rows.Next() {
		var s FactorSample
		if err := rows.Scan(&s.ShipName, &s.StartDate, &s.ConsumedTons, &s.PowerHours, &s.StoredFactor); err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning row: %v\n", err)
			continue
		}
		s.Factor = s.ConsumedTons / s.PowerHours
		samples = append(samples, s)
	}

	return samples
}

// calibrate reduces the samples to one fleet-wide factor and one candidate
// factor per ship. Ships below minEvents are marked as falling back to the
// fleet factor, matching what the pipeline does.
func calibrate(samples []FactorSample, minEvents int) (ShipCalibration, []ShipCalibration) {
	perShip := make(map[string][]FactorSample)
	for _, s := range samples {
		perShip[s.ShipName] = append(perShip[s.ShipName], s)
	}

	global := fitShip("FLEET", samples, minEvents)

	names := make([]string, 0, len(perShip))
	for name := range perShip {
		names = append(names, name)
	}
	sort.Strings(names)

	ships := make([]ShipCalibration, 0, len(names))
	for _, name := range names {
		ships = append(ships, fitShip(name, perShip[name], minEvents))
	}
	return global, ships
}

func fitShip(name string, samples []FactorSample, minEvents int) ShipCalibration {
	factors := make([]float64, len(samples))
	var storedSum float64
	for i, s := range samples {
		factors[i] = s.Factor
		storedSum += s.StoredFactor
	}

	cal := ShipCalibration{
		ShipName:    name,
		SampleCount: len(samples),
		Factor:      median(factors),
		Mean:        stat.Mean(factors, nil),
		Fallback:    len(samples) < minEvents,
	}
	if len(factors) > 1 {
		cal.StdDev = stat.StdDev(factors, nil)
	}
	if len(samples) > 0 {
		cal.StoredFactor = storedSum / float64(len(samples))
	}
	if cal.StoredFactor > 0 {
		cal.DriftPct = (cal.Factor - cal.StoredFactor) / cal.StoredFactor * 100
	}
	return cal
}

// median is the middle sample, or the mean of the two middle samples, the
// same convention the pipeline calibrates with.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func displayGlobal(global ShipCalibration, poolSize int) {
	fmt.Printf("Fleet Factor\n")
	fmt.Printf("============\n\n")
	fmt.Printf("  Median:  %.6g\n", global.Factor)
	fmt.Printf("  Mean:    %.6g\n", global.Mean)
	fmt.Printf("  StdDev:  %.3g\n", global.StdDev)
	fmt.Printf("  Samples: %d\n", poolSize)
	if global.StoredFactor > 0 {
		fmt.Printf("  Stored:  %.6g (%+.2f%% drift)\n", global.StoredFactor, global.DriftPct)
	}
	fmt.Println()
}

func displayShips(ships []ShipCalibration, fleetFactor float64) {
	fmt.Printf("Per-Ship Factors\n")
	fmt.Printf("================\n\n")

	fmt.Printf("%-20s | %7s | %10s | %10s | %9s | %10s | %8s\n",
		"Ship", "Samples", "Factor", "Mean", "StdDev", "Stored", "Drift")
	fmt.Printf("---------------------+---------+------------+------------+-----------+------------+---------\n")

	for _, s := range ships {
		if s.Fallback {
			fmt.Printf("%-20s | %7d | %10.6f | %10s | %9s | %10.6f | %8s (fleet fallback)\n",
				s.ShipName, s.SampleCount, fleetFactor, "-", "-", s.StoredFactor, "-")
			continue
		}
		fmt.Printf("%-20s | %7d | %10.6f | %10.6f | %9.6f | %10.6f | %+7.2f%%\n",
			s.ShipName, s.SampleCount, s.Factor, s.Mean, s.StdDev, s.StoredFactor, s.DriftPct)
	}
	fmt.Println()

	for _, s := range ships {
		if !s.Fallback && s.StdDev > 0 && s.StdDev > s.Factor*0.5 {
			fmt.Printf("  ! %s: factor spread is wide (stddev %.2g vs factor %.2g); inspect its clean events\n",
				s.ShipName, s.StdDev, s.Factor)
		}
	}
}

const createFactorsTableSQL = `
CREATE TABLE IF NOT EXISTS efficiency_factors (
	ship_name     TEXT PRIMARY KEY,
	factor        DOUBLE PRECISION NOT NULL,
	sample_count  INTEGER NOT NULL,
	calibrated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// writeFactors upserts the fitted factors. The fleet-wide fallback is stored
// under the reserved name '*', which normalization can never produce for a
// real ship.
func writeFactors(db *sql.DB, global ShipCalibration, ships []ShipCalibration) error {
	if _, err := db.Exec(createFactorsTableSQL); err != nil {
		return fmt.Errorf("create efficiency_factors: %w", err)
	}

	upsert := `
		INSERT INTO efficiency_factors (ship_name, factor, sample_count, calibrated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (ship_name)
		DO UPDATE SET factor = EXCLUDED.factor,
		              sample_count = EXCLUDED.sample_count,
		              calibrated_at = EXCLUDED.calibrated_at
	`

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(upsert, "*", global.Factor, global.SampleCount); err != nil {
		return fmt.Errorf("upsert fleet factor: %w", err)
	}
	for _, s := range ships {
		if s.Fallback {
			continue
		}
		if _, err := tx.Exec(upsert, s.ShipName, s.Factor, s.SampleCount); err != nil {
			return fmt.Errorf("upsert %s: %w", s.ShipName, err)
		}
	}
	return tx.Commit()
}

func countCalibrated(ships []ShipCalibration) int {
	n := 0
	for _, s := range ships {
		if !s.Fallback {
			n++
		}
	}
	return n
}

func exportCSV(filename string, samples []FactorSample) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{"ship_name", "start_date", "consumed_tons", "power_hours", "factor", "stored_factor"}
	if err := writer.Write(header); err != nil {
		return err
	}

	// Write data
	for _, s := range samples {
		record := []string{
			s.ShipName,
			s.StartDate.Format(time.RFC3339),
			fmt.Sprintf("%.4f", s.ConsumedTons),
			fmt.Sprintf("%.2f", s.PowerHours),
			fmt.Sprintf("%.8f", s.Factor),
			fmt.Sprintf("%.8f", s.StoredFactor),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}
