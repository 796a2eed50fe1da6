package csvreport

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/types"
)

func sampleReport(runID string, started time.Time) *fouling.RunReport {
	return &fouling.RunReport{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Params:     fouling.DefaultParams(),
		Results: []types.BiofoulingResult{
			{
				ShipName:            "MIRA",
				SessionID:           "s1",
				StartDate:           time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC),
				SpeedKnots:          12.5,
				DurationHours:       24,
				BeaufortScale:       3,
				ConsumedTons:        18.2,
				DaysSinceCleaning:   120,
				PctIdleRecent:       0.25,
				PaintType:           "SPC Ultra",
				TheoreticalPower:    1969.9,
				EfficiencyFactor:    0.0042,
				BaselineConsumption: 15.5,
				ExcessRatio:         0.174,
				BioIndex:            6.8,
				BioClass:            types.ClassModerate,
				AdditionalFuelTons:  2.7,
				AdditionalCostUSD:   1350,
				AdditionalCO2Tons:   8.41,
			},
			{
				ShipName:   "NAOS",
				SessionID:  "s2",
				StartDate:  time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC),
				SpeedKnots: 10,
				BioClass:   types.ClassLight,
			},
		},
		Summaries: []types.ShipSummary{
			{ShipName: "MIRA", NumEvents: 1, AvgExcessRatio: 0.174, TotalAdditionalCost: 1350},
		},
		Fleet:       types.FleetSummary{NumShips: 2, NumEvents: 2},
		Diagnostics: types.Diagnostics{EventsLoaded: 3, MissingConsumption: 1, ResultsEmitted: 2},
		Calibration: fouling.Calibration{
			Global:        0.0042,
			PerShip:       map[string]float64{"MIRA": 0.0041},
			CleanPoolSize: 14,
		},
		DynamicReference: 0.21,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestStoreReportWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.StoreReport(sampleReport("run-1", time.Now())); err != nil {
		t.Fatalf("StoreReport: %v", err)
	}

	results := readCSV(t, filepath.Join(dir, ResultsFile))
	if len(results) != 3 {
		t.Fatalf("results rows = %d, want header + 2", len(results))
	}
	if results[0][0] != "ship_name" || results[0][15] != "bio_index_0_10" {
		t.Errorf("unexpected results header: %v", results[0])
	}
	row := results[1]
	if row[0] != "MIRA" || row[2] != "2026-01-15T08:30:00Z" {
		t.Errorf("unexpected first row: %v", row)
	}
	if row[3] != "12.5" || row[14] != "0.174" || row[16] != types.ClassModerate {
		t.Errorf("unexpected first row values: %v", row)
	}

	summaries := readCSV(t, filepath.Join(dir, SummariesFile))
	if len(summaries) != 2 || summaries[1][0] != "MIRA" || summaries[1][1] != "1" {
		t.Errorf("unexpected summaries: %v", summaries)
	}

	raw, err := os.ReadFile(filepath.Join(dir, DiagnosticsFile))
	if err != nil {
		t.Fatalf("read diagnostics: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse diagnostics: %v", err)
	}
	for _, key := range []string{"diagnostics", "fleet", "params", "global_efficiency_factor", "dynamic_reference"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("diagnostics document missing %q", key)
		}
	}
	if _, ok := doc["run_id"]; ok {
		t.Error("diagnostics document must not carry run metadata")
	}
}

func TestArtifactsAreReproducible(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Two runs over identical inputs differ only in ID and wall-clock times.
	if err := s.StoreReport(sampleReport("run-1", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("first StoreReport: %v", err)
	}
	first := map[string][]byte{}
	for _, name := range []string{ResultsFile, SummariesFile, DiagnosticsFile} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		first[name] = raw
	}

	if err := s.StoreReport(sampleReport("run-2", time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("second StoreReport: %v", err)
	}
	for _, name := range []string{ResultsFile, SummariesFile, DiagnosticsFile} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("reread %s: %v", name, err)
		}
		if !bytes.Equal(first[name], raw) {
			t.Errorf("%s changed across identical runs", name)
		}
	}
}

func TestStoreReportReplacesArtifacts(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.StoreReport(sampleReport("run-1", time.Now())); err != nil {
		t.Fatalf("first StoreReport: %v", err)
	}

	smaller := sampleReport("run-2", time.Now())
	smaller.Results = smaller.Results[:1]
	if err := s.StoreReport(smaller); err != nil {
		t.Fatalf("second StoreReport: %v", err)
	}

	results := readCSV(t, filepath.Join(dir, ResultsFile))
	if len(results) != 2 {
		t.Errorf("results rows = %d, want header + 1 after replacement", len(results))
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	if err != nil {
		t.Fatalf("glob temp files: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp artifacts left behind: %v", leftovers)
	}
}

func TestNewRejectsEmptyDirectory(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestCheckHealth(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if health := s.CheckHealth(); health.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", health.Status)
	}

	os.RemoveAll(dir)
	if health := s.CheckHealth(); health.Status != "unhealthy" {
		t.Errorf("Status after removal = %q, want unhealthy", health.Status)
	}
}
