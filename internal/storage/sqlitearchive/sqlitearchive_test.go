package sqlitearchive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/types"
)

func openTestArchive(t *testing.T) *Storage {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testReport(runID string, finished time.Time) *fouling.RunReport {
	return &fouling.RunReport{
		RunID:      runID,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
		Params:     fouling.DefaultParams(),
		Results: []types.BiofoulingResult{{
			ShipName:    "MIRA",
			SessionID:   "s1",
			StartDate:   finished.Add(-24 * time.Hour),
			SpeedKnots:  12,
			ExcessRatio: 0.18,
			BioIndex:    6.9,
			BioClass:    types.ClassModerate,
		}},
		Summaries: []types.ShipSummary{{
			ShipName:  "MIRA",
			NumEvents: 1,
		}},
		Diagnostics: types.Diagnostics{EventsLoaded: 2, MissingConsumption: 1, ResultsEmitted: 1},
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	s := openTestArchive(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.StoreReport(testReport("run-1", now)); err != nil {
		t.Fatalf("StoreReport: %v", err)
	}

	got, err := s.LatestReport()
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if got == nil {
		t.Fatal("LatestReport returned nil after store")
	}
	if got.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", got.RunID)
	}
	if len(got.Results) != 1 || got.Results[0].ShipName != "MIRA" {
		t.Errorf("results not round-tripped: %+v", got.Results)
	}
	if got.Results[0].BioClass != types.ClassModerate {
		t.Errorf("BioClass = %q", got.Results[0].BioClass)
	}
	if got.Params.CleanThresholdDays != 90 {
		t.Errorf("params not round-tripped: %+v", got.Params)
	}
	if got.Diagnostics.ResultsEmitted != 1 || got.Diagnostics.MissingConsumption != 1 {
		t.Errorf("diagnostics not round-tripped: %+v", got.Diagnostics)
	}
}

func TestLatestReportEmptyArchive(t *testing.T) {
	s := openTestArchive(t)

	got, err := s.LatestReport()
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if got != nil {
		t.Errorf("LatestReport = %+v, want nil for empty archive", got)
	}
}

func TestStoreReportPrunes(t *testing.T) {
	s := openTestArchive(t)
	s.keepRuns = 2

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		if err := s.StoreReport(testReport(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("StoreReport %s: %v", id, err)
		}
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM run_reports`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 2 {
		t.Errorf("archived runs = %d, want 2 after pruning", count)
	}

	latest, err := s.LatestReport()
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if latest.RunID != "run-3" {
		t.Errorf("latest RunID = %q, want run-3", latest.RunID)
	}

	var oldest int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM run_reports WHERE run_id = 'run-1'`).Scan(&oldest); err != nil {
		t.Fatalf("query oldest: %v", err)
	}
	if oldest != 0 {
		t.Error("run-1 should have been pruned")
	}
}

func TestStoreReportReplacesSameRun(t *testing.T) {
	s := openTestArchive(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.StoreReport(testReport("run-1", now)); err != nil {
		t.Fatalf("first store: %v", err)
	}
	updated := testReport("run-1", now.Add(time.Minute))
	updated.Diagnostics.ResultsEmitted = 5
	if err := s.StoreReport(updated); err != nil {
		t.Fatalf("second store: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM run_reports`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1 after replacing same run", count)
	}
}

func TestCheckHealth(t *testing.T) {
	s := openTestArchive(t)

	health := s.CheckHealth()
	if health.Status != "healthy" {
		t.Fatalf("Status = %q, want healthy (%s)", health.Status, health.Error)
	}

	if err := s.StoreReport(testReport("run-1", time.Now().UTC())); err != nil {
		t.Fatalf("StoreReport: %v", err)
	}
	health = s.CheckHealth()
	if health.Message != "1 runs archived" {
		t.Errorf("Message = %q", health.Message)
	}
}
