package fouling

import (
	"math"
	"testing"
	"time"

	"github.com/hullwatch/hullwatch/internal/types"
)

func TestSummarize(t *testing.T) {
	rows := []Row{
		{
			Event:        types.VoyageEvent{ShipName: "BETA", SessionID: "B1", StartDate: day(2024, time.April, 1)},
			ConsumedTons: 105,
			Baseline:     100,
			Ratio:        0.05,
			Index:        2.7,
			Impact:       Impact{FuelTons: 5, CostUSD: 2500, CO2Tons: 15.57},
		},
		{
			Event:        types.VoyageEvent{ShipName: "BETA", SessionID: "B2", StartDate: day(2024, time.May, 1)},
			ConsumedTons: 230,
			Baseline:     200,
			Ratio:        0.15,
			Index:        6.9,
			Impact:       Impact{FuelTons: 30, CostUSD: 15000, CO2Tons: 93.42},
		},
		{
			Event:        types.VoyageEvent{ShipName: "ALPHA", SessionID: "A1", StartDate: day(2024, time.April, 1)},
			ConsumedTons: 50,
			Baseline:     50,
			Ratio:        0,
			Index:        2.7,
		},
	}

	summaries := Summarize(rows)

	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].ShipName != "ALPHA" || summaries[1].ShipName != "BETA" {
		t.Fatalf("summaries must sort by ship name, got %s/%s",
			summaries[0].ShipName, summaries[1].ShipName)
	}

	beta := summaries[1]
	if beta.NumEvents != 2 {
		t.Errorf("expected 2 events, got %d", beta.NumEvents)
	}
	if math.Abs(beta.AvgExcessRatio-0.10) > 1e-12 {
		t.Errorf("avg ratio: expected 0.10, got %.6f", beta.AvgExcessRatio)
	}
	if beta.MaxExcessRatio != 0.15 {
		t.Errorf("max ratio: expected 0.15, got %.6f", beta.MaxExcessRatio)
	}
	if math.Abs(beta.AvgBioIndex-4.8) > 1e-12 {
		t.Errorf("avg index: expected 4.8, got %.4f", beta.AvgBioIndex)
	}
	if beta.MaxBioIndex != 6.9 {
		t.Errorf("max index: expected 6.9, got %.4f", beta.MaxBioIndex)
	}
	if beta.TotalBaselineFuel != 300 || beta.TotalRealFuel != 335 {
		t.Errorf("fuel totals: expected 300/335, got %.1f/%.1f",
			beta.TotalBaselineFuel, beta.TotalRealFuel)
	}
	if beta.TotalAdditionalFuel != 35 {
		t.Errorf("additional fuel: expected 35, got %.2f", beta.TotalAdditionalFuel)
	}
	if beta.TotalAdditionalCost != 17500 {
		t.Errorf("additional cost: expected 17500, got %.2f", beta.TotalAdditionalCost)
	}
}

func TestSummarizeFleet(t *testing.T) {
	summaries := []types.ShipSummary{
		{ShipName: "ALPHA", NumEvents: 4, AvgExcessRatio: 0.08, AvgBioIndex: 4.0, MaxBioIndex: 9.1, TotalAdditionalFuel: 10},
		{ShipName: "BETA", NumEvents: 1, AvgExcessRatio: 0.03, AvgBioIndex: 2.7, MaxBioIndex: 2.7, TotalAdditionalFuel: 2},
	}

	fleet := SummarizeFleet(summaries)

	if fleet.NumShips != 2 || fleet.NumEvents != 5 {
		t.Errorf("expected 2 ships / 5 events, got %d/%d", fleet.NumShips, fleet.NumEvents)
	}
	// Event-weighted, not ship-weighted: (0.08*4 + 0.03*1) / 5.
	if math.Abs(fleet.AvgExcessRatio-0.07) > 1e-12 {
		t.Errorf("avg ratio: expected 0.07, got %.6f", fleet.AvgExcessRatio)
	}
	if fleet.MaxBioIndex != 9.1 {
		t.Errorf("max index: expected 9.1, got %.2f", fleet.MaxBioIndex)
	}
	if fleet.TotalAdditionalFuel != 12 {
		t.Errorf("additional fuel: expected 12, got %.2f", fleet.TotalAdditionalFuel)
	}

	empty := SummarizeFleet(nil)
	if empty.NumShips != 0 || empty.AvgExcessRatio != 0 {
		t.Errorf("empty fleet should be all zeros, got %+v", empty)
	}
}

func TestResultsPreservesOrder(t *testing.T) {
	rows := []Row{
		{Event: types.VoyageEvent{ShipName: "ALPHA", SessionID: "A1"}, Class: types.ClassLight},
		{Event: types.VoyageEvent{ShipName: "ALPHA", SessionID: "A2"}, Class: types.ClassSevere},
	}

	results := Results(rows)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].SessionID != "A1" || results[1].SessionID != "A2" {
		t.Errorf("row order must be preserved, got %s/%s", results[0].SessionID, results[1].SessionID)
	}
	if results[1].BioClass != types.ClassSevere {
		t.Errorf("class must carry through, got %s", results[1].BioClass)
	}
}

func TestRowsFromResults(t *testing.T) {
	rows := []Row{
		{
			Event: types.VoyageEvent{
				ShipName:      "ALPHA",
				SessionID:     "A1",
				StartDate:     day(2024, time.March, 1),
				SpeedKnots:    12,
				DurationHours: 24,
				BeaufortScale: 3,
			},
			ConsumedTons: 220,
			Feat: types.EventFeatures{
				DaysSinceCleaning:      120,
				PctIdleRecent:          0.2,
				HistoricalAvgSpeed:     11.5,
				AccumulatedFoulingRisk: 24,
				PaintType:              "SPC Ultra",
			},
			Power:      1969.9,
			Efficiency: 0.0042,
			Baseline:   198.6,
			Ratio:      0.1078,
			Index:      5.2,
			Class:      types.ClassModerate,
		},
	}

	back := RowsFromResults(Results(rows))
	if len(back) != 1 {
		t.Fatalf("expected 1 row, got %d", len(back))
	}

	got, want := back[0], rows[0]
	if got.Event != want.Event {
		t.Errorf("event did not survive the round trip: %+v", got.Event)
	}
	if got.ConsumedTons != want.ConsumedTons || got.Baseline != want.Baseline || got.Ratio != want.Ratio {
		t.Errorf("consumption chain wrong: %.4f/%.4f/%.4f", got.ConsumedTons, got.Baseline, got.Ratio)
	}
	if got.Feat.DaysSinceCleaning != 120 || got.Feat.PaintType != "SPC Ultra" {
		t.Errorf("features wrong: %+v", got.Feat)
	}
	if !math.IsNaN(got.Feat.HistoricalAvgSpeed) {
		t.Errorf("historical speed is not stored per result; expected NaN, got %.2f", got.Feat.HistoricalAvgSpeed)
	}
	if got.Class != types.ClassModerate || got.Index != 5.2 {
		t.Errorf("classification wrong: %s/%.1f", got.Class, got.Index)
	}
}

func riskReport() *RunReport {
	return &RunReport{
		RunID:            "run-9",
		DynamicReference: 0.18,
		Calibration: Calibration{
			Global:  0.0042,
			PerShip: map[string]float64{"MIRA": 0.0040},
		},
		Results: []types.BiofoulingResult{
			{ShipName: "MIRA", StartDate: day(2026, time.January, 5), ExcessRatio: 0.08, BioIndex: 4.5, BioClass: types.ClassLight, AdditionalFuelTons: 4, AdditionalCostUSD: 2000, AdditionalCO2Tons: 12.456},
			{ShipName: "MIRA", StartDate: day(2026, time.February, 5), ExcessRatio: 0.25, BioIndex: 8.2, BioClass: types.ClassSevere, AdditionalFuelTons: 25, AdditionalCostUSD: 12500, AdditionalCO2Tons: 77.85},
			{ShipName: "NAOS", StartDate: day(2026, time.January, 20), ExcessRatio: 0.15, BioIndex: 6.2, BioClass: types.ClassModerate, AdditionalFuelTons: 15, AdditionalCostUSD: 7500, AdditionalCO2Tons: 46.71},
			{ShipName: "VEGA", StartDate: day(2026, time.March, 1), ExcessRatio: 0.19, BioIndex: 7.1, BioClass: types.ClassModerate, AdditionalFuelTons: 19, AdditionalCostUSD: 9500, AdditionalCO2Tons: 59.166},
		},
		Summaries: []types.ShipSummary{
			{ShipName: "MIRA", NumEvents: 2, AvgBioIndex: 6.35, MaxBioIndex: 8.2},
			{ShipName: "NAOS", NumEvents: 1, AvgBioIndex: 6.2, MaxBioIndex: 6.2},
			{ShipName: "VEGA", NumEvents: 1, AvgBioIndex: 7.1, MaxBioIndex: 7.1},
		},
	}
}

func TestStatistics(t *testing.T) {
	stats := riskReport().Statistics()

	if stats.NumEvents != 4 || stats.NumShips != 3 {
		t.Fatalf("expected 4 events / 3 ships, got %d/%d", stats.NumEvents, stats.NumShips)
	}
	if math.Abs(stats.AvgExcessRatio-0.1675) > 1e-9 {
		t.Errorf("avg ratio: expected 0.1675, got %v", stats.AvgExcessRatio)
	}
	if stats.MaxExcessRatio != 0.25 || stats.MaxBioIndex != 8.2 {
		t.Errorf("max ratio/index: got %v/%v", stats.MaxExcessRatio, stats.MaxBioIndex)
	}
	if stats.ClassCounts[types.ClassModerate] != 2 || stats.ClassCounts[types.ClassSevere] != 1 {
		t.Errorf("class counts wrong: %v", stats.ClassCounts)
	}
	if stats.TotalAdditional != 63 {
		t.Errorf("total fuel: expected 63, got %v", stats.TotalAdditional)
	}
	if stats.DynamicReference != 0.18 || stats.GlobalEfficiency != 0.0042 {
		t.Errorf("reference/efficiency wrong: %v/%v", stats.DynamicReference, stats.GlobalEfficiency)
	}
	if stats.CalibratedShips != 1 || stats.LastPipelineRunID != "run-9" {
		t.Errorf("calibration metadata wrong: %d/%s", stats.CalibratedShips, stats.LastPipelineRunID)
	}
}

func TestStatisticsEmptyRun(t *testing.T) {
	stats := (&RunReport{DynamicReference: 0.05}).Statistics()
	if stats.NumEvents != 0 || stats.AvgBioIndex != 0 {
		t.Errorf("empty run should report zeros, got %+v", stats)
	}
}

func TestHighRisk(t *testing.T) {
	risks := riskReport().HighRisk(7.0)

	if len(risks) != 2 {
		t.Fatalf("expected 2 high-risk ships, got %d", len(risks))
	}
	if risks[0].ShipName != "MIRA" || risks[1].ShipName != "VEGA" {
		t.Fatalf("risks must sort worst first, got %s/%s", risks[0].ShipName, risks[1].ShipName)
	}

	mira := risks[0]
	if mira.Recommendation != "Cleaning recommended" {
		t.Errorf("index 8.2 should recommend cleaning, got %q", mira.Recommendation)
	}
	if mira.LatestBioClass != types.ClassSevere {
		t.Errorf("latest class should come from the newest event, got %q", mira.LatestBioClass)
	}
	if !mira.LatestEvent.Equal(day(2026, time.February, 5)) {
		t.Errorf("latest event date wrong: %v", mira.LatestEvent)
	}

	if risks[1].Recommendation != "Monitor closely" {
		t.Errorf("index 7.1 should be watch-listed, got %q", risks[1].Recommendation)
	}

	if got := riskReport().HighRisk(9.5); len(got) != 0 {
		t.Errorf("no ship reaches 9.5, got %d", len(got))
	}
}
