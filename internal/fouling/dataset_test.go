package fouling

import (
	"math"
	"testing"
	"time"

	"github.com/hullwatch/hullwatch/internal/types"
)

func TestSumConsumption(t *testing.T) {
	records := []types.ConsumptionRecord{
		{SessionID: "S1", ConsumedTons: 12.5},
		{SessionID: "S1", ConsumedTons: 7.5}, // second fuel type, same session
		{SessionID: "S2", ConsumedTons: 30},
		{SessionID: "", ConsumedTons: 99},            // no session key
		{SessionID: "S3", ConsumedTons: math.NaN()},  // unusable amount
	}

	sums := SumConsumption(records)

	if got := sums["S1"]; got != 20 {
		t.Errorf("S1: expected 20, got %.2f", got)
	}
	if got := sums["S2"]; got != 30 {
		t.Errorf("S2: expected 30, got %.2f", got)
	}
	if _, ok := sums[""]; ok {
		t.Error("records without a session must not aggregate")
	}
	if _, ok := sums["S3"]; ok {
		t.Error("NaN amounts must not aggregate")
	}
}

func TestMergeRows(t *testing.T) {
	events := []types.VoyageEvent{
		{ShipName: "PAVO", SessionID: "S1", StartDate: day(2024, time.January, 1)},
		{ShipName: "PAVO", SessionID: "S2", StartDate: day(2024, time.January, 2)},
		{ShipName: "PAVO", SessionID: "S3", StartDate: day(2024, time.January, 3)},
	}
	feats := make([]types.EventFeatures, len(events))
	feats[0].DaysSinceCleaning = 12

	var diag types.Diagnostics
	rows := MergeRows(events, feats, map[string]float64{"S1": 20, "S3": 25}, &diag)

	if len(rows) != 2 {
		t.Fatalf("expected 2 merged rows, got %d", len(rows))
	}
	if diag.MissingConsumption != 1 {
		t.Errorf("expected 1 missing-consumption exclusion, got %d", diag.MissingConsumption)
	}
	if rows[0].Event.SessionID != "S1" || rows[0].ConsumedTons != 20 {
		t.Errorf("row 0 should be S1 with 20 tons, got %s/%.1f", rows[0].Event.SessionID, rows[0].ConsumedTons)
	}
	if rows[0].Feat.DaysSinceCleaning != 12 {
		t.Errorf("features must travel with their event, got days=%.1f", rows[0].Feat.DaysSinceCleaning)
	}
}

func TestApplyHygieneFilters(t *testing.T) {
	mkRow := func(session string, days, consumed float64) Row {
		return Row{
			Event:        types.VoyageEvent{ShipName: "TUCANA", SessionID: session},
			ConsumedTons: consumed,
			Feat:         types.EventFeatures{DaysSinceCleaning: days},
		}
	}

	rows := []Row{
		mkRow("S1", math.NaN(), 20), // no cleaning history
		mkRow("S2", 10, 0.05),       // at the consumption floor
		mkRow("S3", 10, 8),          // becomes the low percentile outlier
		mkRow("S4", 10, 15),
		mkRow("S5", 10, 20),
		mkRow("S6", 10, 26),
		mkRow("S7", 10, 30),
		mkRow("S8", 10, 35),
		mkRow("S9", 10, 60), // becomes the high percentile outlier
	}

	var diag types.Diagnostics
	kept := ApplyHygieneFilters(rows, DefaultParams(), &diag)

	if diag.MissingDaysSince != 1 {
		t.Errorf("expected 1 missing-days exclusion, got %d", diag.MissingDaysSince)
	}
	if diag.NonPositiveConsumption != 1 {
		t.Errorf("expected 1 floor exclusion, got %d", diag.NonPositiveConsumption)
	}
	// Seven values survive to the percentile trim; with distinct values the
	// interpolated 1st/99th band excludes the extremes.
	if diag.PercentileTrimmed != 2 {
		t.Errorf("expected 2 percentile exclusions, got %d", diag.PercentileTrimmed)
	}
	if len(kept) != 5 {
		t.Fatalf("expected 5 surviving rows, got %d", len(kept))
	}
	for _, r := range kept {
		if r.ConsumedTons == 8 || r.ConsumedTons == 60 {
			t.Errorf("outlier consumption %.1f survived the trim", r.ConsumedTons)
		}
	}
}

func TestApplyHygieneFiltersIdenticalConsumption(t *testing.T) {
	// A degenerate band where P(lower) == P(upper) must keep equal values:
	// the bounds are inclusive.
	rows := make([]Row, 4)
	for i := range rows {
		rows[i] = Row{
			Event:        types.VoyageEvent{SessionID: "S"},
			ConsumedTons: 25,
			Feat:         types.EventFeatures{DaysSinceCleaning: 10},
		}
	}

	var diag types.Diagnostics
	kept := ApplyHygieneFilters(rows, DefaultParams(), &diag)

	if len(kept) != 4 {
		t.Fatalf("identical values must all survive, got %d of 4", len(kept))
	}
	if diag.PercentileTrimmed != 0 {
		t.Errorf("expected no percentile exclusions, got %d", diag.PercentileTrimmed)
	}
}

func TestFilterRatioRange(t *testing.T) {
	mkRow := func(ratio float64) Row {
		return Row{Ratio: ratio}
	}

	rows := []Row{
		mkRow(-0.5),        // at the lower bound: excluded
		mkRow(-0.499999),   // just inside
		mkRow(0),
		mkRow(0.999999),    // just inside
		mkRow(1.0),         // at the upper bound: excluded
		mkRow(math.NaN()),  // degenerate baseline
	}

	var diag types.Diagnostics
	kept := FilterRatioRange(rows, DefaultParams(), &diag)

	if len(kept) != 3 {
		t.Fatalf("expected 3 surviving rows, got %d", len(kept))
	}
	if diag.RatioOutOfRange != 3 {
		t.Errorf("expected 3 exclusions, got %d", diag.RatioOutOfRange)
	}
	for _, r := range kept {
		if math.IsNaN(r.Ratio) {
			t.Error("a NaN ratio must never survive the range filter")
		}
	}
}

func TestQuantileLinear(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	tests := []struct {
		q        float64
		expected float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}

	for _, tt := range tests {
		if got := quantileLinear(tt.q, values); math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("q=%.2f: expected %.4f, got %.4f", tt.q, tt.expected, got)
		}
	}

	if got := quantileLinear(0.99, []float64{7}); got != 7 {
		t.Errorf("single value: expected 7, got %.4f", got)
	}
}
