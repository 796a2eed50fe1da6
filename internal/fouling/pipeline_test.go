package fouling

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/hullwatch/hullwatch/internal/types"
)

// fixtureFleet builds a two-ship fleet exercising every exclusion path:
// a session with no consumption record, an event predating any drydock, a
// consumption value at the floor, and percentile outliers on both sides.
func fixtureFleet() ([]types.VoyageEvent, []types.ConsumptionRecord, []types.DrydockRecord) {
	events := []types.VoyageEvent{
		{ShipName: "ALPHA", SessionID: "S01", StartDate: day(2024, time.January, 15), SpeedKnots: 12, DurationHours: 24, DisplacementTons: 50000},
		{ShipName: "ALPHA", SessionID: "S02", StartDate: day(2024, time.February, 1), SpeedKnots: 13, DurationHours: 36, DisplacementTons: 50000},
		{ShipName: "ALPHA", SessionID: "S03", StartDate: day(2024, time.March, 1), SpeedKnots: 11, DurationHours: 48, DisplacementTons: 50000},
		{ShipName: "ALPHA", SessionID: "S04", StartDate: day(2024, time.June, 1), SpeedKnots: 12, DurationHours: 24, DisplacementTons: 50000},
		{ShipName: "ALPHA", SessionID: "S05", StartDate: day(2024, time.July, 1), SpeedKnots: 12, DurationHours: 24, DisplacementTons: 50000},
		{ShipName: "BETA", SessionID: "S06", StartDate: day(2023, time.December, 20), SpeedKnots: 10, DurationHours: 24, DisplacementTons: 30000},
		{ShipName: "BETA", SessionID: "S07", StartDate: day(2024, time.January, 20), SpeedKnots: 10, DurationHours: 24, DisplacementTons: 30000},
		{ShipName: "BETA", SessionID: "S08", StartDate: day(2024, time.February, 20), SpeedKnots: 3, DurationHours: 24, DisplacementTons: 30000},
		{ShipName: "BETA", SessionID: "S09", StartDate: day(2024, time.May, 20), SpeedKnots: 10, DurationHours: 24, DisplacementTons: 30000},
		{ShipName: "BETA", SessionID: "S10", StartDate: day(2024, time.August, 20), SpeedKnots: 14, DurationHours: 24, DisplacementTons: 30000},
	}
	consumption := []types.ConsumptionRecord{
		{SessionID: "S01", ConsumedTons: 20},
		{SessionID: "S02", ConsumedTons: 35},
		{SessionID: "S03", ConsumedTons: 30},
		{SessionID: "S04", ConsumedTons: 26},
		// S05 has no consumption record at all.
		{SessionID: "S06", ConsumedTons: 22},
		{SessionID: "S07", ConsumedTons: 15},
		{SessionID: "S08", ConsumedTons: 8},
		{SessionID: "S09", ConsumedTons: 0.05},
		{SessionID: "S10", ConsumedTons: 60},
	}
	drydocks := []types.DrydockRecord{
		{ShipName: "ALPHA", DockDate: day(2024, time.January, 1), PaintType: "SPC Ultra"},
		{ShipName: "BETA", DockDate: day(2024, time.January, 5), PaintType: "Silicone"},
	}
	return events, consumption, drydocks
}

func TestRunDiagnosticsAccounting(t *testing.T) {
	events, consumption, drydocks := fixtureFleet()

	report, err := Run(events, consumption, drydocks, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := report.Diagnostics
	if d.EventsLoaded != 10 {
		t.Errorf("events loaded: expected 10, got %d", d.EventsLoaded)
	}
	if d.MissingConsumption != 1 {
		t.Errorf("missing consumption: expected 1, got %d", d.MissingConsumption)
	}
	if d.MissingDaysSince != 1 {
		t.Errorf("missing days since cleaning: expected 1, got %d", d.MissingDaysSince)
	}
	if d.NonPositiveConsumption != 1 {
		t.Errorf("non-positive consumption: expected 1, got %d", d.NonPositiveConsumption)
	}
	if d.PercentileTrimmed != 2 {
		t.Errorf("percentile trimmed: expected 2, got %d", d.PercentileTrimmed)
	}
	if d.RatioOutOfRange != 0 {
		t.Errorf("ratio out of range: expected 0, got %d", d.RatioOutOfRange)
	}
	if d.ResultsEmitted != 5 {
		t.Errorf("results emitted: expected 5, got %d", d.ResultsEmitted)
	}
	// Every loaded event is either reported or accounted for by an
	// exclusion counter; no row goes missing silently.
	if d.EventsLoaded != d.ResultsEmitted+d.Excluded() {
		t.Errorf("accounting broken: loaded %d, emitted %d, excluded %d",
			d.EventsLoaded, d.ResultsEmitted, d.Excluded())
	}
}

func TestRunCalibrationAndResults(t *testing.T) {
	events, consumption, drydocks := fixtureFleet()

	report, err := Run(events, consumption, drydocks, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cal := report.Calibration
	if cal.CleanPoolSize != 4 {
		t.Errorf("clean pool: expected 4 events, got %d", cal.CleanPoolSize)
	}
	if got := cal.PerShip["ALPHA"]; math.Abs(got-0.0034598) > 2e-6 {
		t.Errorf("ALPHA efficiency: expected ~0.0034598, got %.7f", got)
	}
	if got := cal.PerShip["BETA"]; math.Abs(got-0.0064734) > 2e-6 {
		t.Errorf("BETA efficiency: expected ~0.0064734, got %.7f", got)
	}
	if math.Abs(cal.Global-0.0035066) > 2e-6 {
		t.Errorf("global efficiency: expected ~0.0035066, got %.7f", cal.Global)
	}

	wantOrder := []string{"S01", "S02", "S03", "S04", "S07"}
	if len(report.Results) != len(wantOrder) {
		t.Fatalf("expected %d results, got %d", len(wantOrder), len(report.Results))
	}
	for i, want := range wantOrder {
		if got := report.Results[i].SessionID; got != want {
			t.Errorf("result %d: expected session %s, got %s", i, want, got)
		}
	}

	wantClasses := map[string]string{
		"S01": types.ClassLight,
		"S02": types.ClassLight,
		"S03": types.ClassLight,
		"S04": types.ClassSevere,
		"S07": types.ClassLight,
	}
	for _, res := range report.Results {
		if res.BioClass != wantClasses[res.SessionID] {
			t.Errorf("%s: expected class %s, got %s (ratio %.4f)",
				res.SessionID, wantClasses[res.SessionID], res.BioClass, res.ExcessRatio)
		}
		if res.BioIndex < 0 || res.BioIndex > 10 {
			t.Errorf("%s: index %.2f outside [0, 10]", res.SessionID, res.BioIndex)
		}
		if math.IsNaN(res.ExcessRatio) || math.IsNaN(res.AdditionalFuelTons) {
			t.Errorf("%s: NaN leaked into the report", res.SessionID)
		}
	}

	if len(report.Summaries) != 2 {
		t.Fatalf("expected 2 ship summaries, got %d", len(report.Summaries))
	}
	alpha, beta := report.Summaries[0], report.Summaries[1]
	if alpha.ShipName != "ALPHA" || beta.ShipName != "BETA" {
		t.Fatalf("summaries must sort by ship, got %s/%s", alpha.ShipName, beta.ShipName)
	}
	if alpha.NumEvents != 4 || beta.NumEvents != 1 {
		t.Errorf("expected 4 ALPHA and 1 BETA events, got %d/%d", alpha.NumEvents, beta.NumEvents)
	}
	if math.Abs(alpha.MaxExcessRatio-0.3351) > 5e-4 {
		t.Errorf("ALPHA max ratio: expected ~0.3351, got %.4f", alpha.MaxExcessRatio)
	}
	if math.Abs(alpha.AvgExcessRatio-0.0761) > 5e-4 {
		t.Errorf("ALPHA avg ratio: expected ~0.0761, got %.4f", alpha.AvgExcessRatio)
	}
	if math.Abs(alpha.TotalAdditionalFuel-4.9124) > 1e-3 {
		t.Errorf("ALPHA additional fuel: expected ~4.9124, got %.4f", alpha.TotalAdditionalFuel)
	}
	if math.Abs(alpha.TotalAdditionalCost-2456.2) > 0.5 {
		t.Errorf("ALPHA additional cost: expected ~2456.2, got %.2f", alpha.TotalAdditionalCost)
	}
	if math.Abs(alpha.TotalAdditionalCO2-15.297) > 0.01 {
		t.Errorf("ALPHA additional CO2: expected ~15.297, got %.4f", alpha.TotalAdditionalCO2)
	}

	// BETA's only surviving voyage is its own calibration sample, so it sits
	// exactly on baseline.
	if math.Abs(beta.AvgExcessRatio) > 1e-9 {
		t.Errorf("BETA avg ratio: expected 0, got %.2e", beta.AvgExcessRatio)
	}
	if math.Abs(beta.AvgBioIndex-2.7) > 1e-9 {
		t.Errorf("BETA avg index: expected 2.7, got %.4f", beta.AvgBioIndex)
	}
	if math.Abs(beta.TotalRealFuel-15) > 1e-9 {
		t.Errorf("BETA real fuel: expected 15, got %.4f", beta.TotalRealFuel)
	}

	fleet := report.Fleet
	if fleet.NumShips != 2 || fleet.NumEvents != 5 {
		t.Errorf("fleet: expected 2 ships / 5 events, got %d/%d", fleet.NumShips, fleet.NumEvents)
	}
	if math.Abs(fleet.AvgExcessRatio-0.0609) > 5e-4 {
		t.Errorf("fleet avg ratio: expected ~0.0609, got %.4f", fleet.AvgExcessRatio)
	}

	// The healthy 75th percentile sits under the reference floor here.
	if report.DynamicReference != 0.05 {
		t.Errorf("dynamic reference: expected the 0.05 floor, got %.4f", report.DynamicReference)
	}
}

func TestRunDeterministic(t *testing.T) {
	events, consumption, drydocks := fixtureFleet()

	first, err := Run(events, consumption, drydocks, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Run(events, consumption, drydocks, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first.Results, second.Results) {
		t.Error("per-event results differ between identical runs")
	}
	if !reflect.DeepEqual(first.Summaries, second.Summaries) {
		t.Error("per-ship summaries differ between identical runs")
	}
	if !reflect.DeepEqual(first.Diagnostics, second.Diagnostics) {
		t.Error("diagnostics differ between identical runs")
	}
	if first.RunID == second.RunID {
		t.Error("each run should get its own id")
	}
}

func TestRunInputOrderIndependent(t *testing.T) {
	events, consumption, drydocks := fixtureFleet()

	// Reverse the event ordering; the canonical sort inside Run must make
	// the artifacts identical.
	reversed := make([]types.VoyageEvent, len(events))
	for i, ev := range events {
		reversed[len(events)-1-i] = ev
	}

	a, err := Run(events, consumption, drydocks, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Run(reversed, consumption, drydocks, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(a.Results, b.Results) {
		t.Error("results depend on input ordering")
	}
}

func TestRunFatalInputs(t *testing.T) {
	events, consumption, drydocks := fixtureFleet()

	t.Run("no events", func(t *testing.T) {
		if _, err := Run(nil, consumption, drydocks, DefaultParams()); err == nil {
			t.Fatal("expected an error with no events")
		}
	})

	t.Run("no consumption", func(t *testing.T) {
		if _, err := Run(events, nil, drydocks, DefaultParams()); err == nil {
			t.Fatal("expected an error with no consumption records")
		}
	})

	t.Run("no drydocks means no calibration pool", func(t *testing.T) {
		_, err := Run(events, consumption, nil, DefaultParams())
		if err == nil {
			t.Fatal("expected a calibration error without drydock history")
		}
	})

	t.Run("invalid params", func(t *testing.T) {
		p := DefaultParams()
		p.SigmoidK = -1
		if _, err := Run(events, consumption, drydocks, p); err == nil {
			t.Fatal("expected a parameter validation error")
		}
	})
}
