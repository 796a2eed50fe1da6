package fouling

import (
	"math"
	"testing"
	"time"

	"github.com/hullwatch/hullwatch/internal/types"
)

func evalRow(session string, date time.Time, baseline, consumed, days float64) Row {
	return Row{
		Event:        types.VoyageEvent{ShipName: "ORION", SessionID: session, StartDate: date},
		ConsumedTons: consumed,
		Baseline:     baseline,
		Feat:         types.EventFeatures{DaysSinceCleaning: days},
	}
}

func TestChronoSplit(t *testing.T) {
	// Rows arrive scrambled; the split must order them by voyage date and
	// cut the oldest 80% as training data.
	rows := []Row{
		evalRow("S3", day(2024, time.March, 1), 100, 110, 30),
		evalRow("S1", day(2024, time.January, 1), 100, 100, 10),
		evalRow("S5", day(2024, time.May, 1), 100, 130, 50),
		evalRow("S2", day(2024, time.February, 1), 100, 105, 20),
		evalRow("S4", day(2024, time.April, 1), 100, 120, 40),
	}

	train, test := ChronoSplit(rows, 0.8)

	if len(train) != 4 || len(test) != 1 {
		t.Fatalf("expected 4/1 split, got %d/%d", len(train), len(test))
	}
	if train[0].Event.SessionID != "S1" || train[3].Event.SessionID != "S4" {
		t.Errorf("training set should hold the oldest voyages, got %s..%s",
			train[0].Event.SessionID, train[3].Event.SessionID)
	}
	if test[0].Event.SessionID != "S5" {
		t.Errorf("holdout should be the newest voyage, got %s", test[0].Event.SessionID)
	}
}

func TestEvaluate(t *testing.T) {
	rows := []Row{
		evalRow("S1", day(2024, time.June, 1), 100, 110, 45),
		evalRow("S2", day(2024, time.June, 2), 200, 180, 120),
	}

	t.Run("perfect predictor", func(t *testing.T) {
		m := Evaluate(rows, func(r Row) float64 {
			return (r.ConsumedTons - r.Baseline) / r.Baseline
		})
		if m.RMSE > 1e-9 || m.MAE > 1e-9 {
			t.Errorf("expected zero error, got rmse=%.6f mae=%.6f", m.RMSE, m.MAE)
		}
		if math.Abs(m.AccuracyPct-100) > 1e-9 {
			t.Errorf("expected 100%% accuracy, got %.4f", m.AccuracyPct)
		}
	})

	t.Run("zero predictor errors on the consumption scale", func(t *testing.T) {
		m := Evaluate(rows, func(Row) float64 { return 0 })

		// Predictions collapse to the baselines: errors -10 and +20 tons.
		if math.Abs(m.MAE-15) > 1e-9 {
			t.Errorf("mae: expected 15, got %.4f", m.MAE)
		}
		if math.Abs(m.RMSE-math.Sqrt(250)) > 1e-9 {
			t.Errorf("rmse: expected %.4f, got %.4f", math.Sqrt(250), m.RMSE)
		}
		if math.Abs(m.WMAPE-30.0/290.0) > 1e-9 {
			t.Errorf("wmape: expected %.6f, got %.6f", 30.0/290.0, m.WMAPE)
		}
		if math.Abs(m.AccuracyPct-100*(1-30.0/290.0)) > 1e-9 {
			t.Errorf("accuracy: expected %.4f, got %.4f", 100*(1-30.0/290.0), m.AccuracyPct)
		}

		if len(m.Bins) != 4 {
			t.Fatalf("expected 4 residual bins, got %d", len(m.Bins))
		}
		if m.Bins[0].Count != 1 || math.Abs(m.Bins[0].MeanAbsErr-10) > 1e-9 {
			t.Errorf("bin (0,90]: expected 1 row with mean error 10, got %d/%.2f",
				m.Bins[0].Count, m.Bins[0].MeanAbsErr)
		}
		if m.Bins[1].Count != 1 || math.Abs(m.Bins[1].MeanAbsErr-20) > 1e-9 {
			t.Errorf("bin (90,180]: expected 1 row with mean error 20, got %d/%.2f",
				m.Bins[1].Count, m.Bins[1].MeanAbsErr)
		}
		if m.Bins[2].Count != 0 || m.Bins[3].Count != 0 {
			t.Errorf("upper bins should be empty, got %d/%d", m.Bins[2].Count, m.Bins[3].Count)
		}
	})

	t.Run("unusable baselines are skipped", func(t *testing.T) {
		withBad := append([]Row{
			evalRow("S0", day(2024, time.June, 3), math.NaN(), 50, 10),
			evalRow("SX", day(2024, time.June, 4), 0, 50, 10),
		}, rows...)

		m := Evaluate(withBad, func(Row) float64 { return 0 })
		if math.Abs(m.MAE-15) > 1e-9 {
			t.Errorf("bad baselines should not move the metrics, got mae=%.4f", m.MAE)
		}
	})

	t.Run("empty holdout", func(t *testing.T) {
		m := Evaluate(nil, func(Row) float64 { return 0 })
		if m.RMSE != 0 || m.AccuracyPct != 0 {
			t.Errorf("empty holdout should zero the metrics, got %+v", m)
		}
	})
}

func TestScenarioRatios(t *testing.T) {
	base := Row{
		Event: types.VoyageEvent{ShipName: "ORION", SpeedKnots: 12},
		Feat: types.EventFeatures{
			DaysSinceCleaning: 100,
			PctIdleRecent:     0.5,
		},
	}

	// A predictor that reads the recomputed accumulated risk directly makes
	// the recomputation visible.
	clean, fouled := ScenarioRatios(base, 30, 400, func(r Row) float64 {
		return r.Feat.AccumulatedFoulingRisk
	})

	if math.Abs(clean-15) > 1e-9 {
		t.Errorf("30-day hull: expected risk 15, got %.4f", clean)
	}
	if math.Abs(fouled-200) > 1e-9 {
		t.Errorf("400-day hull: expected risk 200, got %.4f", fouled)
	}
	if fouled < clean {
		t.Error("an older hull must never predict less excess than a fresh one")
	}

	// The base row itself must stay untouched.
	if base.Feat.DaysSinceCleaning != 100 {
		t.Errorf("scenario evaluation mutated the base row: days=%.1f", base.Feat.DaysSinceCleaning)
	}
}
