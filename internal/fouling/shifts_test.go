package fouling

import (
	"testing"
	"time"

	"github.com/hullwatch/hullwatch/internal/types"
)

func ratioRow(ship string, date time.Time, ratio float64) Row {
	return Row{
		Event: types.VoyageEvent{ShipName: ship, StartDate: date},
		Ratio: ratio,
	}
}

// steppedSeries builds a daily voyage series whose excess ratio drops from
// high to low at the given index, with small alternating noise so the
// detector has to work for it.
func steppedSeries(ship string, start time.Time, n, stepAt int, high, low float64) []Row {
	rows := make([]Row, n)
	for i := range rows {
		level := high
		if i >= stepAt {
			level = low
		}
		noise := 0.004
		if i%2 == 1 {
			noise = -noise
		}
		rows[i] = ratioRow(ship, start.AddDate(0, 0, i), level+noise)
	}
	return rows
}

func TestDetectRatioShiftsFindsCleaning(t *testing.T) {
	start := day(2024, time.January, 1)
	rows := steppedSeries("ORION", start, 40, 20, 0.30, 0.05)

	// A second ship with a steady series should contribute nothing.
	for i := 0; i < 30; i++ {
		noise := 0.003
		if i%2 == 1 {
			noise = -noise
		}
		rows = append(rows, ratioRow("BALTIC TRADER", start.AddDate(0, 0, i), 0.12+noise))
	}

	shifts := DetectRatioShifts(rows, DefaultShiftMinSegment, DefaultShiftPenalty)

	if len(shifts) != 1 {
		t.Fatalf("expected one shift, got %d: %+v", len(shifts), shifts)
	}
	s := shifts[0]
	if s.ShipName != "ORION" {
		t.Errorf("shift attributed to %s, want ORION", s.ShipName)
	}
	if s.At.Before(start.AddDate(0, 0, 18)) || s.At.After(start.AddDate(0, 0, 22)) {
		t.Errorf("shift located at %s, want near %s", s.At.Format("2006-01-02"),
			start.AddDate(0, 0, 20).Format("2006-01-02"))
	}
	if s.Before < 0.25 || s.After > 0.10 {
		t.Errorf("segment means before=%.3f after=%.3f, want ~0.30 -> ~0.05", s.Before, s.After)
	}
	if !s.LooksLikeCleaning() {
		t.Errorf("a %.2f -> %.2f drop should look like a cleaning", s.Before, s.After)
	}
}

func TestDetectRatioShiftsQuietSeries(t *testing.T) {
	start := day(2024, time.March, 1)
	var rows []Row
	for i := 0; i < 30; i++ {
		noise := 0.003
		if i%2 == 1 {
			noise = -noise
		}
		rows = append(rows, ratioRow("ORION", start.AddDate(0, 0, i), 0.12+noise))
	}

	if shifts := DetectRatioShifts(rows, DefaultShiftMinSegment, DefaultShiftPenalty); len(shifts) != 0 {
		t.Errorf("steady series produced %d shifts: %+v", len(shifts), shifts)
	}
}

func TestDetectRatioShiftsSkipsShortSeries(t *testing.T) {
	start := day(2024, time.May, 1)
	rows := steppedSeries("ORION", start, 6, 3, 0.30, 0.05)

	if shifts := DetectRatioShifts(rows, DefaultShiftMinSegment, DefaultShiftPenalty); len(shifts) != 0 {
		t.Errorf("series shorter than two segments produced shifts: %+v", shifts)
	}
}

func TestLooksLikeCleaning(t *testing.T) {
	tests := []struct {
		name   string
		before float64
		after  float64
		want   bool
	}{
		{"large drop", 0.30, 0.05, true},
		{"modest drop", 0.16, 0.10, true},
		{"small drop", 0.12, 0.10, false},
		{"worsening", 0.05, 0.30, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := RatioShift{Before: tc.before, After: tc.after}
			if got := s.LooksLikeCleaning(); got != tc.want {
				t.Errorf("LooksLikeCleaning(%.2f -> %.2f) = %v, want %v", tc.before, tc.after, got)
			}
		})
	}
}

func TestMedianSmooth(t *testing.T) {
	t.Run("edge replication", func(t *testing.T) {
		// A high boundary value must survive smoothing; zero padding
		// would drag it down.
		series := []float64{10, 10, 0.1, 10, 10}
		out := medianSmooth(series, 3)
		if out[0] != 10 || out[4] != 10 {
			t.Errorf("edges smoothed to %.2f, %.2f, want 10, 10", out[0], out[4])
		}
		if out[2] != 10 {
			t.Errorf("isolated spike survived as %.2f, want 10", out[2])
		}
	})

	t.Run("short series passes through", func(t *testing.T) {
		series := []float64{0.3, 0.1}
		out := medianSmooth(series, 5)
		if out[0] != 0.3 || out[1] != 0.1 {
			t.Errorf("short series altered: %v", out)
		}
	})

	t.Run("even window rounds down", func(t *testing.T) {
		series := []float64{1, 9, 1, 9, 1, 9, 1}
		a := medianSmooth(series, 4)
		b := medianSmooth(series, 3)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("window 4 and 3 disagree at %d: %.1f vs %.1f", i, a[i], b[i])
			}
		}
	})
}
