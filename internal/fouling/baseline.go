package fouling

import (
	"fmt"
	"math"
	"sort"

	"github.com/hullwatch/hullwatch/internal/types"
)

// TheoreticalPower returns the admiralty-coefficient power term for one
// event: displacement^(2/3) x speed^3 / scale. A missing or non-positive
// displacement falls back to draft x scale; a missing speed or one below 1
// knot yields exactly zero (stationary vessels burn no propulsion power in
// this model).
func TheoreticalPower(ev types.VoyageEvent, p Params) float64 {
	disp := ev.DisplacementTons
	if math.IsNaN(disp) || disp <= 0 {
		draft := ev.MidDraftMeters
		if math.IsNaN(draft) || draft < 0 {
			draft = 0
		}
		disp = draft * p.AdmiraltyScaleFactor
	}

	speed := ev.SpeedKnots
	if math.IsNaN(speed) || speed < 1 {
		return 0
	}

	return math.Pow(disp, 2.0/3.0) * math.Pow(speed, 3) / p.AdmiraltyScaleFactor
}

// BaselineConsumption is the expected clean-hull fuel burn for the event.
func BaselineConsumption(power, durationHours, efficiencyFactor float64) float64 {
	return power * durationHours * efficiencyFactor
}

// Calibration holds the efficiency factors fitted from a run's clean events.
type Calibration struct {
	// Global is the fleet-wide median factor, the fallback for every ship
	// without enough qualifying clean events of its own.
	Global float64

	// PerShip holds the individually calibrated factors. Empty when
	// per-ship calibration is disabled.
	PerShip map[string]float64

	// CleanPoolSize is the number of events in the global calibration pool.
	CleanPoolSize int

	// ZeroPowerSkips counts clean events excluded because power x duration
	// was not positive.
	ZeroPowerSkips int
}

// FactorFor returns the efficiency factor for a ship: its own when
// calibrated, the global fallback otherwise.
func (c Calibration) FactorFor(ship string) float64 {
	if f, ok := c.PerShip[ship]; ok {
		return f
	}
	return c.Global
}

// Calibrate fits efficiency factors from the merged rows. An event qualifies
// when days_since_cleaning is defined and below the clean threshold and its
// power x duration is positive; the factor sample is observed consumption
// divided by power x duration, reduced by median per ship and fleet-wide.
// An empty clean pool makes every baseline undefined, so it aborts the run.
func Calibrate(rows []Row, p Params) (Calibration, error) {
	cal := Calibration{PerShip: make(map[string]float64)}
	perShip := make(map[string][]float64)
	var pool []float64

	for i := range rows {
		r := &rows[i]
		days := r.Feat.DaysSinceCleaning
		if math.IsNaN(days) || days >= p.CleanThresholdDays {
			continue
		}
		powerDuration := r.Power * r.Event.DurationHours
		if math.IsNaN(powerDuration) || powerDuration <= 0 {
			cal.ZeroPowerSkips++
			continue
		}
		sample := r.ConsumedTons / powerDuration
		pool = append(pool, sample)
		perShip[r.Event.ShipName] = append(perShip[r.Event.ShipName], sample)
	}

	if len(pool) == 0 {
		return cal, fmt.Errorf("no clean events with positive power-duration in %d rows: cannot calibrate efficiency factors", len(rows))
	}

	cal.CleanPoolSize = len(pool)
	cal.Global = median(pool)

	if p.CalibratePerShip {
		for ship, samples := range perShip {
			if len(samples) >= p.MinCleanEvents {
				cal.PerShip[ship] = median(samples)
			}
		}
	}

	return cal, nil
}

// median returns the sample median: the middle value, or the mean of the two
// middle values for even-sized samples. The input is not modified.
func median(samples []float64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}
	s := make([]float64, len(samples))
	copy(s, samples)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
