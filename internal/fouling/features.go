package fouling

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/hullwatch/hullwatch/internal/types"
)

// PaintEncoding maps coating labels to integer codes, assigned from the
// sorted unique label set. The mapping is stable within a run; across runs it
// only holds while the label set is unchanged, so callers that score
// incrementally against an old model must persist and reuse the encoding
// artifact instead of rebuilding it.
type PaintEncoding map[string]int

// BuildPaintEncoding assigns codes to the sorted unique labels.
func BuildPaintEncoding(labels []string) PaintEncoding {
	uniq := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		uniq[l] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for l := range uniq {
		sorted = append(sorted, l)
	}
	sort.Strings(sorted)

	enc := make(PaintEncoding, len(sorted))
	for i, l := range sorted {
		enc[l] = i
	}
	return enc
}

// Code returns the integer code for a label.
func (e PaintEncoding) Code(label string) (int, bool) {
	c, ok := e[label]
	return c, ok
}

// Labels returns the encoded labels in code order.
func (e PaintEncoding) Labels() []string {
	out := make([]string, len(e))
	for l, c := range e {
		out[c] = l
	}
	return out
}

// DeriveFeatures computes the derived feature set for every event:
// days_since_cleaning via a per-ship backward as-of join, the trailing
// idle-time fraction and historical speed average from windows that end at
// the previous event of the same ship, and the coating interaction terms.
// The returned slice is aligned with the input events; the PaintEncoding is
// the label mapping used for the coating codes.
//
// A ship's first event has no trailing history: its idle fraction is 0 and
// its historical speed average is NaN. An event with no prior drydock record
// has NaN days_since_cleaning, never zero. Malformed values degrade to those
// same missing-value conventions rather than failing the batch.
func DeriveFeatures(events []types.VoyageEvent, drydocks []types.DrydockRecord, p Params) ([]types.EventFeatures, PaintEncoding) {
	feats := make([]types.EventFeatures, len(events))
	if len(events) == 0 {
		return feats, BuildPaintEncoding(nil)
	}

	order := sortedEventOrder(events)
	dockDates, paintByShip := indexDrydocks(drydocks)

	enc := buildEncodingForFleet(events, paintByShip)

	window := time.Duration(p.RollingWindowDays) * 24 * time.Hour

	for start := 0; start < len(order); {
		end := start + 1
		ship := events[order[start]].ShipName
		for end < len(order) && events[order[end]].ShipName == ship {
			end++
		}
		group := order[start:end]

		deriveShipFeatures(events, feats, group, dockDates[ship], window, p)

		paint := paintByShip[ship]
		if paint == "" {
			paint = "Generic"
		}
		code := float64(enc[paint])
		isSPC := p.SPCKeyword != "" &&
			strings.Contains(strings.ToUpper(paint), strings.ToUpper(p.SPCKeyword))
		for _, idx := range group {
			f := &feats[idx]
			f.PaintType = paint
			f.PaintEncoded = code
			f.PaintXSpeed = code * events[idx].SpeedKnots
			f.IsSPC = isSPC
			f.PaintPerformanceFactor = 1.0
			if isSPC && f.PctIdleRecent > p.PaintPenaltyThreshold {
				f.PaintPerformanceFactor = p.PaintPenaltyFactor
			}
		}

		start = end
	}

	return feats, enc
}

// deriveShipFeatures fills the chronology-dependent features for one ship's
// events, identified by group (indexes into events in chronological order).
func deriveShipFeatures(events []types.VoyageEvent, feats []types.EventFeatures, group []int, docks []time.Time, window time.Duration, p Params) {
	n := len(group)

	// Window sums ending at each event, inclusive. The two-pointer left edge
	// keeps the whole pass linear in the number of events.
	idleSum := make([]float64, n)
	totalSum := make([]float64, n)
	left := 0
	var runIdle, runTotal float64
	for i := 0; i < n; i++ {
		ev := events[group[i]]

		idle := 0.0
		dur := ev.DurationHours
		if math.IsNaN(dur) || dur < 0 {
			dur = 0
		}
		if ev.SpeedKnots < p.IdleSpeedThreshold {
			idle = dur
		}
		runIdle += idle
		runTotal += dur

		cutoff := ev.StartDate.Add(-window)
		for left < i && !events[group[left]].StartDate.After(cutoff) {
			old := events[group[left]]
			oldDur := old.DurationHours
			if math.IsNaN(oldDur) || oldDur < 0 {
				oldDur = 0
			}
			if old.SpeedKnots < p.IdleSpeedThreshold {
				runIdle -= oldDur
			}
			runTotal -= oldDur
			left++
		}

		idleSum[i] = runIdle
		totalSum[i] = runTotal
		feats[group[i]].IdleHours = idle
	}

	// Speed prefix sums for the trailing event-count average. Missing speeds
	// stay out of both the sum and the divisor.
	speedPrefix := make([]float64, n+1)
	validPrefix := make([]int, n+1)
	for i := 0; i < n; i++ {
		speedPrefix[i+1] = speedPrefix[i]
		validPrefix[i+1] = validPrefix[i]
		if s := events[group[i]].SpeedKnots; !math.IsNaN(s) {
			speedPrefix[i+1] += s
			validPrefix[i+1]++
		}
	}

	for i := 0; i < n; i++ {
		idx := group[i]
		ev := events[idx]
		f := &feats[idx]

		// The trailing windows are anchored at the previous event so the
		// current leg does not see itself.
		if i == 0 {
			f.PctIdleRecent = 0
			f.HistoricalAvgSpeed = math.NaN()
		} else {
			f.PctIdleRecent = idleSum[i-1] / (totalSum[i-1] + idleEpsilon)
			lo := i - p.HistoricalSpeedEvents
			if lo < 0 {
				lo = 0
			}
			if valid := validPrefix[i] - validPrefix[lo]; valid > 0 {
				f.HistoricalAvgSpeed = (speedPrefix[i] - speedPrefix[lo]) / float64(valid)
			} else {
				f.HistoricalAvgSpeed = math.NaN()
			}
		}

		f.DaysSinceCleaning = daysSinceCleaning(ev.StartDate, docks)

		if math.IsNaN(f.DaysSinceCleaning) {
			f.AccumulatedFoulingRisk = 0
		} else {
			f.AccumulatedFoulingRisk = f.PctIdleRecent * f.DaysSinceCleaning
		}
	}
}

// daysSinceCleaning finds the most recent dock date at or before the event
// date by binary search over the ship's sorted dock dates. No prior record
// yields NaN.
func daysSinceCleaning(eventDate time.Time, docks []time.Time) float64 {
	if len(docks) == 0 {
		return math.NaN()
	}
	// First dock date strictly after the event; the record before it is the
	// as-of match.
	i := sort.Search(len(docks), func(j int) bool {
		return docks[j].After(eventDate)
	})
	if i == 0 {
		return math.NaN()
	}
	return math.Floor(eventDate.Sub(docks[i-1]).Hours() / 24)
}

// sortedEventOrder returns event indexes sorted by ship, date, and session so
// grouping and window passes see a stable chronology.
func sortedEventOrder(events []types.VoyageEvent) []int {
	order := make([]int, len(events))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := events[order[a]], events[order[b]]
		if ea.ShipName != eb.ShipName {
			return ea.ShipName < eb.ShipName
		}
		if !ea.StartDate.Equal(eb.StartDate) {
			return ea.StartDate.Before(eb.StartDate)
		}
		return ea.SessionID < eb.SessionID
	})
	return order
}

// indexDrydocks splits drydock records into per-ship sorted dock dates and
// the per-ship paint label (first record in input order wins; repaint
// history is not tracked).
func indexDrydocks(drydocks []types.DrydockRecord) (map[string][]time.Time, map[string]string) {
	dates := make(map[string][]time.Time)
	paints := make(map[string]string)
	for _, d := range drydocks {
		if d.ShipName == "" || d.DockDate.IsZero() {
			continue
		}
		dates[d.ShipName] = append(dates[d.ShipName], d.DockDate)
		if _, seen := paints[d.ShipName]; !seen && d.PaintType != "" {
			paints[d.ShipName] = d.PaintType
		}
	}
	for ship := range dates {
		sort.Slice(dates[ship], func(a, b int) bool {
			return dates[ship][a].Before(dates[ship][b])
		})
	}
	return dates, paints
}

// buildEncodingForFleet fits the paint encoding over every label the fleet
// can present: each ship's assigned label plus the Generic fallback.
func buildEncodingForFleet(events []types.VoyageEvent, paintByShip map[string]string) PaintEncoding {
	labels := []string{"Generic"}
	seen := map[string]struct{}{}
	for _, ev := range events {
		if _, ok := seen[ev.ShipName]; ok {
			continue
		}
		seen[ev.ShipName] = struct{}{}
		if paint := paintByShip[ev.ShipName]; paint != "" {
			labels = append(labels, paint)
		}
	}
	return BuildPaintEncoding(labels)
}
