package fouling

import (
	"math"
	"sort"

	"github.com/hullwatch/hullwatch/internal/types"
)

// Row is one merged pipeline row: a voyage event with its aggregated
// consumption and derived features, progressively filled by the pipeline
// stages. Rows are created by MergeRows and never mutated after the run
// completes.
type Row struct {
	Event        types.VoyageEvent
	ConsumedTons float64
	Feat         types.EventFeatures

	Power      float64
	Efficiency float64
	Baseline   float64
	Ratio      float64
	Index      float64
	Class      string
	Impact     Impact
}

// SumConsumption aggregates fuel line items by session. Sessions typically
// carry one line per fuel type; the merge key is the summed total.
func SumConsumption(records []types.ConsumptionRecord) map[string]float64 {
	sums := make(map[string]float64, len(records))
	for _, rec := range records {
		if rec.SessionID == "" || math.IsNaN(rec.ConsumedTons) {
			continue
		}
		sums[rec.SessionID] += rec.ConsumedTons
	}
	return sums
}

// MergeRows inner-joins events (with their derived features) to the summed
// consumption per session. Events without a consumption match drop out and
// are counted; they still contributed to the trailing windows upstream.
func MergeRows(events []types.VoyageEvent, feats []types.EventFeatures, consumption map[string]float64, diag *types.Diagnostics) []Row {
	rows := make([]Row, 0, len(events))
	for i, ev := range events {
		consumed, ok := consumption[ev.SessionID]
		if !ok || math.IsNaN(consumed) {
			diag.MissingConsumption++
			continue
		}
		rows = append(rows, Row{
			Event:        ev,
			ConsumedTons: consumed,
			Feat:         feats[i],
		})
	}
	return rows
}

// ApplyHygieneFilters drops rows that cannot produce a trustworthy ratio:
// missing days_since_cleaning, consumption at or below the minimum, and
// consumption outside the run's [P(lower), P(upper)] band. Every exclusion
// increments its diagnostic counter; the filters never abort the batch.
func ApplyHygieneFilters(rows []Row, p Params, diag *types.Diagnostics) []Row {
	kept := rows[:0]
	for _, r := range rows {
		if math.IsNaN(r.Feat.DaysSinceCleaning) {
			diag.MissingDaysSince++
			continue
		}
		if r.ConsumedTons <= p.MinConsumptionTons {
			diag.NonPositiveConsumption++
			continue
		}
		kept = append(kept, r)
	}

	if len(kept) == 0 {
		return kept
	}

	lo, hi := consumptionBand(kept, p)
	trimmed := kept[:0]
	for _, r := range kept {
		if r.ConsumedTons < lo || r.ConsumedTons > hi {
			diag.PercentileTrimmed++
			continue
		}
		trimmed = append(trimmed, r)
	}
	return trimmed
}

// consumptionBand returns the inclusive [P(lower), P(upper)] consumption
// bounds over the surviving rows.
func consumptionBand(rows []Row, p Params) (float64, float64) {
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.ConsumedTons
	}
	sort.Float64s(values)
	return quantileLinear(p.TrimLowerQuantile, values), quantileLinear(p.TrimUpperQuantile, values)
}

// quantileLinear computes the q-th quantile of sorted values with linear
// interpolation between the two nearest order statistics, the convention
// dataframe tools use. values must be non-empty.
func quantileLinear(q float64, values []float64) float64 {
	if len(values) == 1 {
		return values[0]
	}
	h := q * float64(len(values)-1)
	i := int(math.Floor(h))
	if i >= len(values)-1 {
		return values[len(values)-1]
	}
	return values[i] + (h-float64(i))*(values[i+1]-values[i])
}

// FilterRatioRange keeps rows whose excess ratio lies strictly inside
// (RatioMin, RatioMax). NaN ratios (degenerate baselines) fail the bounds
// and are excluded with the same counter, so no NaN ever reaches a report.
func FilterRatioRange(rows []Row, p Params, diag *types.Diagnostics) []Row {
	kept := rows[:0]
	for _, r := range rows {
		if !(r.Ratio > p.RatioMin && r.Ratio < p.RatioMax) {
			diag.RatioOutOfRange++
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
