package fouling

import (
	"math"
	"sort"

	"github.com/hullwatch/hullwatch/internal/types"
	"github.com/hullwatch/hullwatch/pkg/severity"
)

// Summarize rolls the per-event rows up into one summary per ship, ordered
// by ship name. Ships whose rows were all filtered upstream simply do not
// appear; an absent ship is "not measured", never "no impact".
func Summarize(rows []Row) []types.ShipSummary {
	byShip := make(map[string][]Row)
	for _, r := range rows {
		byShip[r.Event.ShipName] = append(byShip[r.Event.ShipName], r)
	}

	ships := make([]string, 0, len(byShip))
	for ship := range byShip {
		ships = append(ships, ship)
	}
	sort.Strings(ships)

	summaries := make([]types.ShipSummary, 0, len(ships))
	for _, ship := range ships {
		group := byShip[ship]
		s := types.ShipSummary{
			ShipName:       ship,
			NumEvents:      len(group),
			MaxExcessRatio: group[0].Ratio,
			MaxBioIndex:    group[0].Index,
		}
		for _, r := range group {
			s.AvgExcessRatio += r.Ratio
			s.AvgBioIndex += r.Index
			if r.Ratio > s.MaxExcessRatio {
				s.MaxExcessRatio = r.Ratio
			}
			if r.Index > s.MaxBioIndex {
				s.MaxBioIndex = r.Index
			}
			s.TotalBaselineFuel += r.Baseline
			s.TotalRealFuel += r.ConsumedTons
			s.TotalAdditionalFuel += r.Impact.FuelTons
			s.TotalAdditionalCost += r.Impact.CostUSD
			s.TotalAdditionalCO2 += r.Impact.CO2Tons
		}
		s.AvgExcessRatio /= float64(len(group))
		s.AvgBioIndex /= float64(len(group))
		summaries = append(summaries, s)
	}
	return summaries
}

// SummarizeFleet aggregates event-weighted fleet totals from the per-ship
// summaries.
func SummarizeFleet(summaries []types.ShipSummary) types.FleetSummary {
	fleet := types.FleetSummary{NumShips: len(summaries)}
	for _, s := range summaries {
		n := float64(s.NumEvents)
		fleet.NumEvents += s.NumEvents
		fleet.AvgExcessRatio += s.AvgExcessRatio * n
		fleet.AvgBioIndex += s.AvgBioIndex * n
		if s.MaxBioIndex > fleet.MaxBioIndex {
			fleet.MaxBioIndex = s.MaxBioIndex
		}
		fleet.TotalBaselineFuel += s.TotalBaselineFuel
		fleet.TotalRealFuel += s.TotalRealFuel
		fleet.TotalAdditionalFuel += s.TotalAdditionalFuel
		fleet.TotalAdditionalCost += s.TotalAdditionalCost
		fleet.TotalAdditionalCO2 += s.TotalAdditionalCO2
	}
	if fleet.NumEvents > 0 {
		fleet.AvgExcessRatio /= float64(fleet.NumEvents)
		fleet.AvgBioIndex /= float64(fleet.NumEvents)
	}
	return fleet
}

// Statistics derives the fleet-wide descriptive statistics for the run.
func (r *RunReport) Statistics() types.ReportStatistics {
	stats := types.ReportStatistics{
		NumEvents:         len(r.Results),
		NumShips:          len(r.Summaries),
		ClassCounts:       make(map[string]int),
		DynamicReference:  r.DynamicReference,
		GlobalEfficiency:  r.Calibration.Global,
		CalibratedShips:   len(r.Calibration.PerShip),
		LastPipelineRunID: r.RunID,
	}
	for i := range r.Results {
		res := &r.Results[i]
		stats.AvgExcessRatio += res.ExcessRatio
		stats.AvgBioIndex += res.BioIndex
		if res.ExcessRatio > stats.MaxExcessRatio {
			stats.MaxExcessRatio = res.ExcessRatio
		}
		if res.BioIndex > stats.MaxBioIndex {
			stats.MaxBioIndex = res.BioIndex
		}
		stats.ClassCounts[res.BioClass]++
		stats.TotalAdditional += res.AdditionalFuelTons
		stats.TotalCostUSD += res.AdditionalCostUSD
		stats.TotalCO2Tons += res.AdditionalCO2Tons
	}
	if len(r.Results) > 0 {
		stats.AvgExcessRatio /= float64(len(r.Results))
		stats.AvgBioIndex /= float64(len(r.Results))
	}
	return stats
}

// HighRisk lists the ships whose worst observed index meets the threshold,
// worst first, with the class and date of each ship's most recent event.
func (r *RunReport) HighRisk(threshold float64) []types.ShipRisk {
	latest := make(map[string]*types.BiofoulingResult, len(r.Summaries))
	for i := range r.Results {
		res := &r.Results[i]
		if cur, ok := latest[res.ShipName]; !ok || res.StartDate.After(cur.StartDate) {
			latest[res.ShipName] = res
		}
	}

	risks := make([]types.ShipRisk, 0)
	for _, s := range r.Summaries {
		if s.MaxBioIndex < threshold {
			continue
		}
		risk := types.ShipRisk{
			ShipName:       s.ShipName,
			MaxBioIndex:    s.MaxBioIndex,
			AvgBioIndex:    s.AvgBioIndex,
			Recommendation: severity.Recommendation(s.MaxBioIndex),
		}
		if res, ok := latest[s.ShipName]; ok {
			risk.LatestBioClass = res.BioClass
			risk.LatestEvent = res.StartDate
		}
		risks = append(risks, risk)
	}

	// Summaries arrive sorted by ship name, so equal indexes keep a
	// stable alphabetical order.
	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].MaxBioIndex > risks[j].MaxBioIndex
	})
	return risks
}

// RowsFromResults rebuilds pipeline rows from stored results so they can be
// re-scored or evaluated without rerunning the pipeline. The historical
// average speed is not stored per result; it comes back as NaN, which scoring
// treats as "use the event's own speed".
func RowsFromResults(results []types.BiofoulingResult) []Row {
	rows := make([]Row, len(results))
	for i := range results {
		res := &results[i]
		rows[i] = Row{
			Event: types.VoyageEvent{
				ShipName:      res.ShipName,
				SessionID:     res.SessionID,
				StartDate:     res.StartDate,
				SpeedKnots:    res.SpeedKnots,
				DurationHours: res.DurationHours,
				BeaufortScale: res.BeaufortScale,
			},
			ConsumedTons: res.ConsumedTons,
			Feat: types.EventFeatures{
				DaysSinceCleaning:      res.DaysSinceCleaning,
				PctIdleRecent:          res.PctIdleRecent,
				HistoricalAvgSpeed:     math.NaN(),
				AccumulatedFoulingRisk: res.AccumulatedFoulingRisk,
				PaintType:              res.PaintType,
			},
			Power:      res.TheoreticalPower,
			Efficiency: res.EfficiencyFactor,
			Baseline:   res.BaselineConsumption,
			Ratio:      res.ExcessRatio,
			Index:      res.BioIndex,
			Class:      res.BioClass,
		}
	}
	return rows
}

// Results converts the finished rows to their storable per-event form,
// preserving row order.
func Results(rows []Row) []types.BiofoulingResult {
	out := make([]types.BiofoulingResult, len(rows))
	for i, r := range rows {
		out[i] = types.BiofoulingResult{
			ShipName:               r.Event.ShipName,
			SessionID:              r.Event.SessionID,
			StartDate:              r.Event.StartDate,
			SpeedKnots:             r.Event.SpeedKnots,
			DurationHours:          r.Event.DurationHours,
			BeaufortScale:          r.Event.BeaufortScale,
			ConsumedTons:           r.ConsumedTons,
			DaysSinceCleaning:      r.Feat.DaysSinceCleaning,
			PctIdleRecent:          r.Feat.PctIdleRecent,
			AccumulatedFoulingRisk: r.Feat.AccumulatedFoulingRisk,
			PaintType:              r.Feat.PaintType,
			TheoreticalPower:       r.Power,
			EfficiencyFactor:       r.Efficiency,
			BaselineConsumption:    r.Baseline,
			ExcessRatio:            r.Ratio,
			BioIndex:               r.Index,
			BioClass:               r.Class,
			AdditionalFuelTons:     r.Impact.FuelTons,
			AdditionalCostUSD:      r.Impact.CostUSD,
			AdditionalCO2Tons:      r.Impact.CO2Tons,
		}
	}
	return out
}
