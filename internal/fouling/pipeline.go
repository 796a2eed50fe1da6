package fouling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hullwatch/hullwatch/internal/types"
)

// RunReport is the complete artifact of one pipeline run: the per-event
// results, the per-ship summaries, the fitted calibration, and the
// diagnostics that account for every excluded row. Identical inputs produce
// identical results and summaries; RunID and the timestamps are run metadata
// and stay out of the report artifacts.
type RunReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Params           Params                   `json:"params"`
	Results          []types.BiofoulingResult `json:"results"`
	Summaries        []types.ShipSummary      `json:"summaries"`
	Fleet            types.FleetSummary       `json:"fleet"`
	Diagnostics      types.Diagnostics        `json:"diagnostics"`
	Calibration      Calibration              `json:"calibration"`
	DynamicReference float64                  `json:"dynamic_reference"`
	PaintEncoding    PaintEncoding            `json:"paint_encoding"`
}

// Run executes the full historical pipeline: derive features over the whole
// event set, merge consumption, apply the hygiene filters, calibrate
// efficiency factors, compute baselines, ratios, indexes, classes, and
// impacts, and aggregate per ship. It either returns a complete report or an
// error before any artifact exists; partial output is never produced.
func Run(events []types.VoyageEvent, consumption []types.ConsumptionRecord, drydocks []types.DrydockRecord, p Params) (*RunReport, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline parameters: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no voyage events to process")
	}
	if len(consumption) == 0 {
		return nil, fmt.Errorf("no consumption records to merge")
	}

	report := &RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Params:    p,
	}
	diag := &report.Diagnostics
	diag.EventsLoaded = len(events)

	// Canonical chronology: every later stage sees events sorted by ship,
	// date, session, which keeps reruns byte-identical.
	ordered := make([]types.VoyageEvent, len(events))
	for i, idx := range sortedEventOrder(events) {
		ordered[i] = events[idx]
	}

	feats, encoding := DeriveFeatures(ordered, drydocks, p)
	report.PaintEncoding = encoding

	rows := MergeRows(ordered, feats, SumConsumption(consumption), diag)
	rows = ApplyHygieneFilters(rows, p, diag)

	for i := range rows {
		rows[i].Power = TheoreticalPower(rows[i].Event, p)
	}

	cal, err := Calibrate(rows, p)
	if err != nil {
		return nil, fmt.Errorf("efficiency calibration failed: %w", err)
	}
	report.Calibration = cal
	diag.ZeroPowerCalibration = cal.ZeroPowerSkips

	for i := range rows {
		r := &rows[i]
		r.Efficiency = cal.FactorFor(r.Event.ShipName)
		r.Baseline = BaselineConsumption(r.Power, r.Event.DurationHours, r.Efficiency)
		r.Ratio = ExcessRatio(r.ConsumedTons, r.Baseline)
	}

	rows = FilterRatioRange(rows, p, diag)

	ratios := make([]float64, len(rows))
	for i := range rows {
		r := &rows[i]
		r.Index = BioIndex0To10(r.Ratio, p)
		r.Class = Classify(r.Ratio)
		r.Impact = EstimateImpact(r.Baseline, r.Ratio, p)
		ratios[i] = r.Ratio
	}

	diag.ResultsEmitted = len(rows)
	report.Results = Results(rows)
	report.Summaries = Summarize(rows)
	report.Fleet = SummarizeFleet(report.Summaries)
	report.DynamicReference = DynamicReference(ratios, p)
	report.FinishedAt = time.Now().UTC()

	return report, nil
}
