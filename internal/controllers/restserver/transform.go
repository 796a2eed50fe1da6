package restserver

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hullwatch/hullwatch/internal/database"
	"github.com/hullwatch/hullwatch/internal/ingest"
	"github.com/hullwatch/hullwatch/internal/types"
)

// shipInfoFromResults condenses a ship's scored events into its listing row.
// Rows arrive date-ordered, so the last one is the latest state.
func shipInfoFromResults(name string, results []types.BiofoulingResult) ShipInfo {
	info := ShipInfo{ShipName: name, TotalEvents: len(results)}
	if len(results) == 0 {
		return info
	}
	last := results[len(results)-1]
	lastDate, days, index := last.StartDate, last.DaysSinceCleaning, last.BioIndex
	info.LastEventDate = &lastDate
	info.DaysSinceCleaning = &days
	info.PaintType = last.PaintType
	info.BioIndex = &index
	info.BioClass = last.BioClass
	return info
}

// shipInfoFromStatus converts a stored latest-state row to its listing row.
func shipInfoFromStatus(status *database.FetchedShipStatus) ShipInfo {
	lastDate, days, index := status.StartDate, status.DaysSinceCleaning, status.BioIndex
	return ShipInfo{
		ShipName:          status.ShipName,
		TotalEvents:       status.TotalEvents,
		LastEventDate:     &lastDate,
		DaysSinceCleaning: &days,
		PaintType:         status.PaintType,
		BioIndex:          &index,
		BioClass:          status.BioClass,
	}
}

// reportFilters are the parsed query filters of the report endpoint.
type reportFilters struct {
	ship        string
	startDate   time.Time
	endDate     time.Time
	minIndex    float64
	hasMinIndex bool
	bioClass    string
	limit       int
	offset      int
}

func parseReportFilters(req *http.Request) (reportFilters, error) {
	q := req.URL.Query()
	f := reportFilters{limit: defaultReportLimit}

	if ship := q.Get("ship"); ship != "" {
		f.ship = ingest.NormalizeShipName(ship)
	}
	if raw := q.Get("start_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", raw)
		}
		f.startDate = t
	}
	if raw := q.Get("end_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", raw)
		}
		// The bound is inclusive of the named day.
		f.endDate = t.AddDate(0, 0, 1)
	}
	if raw := q.Get("min_bio_index"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) {
			return f, fmt.Errorf("invalid min_bio_index %q", raw)
		}
		f.minIndex = v
		f.hasMinIndex = true
	}
	if raw := q.Get("bio_class"); raw != "" {
		switch raw {
		case types.ClassLight, types.ClassModerate, types.ClassSevere, types.ClassUnknown:
			f.bioClass = raw
		default:
			return f, fmt.Errorf("unknown bio_class %q", raw)
		}
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxReportLimit {
			return f, fmt.Errorf("limit must be an integer between 1 and %d", maxReportLimit)
		}
		f.limit = v
	}
	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return f, fmt.Errorf("offset must be a non-negative integer")
		}
		f.offset = v
	}

	return f, nil
}

// apply filters rows, preserving their ship/date order.
func (f reportFilters) apply(rows []types.BiofoulingResult) []types.BiofoulingResult {
	filtered := make([]types.BiofoulingResult, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		if f.ship != "" && r.ShipName != f.ship {
			continue
		}
		if !f.startDate.IsZero() && r.StartDate.Before(f.startDate) {
			continue
		}
		if !f.endDate.IsZero() && !r.StartDate.Before(f.endDate) {
			continue
		}
		if f.hasMinIndex && !(r.BioIndex >= f.minIndex) {
			continue
		}
		if f.bioClass != "" && r.BioClass != f.bioClass {
			continue
		}
		filtered = append(filtered, *r)
	}
	return filtered
}

// validatePrediction collects every problem with a request so the caller
// sees them all at once.
func validatePrediction(pr *PredictionRequest) []string {
	var problems []string

	if strings.TrimSpace(pr.ShipName) == "" {
		problems = append(problems, "ship_name is required")
	}
	switch {
	case pr.SpeedKnots == nil:
		problems = append(problems, "speed_knots is required")
	case *pr.SpeedKnots < 0 || *pr.SpeedKnots > 30:
		problems = append(problems, "speed_knots must be between 0 and 30")
	}
	switch {
	case pr.DurationHours == nil:
		problems = append(problems, "duration_hours is required")
	case *pr.DurationHours <= 0:
		problems = append(problems, "duration_hours must be greater than 0")
	}
	switch {
	case pr.DaysSinceCleaning == nil:
		problems = append(problems, "days_since_cleaning is required")
	case *pr.DaysSinceCleaning < 0:
		problems = append(problems, "days_since_cleaning cannot be negative")
	}
	if pr.DisplacementTons != nil && *pr.DisplacementTons <= 0 {
		problems = append(problems, "displacement_tons must be greater than 0")
	}
	if pr.MidDraftMeters != nil && *pr.MidDraftMeters <= 0 {
		problems = append(problems, "mid_draft_m must be greater than 0")
	}
	if pr.BeaufortScale != nil && (*pr.BeaufortScale < 0 || *pr.BeaufortScale > 12) {
		problems = append(problems, "beaufort_scale must be between 0 and 12")
	}
	if pr.PctIdleRecent != nil && (*pr.PctIdleRecent < 0 || *pr.PctIdleRecent > 1) {
		problems = append(problems, "pct_idle_recent must be between 0 and 1")
	}

	return problems
}

// parseLocation splits a "lat,lon" location key.
func parseLocation(location string) (float64, float64, error) {
	parts := strings.SplitN(location, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("location %q is not lat,lon", location)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("location %q is not lat,lon", location)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("location %q is not lat,lon", location)
	}
	return lat, lon, nil
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func round4(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v*10000) / 10000
}

func round2(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v*100) / 100
}
