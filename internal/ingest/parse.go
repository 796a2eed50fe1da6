package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// headerIndex resolves column names to positions in a header row.
type headerIndex map[string]int

func indexHeader(header []string) headerIndex {
	ix := make(headerIndex, len(header))
	for i, h := range header {
		ix[strings.TrimSpace(h)] = i
	}
	return ix
}

func (ix headerIndex) require(path string, names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := ix[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required columns: %s", path, strings.Join(missing, ", "))
	}
	return nil
}

func (ix headerIndex) get(row []string, name string) string {
	i, ok := ix[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// NormalizeShipName uppercases and trims a ship label so the three inputs
// join on the same key.
func NormalizeShipName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
}

// excelEpoch is day zero of the 1900 date system.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// parseTime accepts the export timestamp layouts plus spreadsheet serial
// dates, normalized to UTC.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		return excelEpoch.Add(time.Duration(serial * 24 * float64(time.Hour))), true
	}
	return time.Time{}, false
}

// parseFloat coerces a numeric cell, tolerating a decimal comma. Blank or
// unparseable cells report NaN and false.
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		v, err = strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	}
	if err != nil || math.IsNaN(v) {
		return math.NaN(), false
	}
	return v, true
}
