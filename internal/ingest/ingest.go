// Package ingest loads the three fleet inputs (voyage events, fuel
// consumption line items, drydock history) from CSV and XLSX exports into the
// pipeline's typed records. Cell values that fail to parse are counted and
// the row skipped; a missing file, sheet, or required column aborts the load
// with the input named.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hullwatch/hullwatch/internal/types"
)

// Columns maps export header names onto the fields the pipeline consumes.
// Zero values take the standard export headers.
type Columns struct {
	ShipName     string `json:"ship_name,omitempty" yaml:"ship-name,omitempty"`
	SessionID    string `json:"session_id,omitempty" yaml:"session-id,omitempty"`
	StartDate    string `json:"start_date,omitempty" yaml:"start-date,omitempty"`
	Speed        string `json:"speed,omitempty" yaml:"speed,omitempty"`
	Duration     string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Displacement string `json:"displacement,omitempty" yaml:"displacement,omitempty"`
	MidDraft     string `json:"mid_draft,omitempty" yaml:"mid-draft,omitempty"`
	SeaState     string `json:"sea_state,omitempty" yaml:"sea-state,omitempty"`

	ConsumptionSession string `json:"consumption_session,omitempty" yaml:"consumption-session,omitempty"`
	ConsumedQuantity   string `json:"consumed_quantity,omitempty" yaml:"consumed-quantity,omitempty"`

	DockShip  string `json:"dock_ship,omitempty" yaml:"dock-ship,omitempty"`
	DockDate  string `json:"dock_date,omitempty" yaml:"dock-date,omitempty"`
	DockPaint string `json:"dock_paint,omitempty" yaml:"dock-paint,omitempty"`
}

// DefaultColumns returns the header names of the standard fleet exports.
func DefaultColumns() Columns {
	return Columns{
		ShipName:     "ship_name",
		SessionID:    "session_id",
		StartDate:    "start_date",
		Speed:        "speed",
		Duration:     "duration",
		Displacement: "displacement",
		MidDraft:     "draft",
		SeaState:     "sea_state",

		ConsumptionSession: "session_id",
		ConsumedQuantity:   "consumed_quantity",

		DockShip:  "ship_name",
		DockDate:  "docking_date",
		DockPaint: "paint_type",
	}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	c.ShipName = pick(c.ShipName, d.ShipName)
	c.SessionID = pick(c.SessionID, d.SessionID)
	c.StartDate = pick(c.StartDate, d.StartDate)
	c.Speed = pick(c.Speed, d.Speed)
	c.Duration = pick(c.Duration, d.Duration)
	c.Displacement = pick(c.Displacement, d.Displacement)
	c.MidDraft = pick(c.MidDraft, d.MidDraft)
	c.SeaState = pick(c.SeaState, d.SeaState)
	c.ConsumptionSession = pick(c.ConsumptionSession, d.ConsumptionSession)
	c.ConsumedQuantity = pick(c.ConsumedQuantity, d.ConsumedQuantity)
	c.DockShip = pick(c.DockShip, d.DockShip)
	c.DockDate = pick(c.DockDate, d.DockDate)
	c.DockPaint = pick(c.DockPaint, d.DockPaint)
	return c
}

func pick(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Stats reports what one load saw.
type Stats struct {
	Rows      int `json:"rows"`
	Loaded    int `json:"loaded"`
	Malformed int `json:"malformed"`
}

// tableReader reads one sheet of one file into a header row and data rows.
type tableReader func(path, sheet string) ([]string, [][]string, error)

// readers maps file extensions to table readers.
var readers = map[string]tableReader{
	".csv":  readCSVTable,
	".xlsx": readXLSXTable,
}

func tableFor(path string) (tableReader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	r, ok := readers[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported input format %q for %s", ext, path)
	}
	return r, nil
}

// LoadEvents reads voyage events from a CSV or XLSX export. Ship names are
// normalized, displacement/draft/sea-state cells coerce leniently, and rows
// without a parseable ship, date, speed, or duration are counted as malformed
// and skipped.
func LoadEvents(path string, cols Columns) ([]types.VoyageEvent, Stats, error) {
	cols = cols.withDefaults()
	read, err := tableFor(path)
	if err != nil {
		return nil, Stats{}, err
	}
	header, rows, err := read(path, "")
	if err != nil {
		return nil, Stats{}, err
	}
	ix := indexHeader(header)
	if err := ix.require(path, cols.ShipName, cols.SessionID, cols.StartDate, cols.Speed, cols.Duration); err != nil {
		return nil, Stats{}, err
	}

	var out []types.VoyageEvent
	var st Stats
	for _, row := range rows {
		st.Rows++
		ship := NormalizeShipName(ix.get(row, cols.ShipName))
		date, okDate := parseTime(ix.get(row, cols.StartDate))
		speed, okSpeed := parseFloat(ix.get(row, cols.Speed))
		dur, okDur := parseFloat(ix.get(row, cols.Duration))
		if ship == "" || !okDate || !okSpeed || !okDur {
			st.Malformed++
			continue
		}
		ev := types.VoyageEvent{
			ShipName:      ship,
			SessionID:     ix.get(row, cols.SessionID),
			StartDate:     date,
			SpeedKnots:    speed,
			DurationHours: dur,
		}
		if v, ok := parseFloat(ix.get(row, cols.Displacement)); ok {
			ev.DisplacementTons = v
		}
		if v, ok := parseFloat(ix.get(row, cols.MidDraft)); ok {
			ev.MidDraftMeters = v
		}
		if v, ok := parseFloat(ix.get(row, cols.SeaState)); ok {
			ev.BeaufortScale = int(v)
		}
		out = append(out, ev)
		st.Loaded++
	}
	if st.Loaded == 0 {
		return nil, st, fmt.Errorf("%s: no usable event rows (%d malformed of %d)", path, st.Malformed, st.Rows)
	}
	return out, st, nil
}

// LoadConsumption reads fuel line items from a CSV or XLSX export. Sessions
// may repeat (one line per fuel type); summing is left to the pipeline.
func LoadConsumption(path string, cols Columns) ([]types.ConsumptionRecord, Stats, error) {
	cols = cols.withDefaults()
	read, err := tableFor(path)
	if err != nil {
		return nil, Stats{}, err
	}
	header, rows, err := read(path, "")
	if err != nil {
		return nil, Stats{}, err
	}
	ix := indexHeader(header)
	if err := ix.require(path, cols.ConsumptionSession, cols.ConsumedQuantity); err != nil {
		return nil, Stats{}, err
	}

	var out []types.ConsumptionRecord
	var st Stats
	for _, row := range rows {
		st.Rows++
		session := ix.get(row, cols.ConsumptionSession)
		qty, ok := parseFloat(ix.get(row, cols.ConsumedQuantity))
		if session == "" || !ok {
			st.Malformed++
			continue
		}
		out = append(out, types.ConsumptionRecord{SessionID: session, ConsumedTons: qty})
		st.Loaded++
	}
	if st.Loaded == 0 {
		return nil, st, fmt.Errorf("%s: no usable consumption rows (%d malformed of %d)", path, st.Malformed, st.Rows)
	}
	return out, st, nil
}

// DrydockSource names the docking history file, the XLSX sheet holding it
// (empty means the first sheet), and an optional separate coating table for
// fleets whose paint specifications live apart from the docking list.
type DrydockSource struct {
	Path       string `yaml:"path"`
	Sheet      string `yaml:"sheet"`
	PaintPath  string `yaml:"paint-path"`
	PaintSheet string `yaml:"paint-sheet"`
}

// LoadDrydocks reads the docking history. A paint column in the docking
// table wins; otherwise ships pick up their label from the coating table
// when one is configured.
func LoadDrydocks(src DrydockSource, cols Columns) ([]types.DrydockRecord, Stats, error) {
	cols = cols.withDefaults()
	read, err := tableFor(src.Path)
	if err != nil {
		return nil, Stats{}, err
	}
	header, rows, err := read(src.Path, src.Sheet)
	if err != nil {
		return nil, Stats{}, err
	}
	ix := indexHeader(header)
	if err := ix.require(src.Path, cols.DockShip, cols.DockDate); err != nil {
		return nil, Stats{}, err
	}

	var out []types.DrydockRecord
	var st Stats
	for _, row := range rows {
		st.Rows++
		ship := NormalizeShipName(ix.get(row, cols.DockShip))
		date, ok := parseTime(ix.get(row, cols.DockDate))
		if ship == "" || !ok {
			st.Malformed++
			continue
		}
		out = append(out, types.DrydockRecord{
			ShipName:  ship,
			DockDate:  date,
			PaintType: ix.get(row, cols.DockPaint),
		})
		st.Loaded++
	}
	if st.Loaded == 0 {
		return nil, st, fmt.Errorf("%s: no usable drydock rows (%d malformed of %d)", src.Path, st.Malformed, st.Rows)
	}

	if src.PaintPath != "" {
		paint, err := loadPaintTable(src.PaintPath, src.PaintSheet, cols)
		if err != nil {
			return nil, st, err
		}
		for i := range out {
			if out[i].PaintType == "" {
				out[i].PaintType = paint[out[i].ShipName]
			}
		}
	}
	return out, st, nil
}

// loadPaintTable reads a ship -> coating label map. The first non-empty
// label per ship wins.
func loadPaintTable(path, sheet string, cols Columns) (map[string]string, error) {
	read, err := tableFor(path)
	if err != nil {
		return nil, err
	}
	header, rows, err := read(path, sheet)
	if err != nil {
		return nil, err
	}
	ix := indexHeader(header)
	shipCol := ""
	for _, cand := range []string{cols.DockShip, cols.ShipName} {
		if _, ok := ix[cand]; ok {
			shipCol = cand
			break
		}
	}
	if shipCol == "" {
		return nil, fmt.Errorf("%s: coating table is missing a ship column (%s)", path, cols.DockShip)
	}
	if _, ok := ix[cols.DockPaint]; !ok {
		return nil, fmt.Errorf("%s: coating table is missing the %s column", path, cols.DockPaint)
	}

	m := make(map[string]string)
	for _, row := range rows {
		ship := NormalizeShipName(ix.get(row, shipCol))
		label := ix.get(row, cols.DockPaint)
		if ship == "" || label == "" {
			continue
		}
		if _, seen := m[ship]; !seen {
			m[ship] = label
		}
	}
	return m, nil
}
