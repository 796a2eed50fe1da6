package ingest

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadEventsCSV(t *testing.T) {
	content := "\uFEFFship_name,session_id,start_date,speed,duration,displacement,draft,sea_state\n" +
		" mira ,S-1,2024-01-15,12.5,24,50000,11.5,3\n" +
		"NAOS,S-2,2024-02-01 06:30:00,\"13,25\",36,,,\n" +
		"MIRA,S-3,not-a-date,12,24,50000,11.5,2\n" +
		"MIRA,S-4,2024-03-01,,24,50000,11.5,2\n"
	path := writeTempFile(t, "events.csv", content)

	events, st, err := LoadEvents(path, Columns{})
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if st.Rows != 4 || st.Loaded != 2 || st.Malformed != 2 {
		t.Fatalf("stats = %+v, want 4/2/2", st)
	}

	first := events[0]
	if first.ShipName != "MIRA" || first.SessionID != "S-1" {
		t.Errorf("first event = %+v", first)
	}
	if !first.StartDate.Equal(time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start date = %v", first.StartDate)
	}
	if first.SpeedKnots != 12.5 || first.DurationHours != 24 {
		t.Errorf("speed/duration = %v/%v", first.SpeedKnots, first.DurationHours)
	}
	if first.DisplacementTons != 50000 || first.MidDraftMeters != 11.5 || first.BeaufortScale != 3 {
		t.Errorf("optional fields = %v/%v/%d", first.DisplacementTons, first.MidDraftMeters, first.BeaufortScale)
	}

	second := events[1]
	if second.ShipName != "NAOS" || math.Abs(second.SpeedKnots-13.25) > 1e-9 {
		t.Errorf("decimal-comma speed = %+v", second)
	}
	if second.DisplacementTons != 0 || second.BeaufortScale != 0 {
		t.Errorf("absent optionals should stay zero: %+v", second)
	}
}

func TestLoadEventsCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "missing required column",
			file:    "events.csv",
			content: "ship_name,session_id,start_date,duration\nMIRA,S-1,2024-01-15,24\n",
			wantErr: "missing required columns",
		},
		{
			name:    "all rows malformed",
			file:    "events.csv",
			content: "ship_name,session_id,start_date,speed,duration\nMIRA,S-1,nope,12,24\n",
			wantErr: "no usable event rows",
		},
		{
			name:    "empty file",
			file:    "events.csv",
			content: "",
			wantErr: "empty file",
		},
		{
			name:    "unsupported format",
			file:    "events.txt",
			content: "whatever",
			wantErr: "unsupported input format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, tt.file, tt.content)
			_, _, err := LoadEvents(path, Columns{})
			if err == nil {
				t.Fatal("LoadEvents accepted a bad input")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}

	if _, _, err := LoadEvents(filepath.Join(t.TempDir(), "absent.csv"), Columns{}); err == nil {
		t.Error("LoadEvents accepted a missing file")
	}
}

func TestLoadEventsCustomColumns(t *testing.T) {
	content := "shipName,sessionId,startGMTDate,speed,duration,displacement,midDraft,beaufortScale\n" +
		"VEGA,S-9,2024-04-01,11,48,42000,10.2,4\n"
	path := writeTempFile(t, "legacy.csv", content)

	cols := Columns{
		ShipName:  "shipName",
		SessionID: "sessionId",
		StartDate: "startGMTDate",
		MidDraft:  "midDraft",
		SeaState:  "beaufortScale",
	}
	events, st, err := LoadEvents(path, cols)
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if st.Loaded != 1 || events[0].ShipName != "VEGA" || events[0].MidDraftMeters != 10.2 {
		t.Errorf("legacy mapping: stats=%+v event=%+v", st, events[0])
	}
}

func TestLoadConsumptionCSV(t *testing.T) {
	content := "session_id,consumed_quantity\n" +
		"S-1,12.5\n" +
		"S-1,7.5\n" +
		"S-2,abc\n" +
		",9\n" +
		"S-3,30\n"
	path := writeTempFile(t, "consumption.csv", content)

	records, st, err := LoadConsumption(path, Columns{})
	if err != nil {
		t.Fatalf("LoadConsumption: %v", err)
	}
	if st.Rows != 5 || st.Loaded != 3 || st.Malformed != 2 {
		t.Fatalf("stats = %+v, want 5/3/2", st)
	}
	if records[0].SessionID != "S-1" || records[0].ConsumedTons != 12.5 {
		t.Errorf("first record = %+v", records[0])
	}
	if records[1].SessionID != "S-1" || records[1].ConsumedTons != 7.5 {
		t.Errorf("line items must stay separate: %+v", records[1])
	}
}

func TestLoadDrydocksCSV(t *testing.T) {
	docks := writeTempFile(t, "docks.csv",
		"ship_name,docking_date,paint_type\n"+
			"Mira,2024-01-01,SPC Ultra\n"+
			"NAOS,2024-01-05,\n"+
			"vega,bad-date,X\n")
	paint := writeTempFile(t, "paint.csv",
		"ship_name,paint_type\n"+
			"naos,Silicone\n"+
			"MIRA,ShouldNotOverride\n")

	recs, st, err := LoadDrydocks(DrydockSource{Path: docks, PaintPath: paint}, Columns{})
	if err != nil {
		t.Fatalf("LoadDrydocks: %v", err)
	}
	if st.Rows != 3 || st.Loaded != 2 || st.Malformed != 1 {
		t.Fatalf("stats = %+v, want 3/2/1", st)
	}
	if recs[0].ShipName != "MIRA" || recs[0].PaintType != "SPC Ultra" {
		t.Errorf("docking paint column must win: %+v", recs[0])
	}
	if recs[1].ShipName != "NAOS" || recs[1].PaintType != "Silicone" {
		t.Errorf("coating table merge failed: %+v", recs[1])
	}
	if !recs[1].DockDate.Equal(time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dock date = %v", recs[1].DockDate)
	}
}

func TestLoadDrydocksWithoutPaintTable(t *testing.T) {
	docks := writeTempFile(t, "docks.csv",
		"ship_name,docking_date\nNAOS,2024-01-05\n")

	recs, _, err := LoadDrydocks(DrydockSource{Path: docks}, Columns{})
	if err != nil {
		t.Fatalf("LoadDrydocks: %v", err)
	}
	if recs[0].PaintType != "" {
		t.Errorf("paint = %q, want empty", recs[0].PaintType)
	}
}

func TestLoadDrydocksBadPaintTable(t *testing.T) {
	docks := writeTempFile(t, "docks.csv",
		"ship_name,docking_date\nNAOS,2024-01-05\n")
	paint := writeTempFile(t, "paint.csv",
		"vessel,coating\nNAOS,Silicone\n")

	_, _, err := LoadDrydocks(DrydockSource{Path: docks, PaintPath: paint}, Columns{})
	if err == nil || !strings.Contains(err.Error(), "coating table") {
		t.Errorf("error = %v, want coating table complaint", err)
	}
}
