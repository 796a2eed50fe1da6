package runcache

import (
	"testing"
	"time"

	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/types"
)

func cachedReport() *fouling.RunReport {
	return &fouling.RunReport{
		RunID: "run-1",
		Results: []types.BiofoulingResult{
			{ShipName: "MIRA", SessionID: "a", StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ShipName: "MIRA", SessionID: "b", StartDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
			{ShipName: "NAOS", SessionID: "c", StartDate: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		},
		Summaries: []types.ShipSummary{
			{ShipName: "MIRA", NumEvents: 2},
			{ShipName: "NAOS", NumEvents: 1},
		},
	}
}

func TestEmptyCache(t *testing.T) {
	c := New()

	if _, ok := c.Report(); ok {
		t.Error("empty cache should report no run")
	}
	if names := c.ShipNames(); names != nil {
		t.Errorf("ShipNames = %v, want nil", names)
	}
	if rows := c.ShipResults("MIRA"); rows != nil {
		t.Errorf("ShipResults = %v, want nil", rows)
	}
	if !c.UpdatedAt().IsZero() {
		t.Error("UpdatedAt should be zero before the first run")
	}
}

func TestSetIndexesByShip(t *testing.T) {
	c := New()
	c.Set(cachedReport())

	report, ok := c.Report()
	if !ok || report.RunID != "run-1" {
		t.Fatalf("Report = %+v, %v", report, ok)
	}

	names := c.ShipNames()
	if len(names) != 2 || names[0] != "MIRA" || names[1] != "NAOS" {
		t.Errorf("ShipNames = %v", names)
	}

	mira := c.ShipResults("MIRA")
	if len(mira) != 2 || mira[0].SessionID != "a" || mira[1].SessionID != "b" {
		t.Errorf("MIRA results = %+v", mira)
	}
	naos := c.ShipResults("NAOS")
	if len(naos) != 1 || naos[0].SessionID != "c" {
		t.Errorf("NAOS results = %+v", naos)
	}
	if rows := c.ShipResults("VEGA"); rows != nil {
		t.Errorf("unknown ship results = %+v, want nil", rows)
	}

	summary, ok := c.ShipSummary("NAOS")
	if !ok || summary.NumEvents != 1 {
		t.Errorf("NAOS summary = %+v, %v", summary, ok)
	}
	if c.UpdatedAt().IsZero() {
		t.Error("UpdatedAt should be set after Set")
	}
}

func TestSetReplacesPreviousRun(t *testing.T) {
	c := New()
	c.Set(cachedReport())

	next := &fouling.RunReport{
		RunID: "run-2",
		Results: []types.BiofoulingResult{
			{ShipName: "VEGA", SessionID: "z", StartDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		},
		Summaries: []types.ShipSummary{{ShipName: "VEGA", NumEvents: 1}},
	}
	c.Set(next)

	if rows := c.ShipResults("MIRA"); rows != nil {
		t.Errorf("stale ship still indexed: %+v", rows)
	}
	if rows := c.ShipResults("VEGA"); len(rows) != 1 {
		t.Errorf("VEGA results = %+v", rows)
	}
	report, _ := c.Report()
	if report.RunID != "run-2" {
		t.Errorf("RunID = %q, want run-2", report.RunID)
	}
}
