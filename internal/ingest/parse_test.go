package ingest

import (
	"math"
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
		ok   bool
	}{
		{name: "RFC3339", in: "2024-01-15T06:30:00Z", want: time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC), ok: true},
		{name: "datetime space", in: "2024-01-15 06:30:00", want: time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC), ok: true},
		{name: "bare date", in: "2024-01-15", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "slashed date", in: "2024/01/15", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "spreadsheet serial", in: "45306", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "fractional serial", in: "45306.5", want: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), ok: true},
		{name: "garbage", in: "not-a-date", ok: false},
		{name: "blank", in: "   ", ok: false},
		{name: "small number is not a serial", in: "123", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTime(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("parseTime(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
		ok   bool
	}{
		{name: "plain", in: "12.5", want: 12.5, ok: true},
		{name: "decimal comma", in: "12,5", want: 12.5, ok: true},
		{name: "padded", in: " 42 ", want: 42, ok: true},
		{name: "negative", in: "-0.3", want: -0.3, ok: true},
		{name: "thousands separator rejected", in: "1,234.5", ok: false},
		{name: "blank", in: "", ok: false},
		{name: "words", in: "abc", ok: false},
		{name: "literal NaN", in: "NaN", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseFloat(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("parseFloat(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if !ok && !math.IsNaN(got) {
				t.Errorf("rejected value should report NaN, got %v", got)
			}
		})
	}
}

func TestNormalizeShipName(t *testing.T) {
	if got := NormalizeShipName("  mira theresa "); got != "MIRA THERESA" {
		t.Errorf("NormalizeShipName = %q", got)
	}
}
