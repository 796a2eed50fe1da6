package fouling

import (
	"math"
	"testing"
)

func TestReynoldsNumber(t *testing.T) {
	tests := []struct {
		name     string
		velocity float64
		expected float64
		epsilon  float64
	}{
		{"service speed", 12, 2.46e9, 1e3},
		{"stationary", 0, 0, 0},
		{"negative speed", -3, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReynoldsNumber(tt.velocity, DefaultHullLength, DefaultWaterDensity, DefaultWaterViscosity)
			if math.Abs(got-tt.expected) > tt.epsilon {
				t.Errorf("expected %.4g, got %.4g", tt.expected, got)
			}
		})
	}

	if got := ReynoldsNumber(12, 0, DefaultWaterDensity, DefaultWaterViscosity); got != 0 {
		t.Errorf("zero length: expected 0, got %.4g", got)
	}
	if got := ReynoldsNumber(12, DefaultHullLength, DefaultWaterDensity, 0); got != 0 {
		t.Errorf("zero viscosity: expected 0, got %.4g", got)
	}
}

func TestFrictionCoefficient(t *testing.T) {
	tests := []struct {
		name     string
		reynolds float64
		expected float64
		epsilon  float64
	}{
		{"turbulent flow", 2.46e9, 0.001373, 1e-5},
		{"low flow", 2.05e5, 0.006838, 1e-5},
		{"zero reynolds", 0, 0, 0},
		{"log-singular reynolds", 100, 0, 0},
		{"sub-singular reynolds", 50, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FrictionCoefficient(tt.reynolds)
			if math.Abs(got-tt.expected) > tt.epsilon {
				t.Errorf("expected %.6f ± %.0e, got %.6f", tt.expected, tt.epsilon, got)
			}
		})
	}
}

func TestDeltaRoughnessAndPenalty(t *testing.T) {
	if got := DeltaRoughness(0.0068, 0.003); math.Abs(got-0.0038) > 1e-12 {
		t.Errorf("expected 0.0038, got %.6f", got)
	}
	// Smoother than the clean reference clamps to zero, never negative.
	if got := DeltaRoughness(0.0014, 0.003); got != 0 {
		t.Errorf("expected clamp to 0, got %.6f", got)
	}

	if got := PowerPenalty(0.0038, 10); math.Abs(got-0.038) > 1e-12 {
		t.Errorf("expected 0.038, got %.6f", got)
	}
	if got := PowerPenalty(0, 10); got != 0 {
		t.Errorf("zero roughness: expected 0, got %.6f", got)
	}
	if got := PowerPenalty(0.0038, 0); got != 0 {
		t.Errorf("stationary: expected 0, got %.6f", got)
	}
}

func TestHydroForSpeed(t *testing.T) {
	// At service speeds the approximated friction sits below the clean
	// reference, so the chain bottoms out with no penalty.
	h := HydroForSpeed(12)
	if math.Abs(h.ReynoldsNumber-2.46e9) > 1e3 {
		t.Errorf("reynolds: expected 2.46e9, got %.4g", h.ReynoldsNumber)
	}
	if math.Abs(h.FrictionCoefficient-0.001373) > 1e-5 {
		t.Errorf("cf: expected 0.001373, got %.6f", h.FrictionCoefficient)
	}
	if h.DeltaRoughness != 0 || h.PowerPenalty != 0 {
		t.Errorf("expected zero roughness delta and penalty, got %.6f/%.6f",
			h.DeltaRoughness, h.PowerPenalty)
	}

	// A crawling speed drives the coefficient above the reference.
	slow := HydroForSpeed(0.001)
	if slow.DeltaRoughness <= 0 {
		t.Errorf("expected positive roughness delta at crawl speed, got %.6f", slow.DeltaRoughness)
	}
	if math.Abs(slow.PowerPenalty-slow.DeltaRoughness*0.001) > 1e-15 {
		t.Errorf("penalty should be delta*speed, got %.8g", slow.PowerPenalty)
	}
}
