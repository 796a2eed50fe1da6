package fouling

import "math"

// Water and hull constants for the hydrodynamic approximations.
const (
	DefaultWaterDensity   = 1025.0 // kg/m^3
	DefaultWaterViscosity = 1.0e-3 // Pa*s
	DefaultHullLength     = 200.0  // m
	DefaultCleanFriction  = 0.003
)

// ReynoldsNumber computes rho*v*L/mu for the hull. Non-positive speed,
// viscosity, or length yields zero.
func ReynoldsNumber(velocity, length, density, viscosity float64) float64 {
	if velocity <= 0 || viscosity <= 0 || length <= 0 {
		return 0
	}
	return density * velocity * length / viscosity
}

// FrictionCoefficient approximates the skin friction coefficient with the
// Prandtl-Schlichting flat-plate formula 0.075/(log10(Re)-2)^2.
func FrictionCoefficient(reynolds float64) float64 {
	if reynolds <= 0 {
		return 0
	}
	logRe := math.Log10(reynolds)
	if logRe <= 2 {
		return 0
	}
	return 0.075 / math.Pow(logRe-2, 2)
}

// DeltaRoughness is the friction increase over a clean hull, floored at
// zero.
func DeltaRoughness(cfDirty, cfClean float64) float64 {
	return math.Max(cfDirty-cfClean, 0)
}

// PowerPenalty estimates the additional effective power demanded by hull
// roughness, proportional to the friction increase and the speed.
func PowerPenalty(deltaRoughness, velocity float64) float64 {
	if deltaRoughness <= 0 || velocity <= 0 {
		return 0
	}
	return deltaRoughness * velocity
}

// HydroState bundles the hull friction quantities derived from one speed.
type HydroState struct {
	ReynoldsNumber      float64 `json:"reynolds_number"`
	FrictionCoefficient float64 `json:"friction_coefficient"`
	DeltaRoughness      float64 `json:"delta_roughness"`
	PowerPenalty        float64 `json:"power_penalty"`
}

// HydroForSpeed evaluates the friction chain for a speed in knots with the
// default water and hull constants.
func HydroForSpeed(speedKnots float64) HydroState {
	re := ReynoldsNumber(speedKnots, DefaultHullLength, DefaultWaterDensity, DefaultWaterViscosity)
	cf := FrictionCoefficient(re)
	dr := DeltaRoughness(cf, DefaultCleanFriction)
	return HydroState{
		ReynoldsNumber:      re,
		FrictionCoefficient: cf,
		DeltaRoughness:      dr,
		PowerPenalty:        PowerPenalty(dr, speedKnots),
	}
}
