package fouling

import "math"

// Impact is the fuel, cost, and emissions consequence of one event's excess
// ratio. A negative ratio yields negative values: the vessel beat its
// baseline, and the savings are reported as-is rather than clamped.
type Impact struct {
	FuelTons float64
	CostUSD  float64
	CO2Tons  float64
}

// EstimateImpact converts an excess ratio into its impact. Additional fuel is
// exactly baseline x ratio; cost and CO2 scale that same quantity, so the
// three never drift apart from independent rounding.
func EstimateImpact(baseline, ratio float64, p Params) Impact {
	if math.IsNaN(baseline) || math.IsNaN(ratio) {
		return Impact{FuelTons: math.NaN(), CostUSD: math.NaN(), CO2Tons: math.NaN()}
	}
	fuel := baseline * ratio
	return Impact{
		FuelTons: fuel,
		CostUSD:  fuel * p.FuelPriceUSDPerTon,
		CO2Tons:  fuel * p.CO2TonPerFuelTon,
	}
}
