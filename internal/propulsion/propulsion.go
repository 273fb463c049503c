// Package propulsion implements the closed-form rocket-equation math used
// to size stages and evaluate flight performance: Tsiolkovsky delta-v,
// multi-stage delta-v budgets, mass flow rate, thrust-to-weight, and burn
// time.
package propulsion

import "math"

// G0 is standard gravity in m/s^2, used by Tsiolkovsky regardless of the
// local gravitational acceleration.
const G0 = 9.80665

// Tsiolkovsky returns the ideal delta-v for a single burn:
// dv = isp * g0 * ln(wetMass / dryMass). Returns 0 when dryMass <= 0 or
// wetMass <= dryMass (nothing to burn).
func Tsiolkovsky(isp, wetMass, dryMass float64) float64 {
	if dryMass <= 0 || wetMass <= dryMass {
		return 0
	}
	return isp * G0 * math.Log(wetMass/dryMass)
}

// Stage describes one stage's wet/dry mass and specific impulse, as needed
// by StageDeltaV.
type Stage struct {
	WetMass float64
	DryMass float64
	Isp     float64
}

// StageDeltaV computes the total multi-stage delta-v budget. Stage i's wet
// and dry masses are each increased by the combined wet mass of every stage
// above it plus the payload, since every stage must lift everything stacked
// on top of it. stages[0] is the bottom (first-ignited) stage.
func StageDeltaV(stages []Stage, payloadMass float64) float64 {
	var total float64
	var aboveWet float64
	for i := len(stages) - 1; i >= 0; i-- {
		s := stages[i]
		payload := aboveWet + payloadMass
		total += Tsiolkovsky(s.Isp, s.WetMass+payload, s.DryMass+payload)
		aboveWet += s.WetMass
	}
	return total
}

// MassFlowRate returns the propellant mass flow rate mdot = F / (isp * g0).
// Returns 0 when isp <= 0.
func MassFlowRate(thrust, isp float64) float64 {
	if isp <= 0 {
		return 0
	}
	return thrust / (isp * G0)
}

// ThrustToWeight returns F / (mass * gLocal). Returns 0 when mass <= 0.
func ThrustToWeight(thrust, mass, gLocal float64) float64 {
	if mass <= 0 {
		return 0
	}
	return thrust / (mass * gLocal)
}

// BurnTime returns fuel / mdot. Returns 0 when mdot <= 0.
func BurnTime(fuel, mdot float64) float64 {
	if mdot <= 0 {
		return 0
	}
	return fuel / mdot
}
