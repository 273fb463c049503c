// Package environment computes gravitational acceleration and atmospheric
// density/drag as functions of altitude, per the flight simulator's 2D,
// single-central-body world model.
package environment

import (
	"math"

	"github.com/inkorange/mission-control/internal/vecmath"
)

const (
	// Rho0 is sea-level air density in kg/m^3.
	Rho0 = 1.225
	// ScaleHeight is the exponential atmosphere's scale height in meters.
	ScaleHeight = 8500.0
	// KarmanLine is the altitude in meters above which the atmosphere is
	// treated as a hard vacuum.
	KarmanLine = 100_000.0
	// DragCd is the global drag coefficient (no per-part drag model).
	DragCd = 0.2
	// DragArea is the global reference area in m^2.
	DragArea = 10.0
)

// Gravity returns the scalar gravitational acceleration g(h) = mu / (R+h)^2
// at radius r (measured from the body center) for a body of parameter mu.
func Gravity(mu, r float64) float64 {
	if r == 0 {
		return 0
	}
	return mu / (r * r)
}

// GravityAccel returns the vector acceleration toward the body center:
// a_g = -(mu / |p|^3) * p. Returns the zero vector when |p| == 0.
func GravityAccel(mu float64, p vecmath.Vec2) vecmath.Vec2 {
	r := p.Length()
	if r == 0 {
		return vecmath.Zero
	}
	return p.Scale(-mu / (r * r * r))
}

// AirDensity returns the exponential-atmosphere density rho(h) in kg/m^3.
// Altitudes below 0 are clamped to the surface value. Altitudes at or above
// KarmanLine return exactly zero (vacuum).
func AirDensity(altitude float64) float64 {
	if altitude < 0 {
		altitude = 0
	}
	if altitude >= KarmanLine {
		return 0
	}
	return Rho0 * math.Exp(-altitude/ScaleHeight)
}

// DragForce returns the scalar drag magnitude F = 1/2 * rho * v^2 * cd * area.
func DragForce(rho, speed, cd, area float64) float64 {
	return 0.5 * rho * speed * speed * cd * area
}

// DragAccel returns the vector drag acceleration opposing velocity:
// a_d = -(F / m) * v_hat, or zero when |v| == 0, m <= 0, or altitude is at
// or above the Karman line.
func DragAccel(altitude float64, v vecmath.Vec2, mass, cd, area float64) vecmath.Vec2 {
	speed := v.Length()
	if speed == 0 || mass <= 0 || altitude >= KarmanLine {
		return vecmath.Zero
	}
	rho := AirDensity(altitude)
	f := DragForce(rho, speed, cd, area)
	return v.Normalize().Scale(-f / mass)
}
