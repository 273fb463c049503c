// Package orbit derives Keplerian orbital elements from an instantaneous
// position/velocity state, and provides the transfer, stability, and
// target-matching math the flight simulator and scoring package build on.
package orbit

import (
	"math"

	"github.com/inkorange/mission-control/internal/vecmath"
)

// OrbitalElements describes a two-body Keplerian orbit derived from a single
// position/velocity sample. SemiMajorAxis is negative for a hyperbolic
// trajectory. Apoapsis and Periapsis are measured above the body's surface,
// not from its center. Period is +Inf when SemiMajorAxis <= 0.
type OrbitalElements struct {
	SemiMajorAxis float64
	Eccentricity  float64
	Apoapsis      float64
	Periapsis     float64
	Period        float64
}

// Elements computes the orbital elements for position p and velocity v
// around a body of gravitational parameter mu and radius bodyRadius.
func Elements(p, v vecmath.Vec2, mu, bodyRadius float64) OrbitalElements {
	r := p.Length()
	speed := v.Length()

	energy := 0.5*speed*speed - mu/r
	a := -mu / (2 * energy)

	eVec := eccentricityVector(p, v, mu)
	e := eVec.Length()

	apo := a*(1+e) - bodyRadius
	peri := a*(1-e) - bodyRadius

	period := math.Inf(1)
	if a > 0 {
		period = 2 * math.Pi * math.Sqrt(a*a*a/mu)
	}

	return OrbitalElements{
		SemiMajorAxis: a,
		Eccentricity:  e,
		Apoapsis:      apo,
		Periapsis:     peri,
		Period:        period,
	}
}

func eccentricityVector(p, v vecmath.Vec2, mu float64) vecmath.Vec2 {
	vSq := v.Dot(v)
	pDotV := p.Dot(v)
	term := p.Scale(vSq).Sub(v.Scale(pDotV)).Scale(1 / mu)
	return term.Sub(p.Normalize())
}

// TrueAnomaly returns the angle in radians between the eccentricity vector
// (direction of periapsis) and the current position, in [0, 2*pi). It is a
// read-only derived quantity, not used by any termination or scoring logic.
func TrueAnomaly(p, v vecmath.Vec2, elements OrbitalElements, mu float64) float64 {
	if elements.Eccentricity == 0 {
		return 0
	}
	eVec := eccentricityVector(p, v, mu)
	cosNu := eVec.Dot(p) / (eVec.Length() * p.Length())
	cosNu = vecmath.Clamp(cosNu, -1, 1)
	nu := math.Acos(cosNu)
	if p.Dot(v) < 0 {
		nu = 2*math.Pi - nu
	}
	return nu
}

// CircularVelocity returns the speed of a circular orbit at radius r.
func CircularVelocity(mu, r float64) float64 {
	return math.Sqrt(mu / r)
}

// EscapeVelocity returns the local escape speed at radius r.
func EscapeVelocity(mu, r float64) float64 {
	return math.Sqrt(2 * mu / r)
}

// VisViva returns the orbital speed at radius r for an orbit of semi-major
// axis a.
func VisViva(mu, r, a float64) float64 {
	return math.Sqrt(mu * (2/r - 1/a))
}

// HohmannTransfer returns the total delta-v for a two-burn Hohmann transfer
// between circular orbits of radius r1 and r2. Equal radii yield zero.
func HohmannTransfer(mu, r1, r2 float64) float64 {
	if r1 == r2 {
		return 0
	}
	at := (r1 + r2) / 2
	v1 := VisViva(mu, r1, at)
	v2 := VisViva(mu, r2, at)
	burn1 := math.Abs(v1 - CircularVelocity(mu, r1))
	burn2 := math.Abs(CircularVelocity(mu, r2) - v2)
	return burn1 + burn2
}

// IsStable reports whether the orbit is bound and physically maintained:
// eccentricity < 1 and both apoapsis and periapsis are above the surface.
func IsStable(e OrbitalElements) bool {
	return e.Eccentricity < 1 && e.Periapsis > 0 && e.Apoapsis > 0
}

// Bound is an inclusive [Min, Max] interval. Either bound may be infinite to
// mean "unbounded in that direction".
type Bound struct {
	Min float64
	Max float64
}

// Contains reports whether x lies within the bound, inclusive.
func (b Bound) Contains(x float64) bool {
	return x >= b.Min && x <= b.Max
}

// TargetOrbit describes the acceptable periapsis/apoapsis window for a
// mission's orbital target.
type TargetOrbit struct {
	Periapsis Bound
	Apoapsis  Bound
}

// MatchesTarget reports whether e's periapsis and apoapsis both lie within
// target's bounds.
func MatchesTarget(e OrbitalElements, target TargetOrbit) bool {
	return target.Periapsis.Contains(e.Periapsis) && target.Apoapsis.Contains(e.Apoapsis)
}
