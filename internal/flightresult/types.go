// Package flightresult holds the value types the flight simulator produces
// and the mission/scoring packages consume: snapshots, events, outcomes,
// and the terminal FlightResult. Hoisted into its own package (rather than
// living in internal/flightsim, which produces them) so that
// internal/mission's bonus-challenge predicates can reference FlightResult
// without an import cycle back into the simulator.
package flightresult

import (
	"time"

	"github.com/inkorange/mission-control/internal/orbit"
	"github.com/inkorange/mission-control/internal/vecmath"
)

// Outcome is the terminal classification of a flight. Set exactly once.
type Outcome int

const (
	// Running is the zero value: no outcome has been reached yet.
	Running Outcome = iota
	OrbitAchieved
	MissionComplete
	Crash
	Suborbital
	Aborted
	FuelExhausted
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "Running"
	case OrbitAchieved:
		return "OrbitAchieved"
	case MissionComplete:
		return "MissionComplete"
	case Crash:
		return "Crash"
	case Suborbital:
		return "Suborbital"
	case Aborted:
		return "Aborted"
	case FuelExhausted:
		return "FuelExhausted"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the outcome represents a finished flight.
func (o Outcome) Terminal() bool {
	return o != Running
}

// Success reports whether the outcome counts as a successful flight for
// bonus-challenge and star-rating purposes.
func (o Outcome) Success() bool {
	return o == OrbitAchieved || o == MissionComplete
}

// EventKind enumerates the flight-log event types.
type EventKind int

const (
	Ignition EventKind = iota
	StageSeparation
	FuelDepleted
	BurnStart
	BurnStop
	Abort
	EventOrbitAchieved
)

// FlightEvent is one append-only log entry. Seq is a monotonic emission
// index used to break ties when two events share the same simulation Time
// (e.g. an auto-stage's FuelDepleted and the following Ignition both land
// on the same micro-step boundary).
type FlightEvent struct {
	Time       float64
	Seq        int
	Kind       EventKind
	StageIndex *int
	Label      string
}

// FlightSnapshot is one append-only sample of simulator state. Orbit is
// nil until altitude exceeds the recording threshold.
type FlightSnapshot struct {
	Time             float64
	Altitude         float64
	Speed            float64
	Mass             float64
	Fuel             float64
	ActiveStageIndex int
	Throttle         float64
	PitchAngleDeg    float64
	Position         vecmath.Vec2
	Orbit            *orbit.OrbitalElements
}

// FlightResult is the pure, immutable record produced exactly once when a
// simulator run terminates.
type FlightResult struct {
	Outcome         Outcome
	History         []FlightSnapshot
	Events          []FlightEvent
	FinalOrbit      *orbit.OrbitalElements
	TotalDeltaVUsed float64
	MaxAltitude     float64
	FlightDuration  time.Duration
}
