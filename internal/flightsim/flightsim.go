// Package flightsim implements the staged-vehicle flight simulator: a
// fixed-timestep physics loop over gravity, drag, and thrust, a discrete
// stage machine with fuel depletion and separation, and the termination
// classifier that decides when a flight is over and why.
//
// The simulator is single-threaded and cooperative, mirroring the rolling
// keyframe cache's append-only history discipline: nothing but the
// simulator itself may append an event or a snapshot, and once appended
// neither is ever mutated.
package flightsim

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/inkorange/mission-control/internal/environment"
	"github.com/inkorange/mission-control/internal/flightresult"
	"github.com/inkorange/mission-control/internal/integrator"
	"github.com/inkorange/mission-control/internal/mission"
	"github.com/inkorange/mission-control/internal/orbit"
	"github.com/inkorange/mission-control/internal/propulsion"
	"github.com/inkorange/mission-control/internal/rocket"
	"github.com/inkorange/mission-control/internal/vecmath"
)

// Physical and simulation constants (spec §6 "wire-level" constants).
const (
	MuEarth              = 3.986004418e14
	REarth               = 6.371e6
	SurfaceRotationSpeed = 465.1
	FixedDT              = 0.01
	MinTimeScale         = 1.0
	MaxTimeScale         = 100.0
	DtRealCap            = 0.1
	KarmanLine           = environment.KarmanLine
	SnapshotOrbitAlt     = 50_000.0
)

// SimState is the instantaneous physical state of the vehicle.
type SimState struct {
	Position vecmath.Vec2
	Velocity vecmath.Vec2
	Mass     float64
	Time     float64
	Altitude float64
	Fuel     float64
}

// PitchProgramStep is one entry in an optional scripted-ascent program: once
// altitude reaches AltitudeThreshold, the simulator holds pitch at
// TargetPitchDeg until the next step's threshold is crossed.
type PitchProgramStep struct {
	AltitudeThreshold float64
	TargetPitchDeg    float64
}

// Simulator drives one flight from ignition to a terminal Outcome. It is
// not safe for concurrent use — mu only guards reads of published state
// (History/Events/CurrentOutcome) against a driver goroutine racing a
// concurrent HTTP handler; ticks themselves must come from one goroutine.
type Simulator struct {
	mu sync.RWMutex

	rocketCfg *rocket.RocketConfig
	mission   *mission.Mission
	engines   map[string]rocket.EngineDef
	stages    []rocket.StageRuntime

	state            SimState
	activeStageIndex int
	throttle         float64
	pitchDeg         float64
	timeScale        float64

	running bool
	outcome flightresult.Outcome

	events     []flightresult.FlightEvent
	eventSeq   int
	history    []flightresult.FlightSnapshot
	totalDvUsed float64

	pitchProgram []PitchProgramStep

	logger *slog.Logger
}

// New constructs a Simulator for the given rocket configuration and
// mission, deriving stage runtimes and setting up the initial state per
// spec §4.5. cfg and m must already be frozen (rocket.NewRocketConfig /
// mission.NewMission).
func New(cfg *rocket.RocketConfig, m *mission.Mission, engines map[string]rocket.EngineDef, logger *slog.Logger) (*Simulator, error) {
	stages, err := rocket.DeriveStageRuntimes(cfg, engines)
	if err != nil {
		return nil, fmt.Errorf("deriving stage runtimes: %w", err)
	}

	sim := &Simulator{
		rocketCfg: cfg,
		mission:   m,
		engines:   engines,
		stages:    stages,
		state: SimState{
			Position: vecmath.Vec2{X: REarth, Y: 0},
			Velocity: vecmath.Vec2{X: 0, Y: SurfaceRotationSpeed},
			Mass:     cfg.TotalMass,
			Time:     0,
			Altitude: 0,
			Fuel:     stages[0].FuelRemaining,
		},
		activeStageIndex: 0,
		throttle:         1.0,
		pitchDeg:         0,
		timeScale:        1.0,
		logger:           logger,
	}

	sim.emitEvent(0, flightresult.Ignition, intPtr(0), "ignition: stage 0")
	sim.recordSnapshot()
	return sim, nil
}

func intPtr(i int) *int { return &i }

// PitchProgram installs an optional altitude-triggered pitch schedule. The
// tick loop consults it each micro-step in place of requiring the driver to
// call SetPitch every frame. Passing an empty slice clears any existing
// program.
func (s *Simulator) PitchProgram(steps []PitchProgramStep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pitchProgram = steps
}

func (s *Simulator) applyPitchProgram() {
	if len(s.pitchProgram) == 0 {
		return
	}
	target := s.pitchDeg
	for _, step := range s.pitchProgram {
		if s.state.Altitude >= step.AltitudeThreshold {
			target = step.TargetPitchDeg
		}
	}
	s.pitchDeg = vecmath.Clamp(target, 0, 90)
}

// Start transitions the simulator into the running state. Idempotent.
func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != flightresult.Running {
		return
	}
	s.running = true
}

// SetThrottle clamps x to the active stage's throttle range: [min_throttle,
// 1] when its primary engine is throttleable, otherwise snapped to 0 or 1
// by sign, per spec §4.5.
func (s *Simulator) SetThrottle(x float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if math.IsNaN(x) {
		x = 0
	}
	throttleable, minThrottle := s.activeStageThrottleable(s.engines)
	if throttleable {
		s.throttle = vecmath.Clamp(x, minThrottle, 1)
		return
	}
	if x <= 0 {
		s.throttle = 0
	} else {
		s.throttle = 1
	}
}

// SetPitch clamps deg to [0, 90]: 0 is straight up (local vertical), 90 is
// horizontal prograde.
func (s *Simulator) SetPitch(deg float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if math.IsNaN(deg) {
		deg = 0
	}
	s.pitchDeg = vecmath.Clamp(deg, 0, 90)
}

// SetTimeScale clamps s (the requested acceleration factor) to [1, 100].
func (s *Simulator) SetTimeScale(scale float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if math.IsNaN(scale) || scale <= 0 {
		scale = MinTimeScale
	}
	s.timeScale = vecmath.Clamp(scale, MinTimeScale, MaxTimeScale)
}

// TriggerStageSeparation discards the active stage (dry mass + remaining
// fuel) and advances to the next, or is a no-op if none remains.
func (s *Simulator) TriggerStageSeparation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.separateStage("manual stage separation")
}

// separateStage performs the shared separation logic used by both manual
// and auto-staging. Caller must hold s.mu.
func (s *Simulator) separateStage(label string) bool {
	if s.activeStageIndex+1 >= len(s.stages) {
		return false
	}
	discarded := s.stages[s.activeStageIndex]
	discardedMass := discarded.DryMass + discarded.FuelRemaining
	s.state.Mass -= discardedMass

	stageIdx := s.activeStageIndex
	s.emitEvent(s.state.Time, flightresult.StageSeparation, intPtr(stageIdx), label)

	s.activeStageIndex++
	s.state.Fuel = s.stages[s.activeStageIndex].FuelRemaining
	s.emitEvent(s.state.Time, flightresult.Ignition, intPtr(s.activeStageIndex), fmt.Sprintf("ignition: stage %d", s.activeStageIndex))
	return true
}

// Abort immediately sets the outcome to Aborted and stops the simulator.
func (s *Simulator) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != flightresult.Running {
		return
	}
	s.setOutcome(flightresult.Aborted)
	s.emitEvent(s.state.Time, flightresult.Abort, nil, "aborted")
}

// setOutcome records the terminal outcome and clears the running flag.
// Caller must hold s.mu.
func (s *Simulator) setOutcome(o flightresult.Outcome) {
	s.outcome = o
	s.running = false
}

func (s *Simulator) emitEvent(t float64, kind flightresult.EventKind, stageIndex *int, label string) {
	s.events = append(s.events, flightresult.FlightEvent{
		Time:       t,
		Seq:        s.eventSeq,
		Kind:       kind,
		StageIndex: stageIndex,
		Label:      label,
	})
	s.eventSeq++
}

func (s *Simulator) recordSnapshot() {
	snap := flightresult.FlightSnapshot{
		Time:             s.state.Time,
		Altitude:         s.state.Altitude,
		Speed:            s.state.Velocity.Length(),
		Mass:             s.state.Mass,
		Fuel:             s.state.Fuel,
		ActiveStageIndex: s.activeStageIndex,
		Throttle:         s.throttle,
		PitchAngleDeg:    s.pitchDeg,
		Position:         s.state.Position,
	}
	if s.state.Altitude > SnapshotOrbitAlt {
		el := orbit.Elements(s.state.Position, s.state.Velocity, MuEarth, REarth)
		snap.Orbit = &el
	}
	s.history = append(s.history, snap)
}

// Tick advances the simulator by dtReal seconds of real (wall-clock) time,
// scaled by the current time_scale, per spec §4.5. It is a no-op once the
// simulator has terminated.
func (s *Simulator) Tick(dtReal float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome != flightresult.Running || !s.running {
		return
	}
	if dtReal > DtRealCap {
		dtReal = DtRealCap
	}
	if dtReal < 0 {
		dtReal = 0
	}

	dtSim := dtReal * s.timeScale
	nSteps := int(math.Ceil(dtSim / FixedDT))
	if nSteps < 1 {
		nSteps = 1
	}
	actualDt := dtSim / float64(nSteps)

	for i := 0; i < nSteps; i++ {
		s.physicsStep(actualDt)
		if s.outcome != flightresult.Running {
			break
		}
	}
	s.recordSnapshot()
}

// activeStageThrottleable resolves the throttleable/min-throttle policy for
// the active stage from the raw StageConfig (engine ids), since
// StageRuntime itself doesn't retain per-engine throttle metadata beyond
// the aggregates computed in DeriveStageRuntimes.
func (s *Simulator) activeStageThrottleable(engines map[string]rocket.EngineDef) (throttleable bool, minThrottle float64) {
	cfgStage := s.rocketCfg.Stages[s.activeStageIndex]
	if len(cfgStage.Engines) == 0 {
		return false, 1
	}
	throttleable = true
	minThrottle = 0
	for _, ec := range cfgStage.Engines {
		def, ok := engines[ec.EngineID]
		if !ok || !def.Throttleable {
			throttleable = false
		}
		if ok && def.MinThrottle > minThrottle {
			minThrottle = def.MinThrottle
		}
	}
	return throttleable, minThrottle
}

// physicsStep performs one fixed-size micro-step: thrust, fuel burn,
// auto-staging, RK4 integration, delta-v accounting, and termination
// classification, per spec §4.5.
func (s *Simulator) physicsStep(dt float64) {
	s.applyPitchProgram()

	active := &s.stages[s.activeStageIndex]

	f := math.Min(1, s.state.Altitude/100_000)
	effThrustVac := active.TotalThrustVacuum
	effThrustSL := active.TotalThrustSeaLvl
	effectiveThrust := effThrustSL + f*(effThrustVac-effThrustSL)
	effectiveIsp := active.IspSeaLevel + f*(active.IspVacuum-active.IspSeaLevel)

	var thrustForce vecmath.Vec2
	if active.FuelRemaining > 0 && s.throttle > 0 {
		currentThrust := effectiveThrust * s.throttle
		radial := s.state.Position.Normalize()
		thrustDir := radial.Rotate(-vecmath.DegToRad(s.pitchDeg))
		thrustForce = thrustDir.Scale(currentThrust)

		mdot := propulsion.MassFlowRate(currentThrust, effectiveIsp)
		consumed := math.Min(mdot*dt, active.FuelRemaining)
		active.FuelRemaining -= consumed
		s.state.Mass -= consumed
		s.state.Fuel = active.FuelRemaining
	}

	if active.FuelRemaining <= 0 && s.activeStageIndex+1 < len(s.stages) {
		s.emitEvent(s.state.Time, flightresult.FuelDepleted, intPtr(s.activeStageIndex), "fuel depleted")
		s.separateStage(fmt.Sprintf("auto stage separation: stage %d", s.activeStageIndex))
		active = &s.stages[s.activeStageIndex]
	}

	prevSpeed := s.state.Velocity.Length()

	env := integrator.Params{Mu: MuEarth, BodyRadius: REarth}
	next := integrator.Step(integrator.State{
		Position: s.state.Position,
		Velocity: s.state.Velocity,
		Mass:     s.state.Mass,
	}, thrustForce, dt, env)

	s.state.Position = next.Position
	s.state.Velocity = next.Velocity
	s.state.Time += dt
	s.state.Altitude = s.state.Position.Length() - REarth

	newSpeed := s.state.Velocity.Length()
	s.totalDvUsed += math.Abs(newSpeed - prevSpeed)

	s.classifyTermination()
}

// classifyTermination applies the ordered termination classifier of spec
// §4.5. Caller must hold s.mu.
func (s *Simulator) classifyTermination() {
	if s.state.Altitude < 0 {
		s.setOutcome(flightresult.Crash)
		return
	}

	target := s.missionTarget()

	if target != nil && target.Kind == mission.Suborbital && s.state.Altitude >= target.Apoapsis.Min {
		s.setOutcome(flightresult.MissionComplete)
		s.emitEvent(s.state.Time, flightresult.EventOrbitAchieved, nil, "suborbital altitude reached")
		return
	}

	if s.state.Altitude > 100_000 {
		el := orbit.Elements(s.state.Position, s.state.Velocity, MuEarth, REarth)
		stable := orbit.IsStable(el)

		if stable && target != nil && target.Kind == mission.Orbital {
			if orbit.MatchesTarget(el, orbit.TargetOrbit{
				Periapsis: orbit.Bound(target.Periapsis),
				Apoapsis:  orbit.Bound(target.Apoapsis),
			}) {
				s.setOutcome(flightresult.MissionComplete)
				s.emitEvent(s.state.Time, flightresult.EventOrbitAchieved, nil, "target orbit achieved")
				return
			}
		} else if stable && target == nil && el.Periapsis > 100_000 {
			s.setOutcome(flightresult.OrbitAchieved)
			s.emitEvent(s.state.Time, flightresult.EventOrbitAchieved, nil, "stable orbit achieved")
			return
		}

		fuelLeft := s.remainingFuel()
		if fuelLeft <= 0 && el.Periapsis < 0 {
			s.setOutcome(flightresult.Suborbital)
			return
		}
	}
}

func (s *Simulator) remainingFuel() float64 {
	var total float64
	for i := s.activeStageIndex; i < len(s.stages); i++ {
		total += s.stages[i].FuelRemaining
	}
	return total
}

func (s *Simulator) missionTarget() *mission.OrbitalTarget {
	if s.mission == nil {
		return nil
	}
	return s.mission.Requirements.TargetOrbit
}

// CurrentState returns a copy of the current physical state.
func (s *Simulator) CurrentState() SimState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// RocketConfig returns the frozen vehicle configuration this simulator was
// constructed from.
func (s *Simulator) RocketConfig() *rocket.RocketConfig {
	return s.rocketCfg
}

// CurrentOrbit computes the orbital elements of the current state, or nil
// below the recording threshold.
func (s *Simulator) CurrentOrbit() *orbit.OrbitalElements {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Altitude <= SnapshotOrbitAlt {
		return nil
	}
	el := orbit.Elements(s.state.Position, s.state.Velocity, MuEarth, REarth)
	return &el
}

// ActiveStageIndex returns the index of the currently active stage.
func (s *Simulator) ActiveStageIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeStageIndex
}

// Events returns a copy of the append-only event log.
func (s *Simulator) Events() []flightresult.FlightEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]flightresult.FlightEvent, len(s.events))
	copy(out, s.events)
	return out
}

// History returns a copy of the append-only snapshot history.
func (s *Simulator) History() []flightresult.FlightSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]flightresult.FlightSnapshot, len(s.history))
	copy(out, s.history)
	return out
}

// Running reports whether the simulator is currently accepting ticks.
func (s *Simulator) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// CurrentOutcome returns the terminal outcome, or the Running zero value if
// the flight has not yet ended.
func (s *Simulator) CurrentOutcome() flightresult.Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

// Result assembles the pure FlightResult once the simulator has
// terminated. Calling it before termination still returns a snapshot of
// history-so-far, tagged with the Running outcome.
func (s *Simulator) Result() flightresult.FlightResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var maxAlt float64
	for _, snap := range s.history {
		if snap.Altitude > maxAlt {
			maxAlt = snap.Altitude
		}
	}

	var finalOrbit *orbit.OrbitalElements
	if len(s.history) > 0 {
		finalOrbit = s.history[len(s.history)-1].Orbit
	}

	history := make([]flightresult.FlightSnapshot, len(s.history))
	copy(history, s.history)
	events := make([]flightresult.FlightEvent, len(s.events))
	copy(events, s.events)

	return flightresult.FlightResult{
		Outcome:         s.outcome,
		History:         history,
		Events:          events,
		FinalOrbit:      finalOrbit,
		TotalDeltaVUsed: s.totalDvUsed,
		MaxAltitude:     maxAlt,
		FlightDuration:  time.Duration(s.state.Time * float64(time.Second)),
	}
}
