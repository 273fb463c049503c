// Package integrator advances a rocket's position, velocity, and mass one
// micro-step at a time using fourth-order Runge-Kutta integration over the
// combined gravity, drag, and thrust acceleration field.
package integrator

import (
	"github.com/inkorange/mission-control/internal/environment"
	"github.com/inkorange/mission-control/internal/vecmath"
)

// State is the integrable state vector: position, velocity, and mass. Mass
// is not touched by Step; the caller applies fuel burn before calling it.
type State struct {
	Position vecmath.Vec2
	Velocity vecmath.Vec2
	Mass     float64
}

// Params holds the environment constants Accel needs beyond the state
// itself.
type Params struct {
	Mu         float64
	BodyRadius float64
}

// Accel computes the combined gravity, atmospheric drag, and thrust
// acceleration at the given state, per the reference five-step derivation.
// Returns the zero vector when r == 0 or mass <= 0.
func Accel(state State, thrust vecmath.Vec2, env Params) vecmath.Vec2 {
	r := state.Position.Length()
	if r == 0 || state.Mass <= 0 {
		return vecmath.Zero
	}

	aGrav := environment.GravityAccel(env.Mu, state.Position)

	altitude := r - env.BodyRadius
	aDrag := environment.DragAccel(altitude, state.Velocity, state.Mass, environment.DragCd, environment.DragArea)

	aThrust := thrust.Scale(1 / state.Mass)

	return aGrav.Add(aDrag).Add(aThrust)
}

type derivative struct {
	dPos vecmath.Vec2
	dVel vecmath.Vec2
}

func evaluate(state State, thrust vecmath.Vec2, env Params, dt float64, d derivative) derivative {
	s := State{
		Position: state.Position.Add(d.dPos.Scale(dt)),
		Velocity: state.Velocity.Add(d.dVel.Scale(dt)),
		Mass:     state.Mass,
	}
	return derivative{
		dPos: s.Velocity,
		dVel: Accel(s, thrust, env),
	}
}

// Step performs one RK4 integration step of size dt, holding thrust and
// mass fixed over the step. Mass in the returned State is unchanged from
// the input.
func Step(state State, thrust vecmath.Vec2, dt float64, env Params) State {
	zero := derivative{}
	k1 := evaluate(state, thrust, env, 0, zero)
	k2 := evaluate(state, thrust, env, dt*0.5, k1)
	k3 := evaluate(state, thrust, env, dt*0.5, k2)
	k4 := evaluate(state, thrust, env, dt, k3)

	dPos := k1.dPos.Add(k2.dPos.Scale(2)).Add(k3.dPos.Scale(2)).Add(k4.dPos).Scale(dt / 6)
	dVel := k1.dVel.Add(k2.dVel.Scale(2)).Add(k3.dVel.Scale(2)).Add(k4.dVel).Scale(dt / 6)

	return State{
		Position: state.Position.Add(dPos),
		Velocity: state.Velocity.Add(dVel),
		Mass:     state.Mass,
	}
}
