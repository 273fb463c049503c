package integrator

import (
	"math"
	"testing"

	"github.com/inkorange/mission-control/internal/vecmath"
)

const muEarth = 3.986004418e14
const rEarth = 6.371e6

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestAccelZeroAtOrigin(t *testing.T) {
	state := State{Position: vecmath.Zero, Velocity: vecmath.Vec2{X: 100}, Mass: 1000}
	a := Accel(state, vecmath.Zero, Params{Mu: muEarth, BodyRadius: rEarth})
	if a != vecmath.Zero {
		t.Errorf("Accel at r=0 = %v, want zero", a)
	}
}

func TestAccelZeroMassIsZero(t *testing.T) {
	state := State{Position: vecmath.Vec2{X: rEarth}, Velocity: vecmath.Zero, Mass: 0}
	a := Accel(state, vecmath.Vec2{X: 1000}, Params{Mu: muEarth, BodyRadius: rEarth})
	if a != vecmath.Zero {
		t.Errorf("Accel with mass<=0 = %v, want zero", a)
	}
}

func TestAccelThrustAddsDirectly(t *testing.T) {
	// High enough altitude that drag is zero, isolating gravity + thrust.
	state := State{Position: vecmath.Vec2{X: rEarth + 200000}, Velocity: vecmath.Zero, Mass: 1000}
	env := Params{Mu: muEarth, BodyRadius: rEarth}
	withoutThrust := Accel(state, vecmath.Zero, env)
	thrust := vecmath.Vec2{X: 0, Y: 5000}
	withThrust := Accel(state, thrust, env)
	got := withThrust.Sub(withoutThrust)
	want := thrust.Scale(1 / state.Mass)
	if !almostEqual(got.X, want.X, 1e-9) || !almostEqual(got.Y, want.Y, 1e-9) {
		t.Errorf("thrust contribution = %v, want %v", got, want)
	}
}

// TestEnergyConservationInVacuum verifies that RK4 integration of a coasting
// (no thrust, no drag) orbit conserves specific orbital energy to a tight
// tolerance over many steps.
func TestEnergyConservationInVacuum(t *testing.T) {
	env := Params{Mu: muEarth, BodyRadius: rEarth}
	r := rEarth + 400000
	v := math.Sqrt(muEarth / r)
	state := State{
		Position: vecmath.Vec2{X: r, Y: 0},
		Velocity: vecmath.Vec2{X: 0, Y: v},
		Mass:     1000,
	}

	energyAt := func(s State) float64 {
		speed := s.Velocity.Length()
		return 0.5*speed*speed - muEarth/s.Position.Length()
	}

	initialEnergy := energyAt(state)

	dt := 0.5
	for i := 0; i < 5000; i++ {
		state = Step(state, vecmath.Zero, dt, env)
	}

	finalEnergy := energyAt(state)
	relError := math.Abs((finalEnergy - initialEnergy) / initialEnergy)
	if relError > 1e-6 {
		t.Errorf("specific energy drifted by relative %v over 5000 steps", relError)
	}
}

func TestStepMassUnchanged(t *testing.T) {
	env := Params{Mu: muEarth, BodyRadius: rEarth}
	state := State{Position: vecmath.Vec2{X: rEarth + 400000}, Velocity: vecmath.Vec2{Y: 7700}, Mass: 1234}
	next := Step(state, vecmath.Zero, 0.01, env)
	if next.Mass != state.Mass {
		t.Errorf("Step changed mass: %v -> %v", state.Mass, next.Mass)
	}
}

func TestStepAdvancesPosition(t *testing.T) {
	env := Params{Mu: muEarth, BodyRadius: rEarth}
	state := State{Position: vecmath.Vec2{X: rEarth + 400000}, Velocity: vecmath.Vec2{Y: 7700}, Mass: 1000}
	next := Step(state, vecmath.Zero, 0.01, env)
	if next.Position == state.Position {
		t.Error("Step did not change position")
	}
}
