package driver

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/inkorange/mission-control/internal/flightresult"
	"github.com/inkorange/mission-control/internal/flightsim"
	"github.com/inkorange/mission-control/internal/mission"
	"github.com/inkorange/mission-control/internal/rocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testEngines() map[string]rocket.EngineDef {
	return map[string]rocket.EngineDef{
		"booster": {
			ID: "booster", ThrustSeaLevel: 7_000_000, ThrustVacuum: 7_800_000,
			IspSeaLevel: 282, IspVacuum: 311, DryMass: 25_000,
			Throttleable: true, MinThrottle: 0.4,
		},
	}
}

func buildSim(t *testing.T) (*flightsim.Simulator, *mission.Mission) {
	t.Helper()
	stages := []rocket.StageConfig{
		{Engines: []rocket.EngineCount{{EngineID: "booster", Count: 1}}, FuelMass: 40000, StructuralMass: 3000},
	}
	cfg, err := rocket.NewRocketConfig(stages, rocket.Payload{Mass: 500}, 10_000_000, testEngines())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := mission.NewMission(mission.Mission{ID: "test", Tier: 1, Budget: 10_000_000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim, err := flightsim.New(cfg, m, testEngines(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sim, m
}

func TestRunToCompletionScoresExactlyOnce(t *testing.T) {
	sim, m := buildSim(t)
	sim.SetThrottle(1.0)
	sim.SetPitch(90)

	d := RunToCompletion(sim, m, 10_000_000, "test-session", 100*time.Millisecond, 5000, testLogger())

	if sim.Running() {
		t.Fatal("expected the simulator to have terminated within 5000 ticks")
	}
	result, ok := d.Result()
	if !ok {
		t.Fatal("expected a result after termination")
	}
	if result.Outcome == flightresult.Running {
		t.Error("result outcome should not be Running after termination")
	}
	_, scoredOk := d.Score()
	if !scoredOk {
		t.Error("expected a score after termination")
	}
}

func TestTickCapsAtDtRealCeiling(t *testing.T) {
	sim, m := buildSim(t)
	sim.Start()
	d := New(sim, m, 10_000_000, "test-session", testLogger())

	before := sim.CurrentState().Time
	d.Tick(context.Background(), 10*time.Second)
	after := sim.CurrentState().Time

	// Even though we asked for a 10s tick, the driver must cap dt_real at
	// 0.1s before it ever reaches the simulator.
	if after-before > flightsim.DtRealCap+1e-9 {
		t.Errorf("tick advanced simulation time by %v, want <= %v", after-before, flightsim.DtRealCap)
	}
}

func TestScoreNotAvailableWhileRunning(t *testing.T) {
	sim, m := buildSim(t)
	sim.Start()
	d := New(sim, m, 10_000_000, "test-session", testLogger())
	d.Tick(context.Background(), 10*time.Millisecond)

	if !sim.Running() {
		t.Skip("simulator terminated unexpectedly fast")
	}
	_, ok := d.Score()
	if ok {
		t.Error("expected no score while the simulator is still running")
	}
}
