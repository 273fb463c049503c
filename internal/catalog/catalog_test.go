package catalog

import (
	"log/slog"
	"math"
	"os"
	"testing"

	"github.com/inkorange/mission-control/internal/mission"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestLoadDefaultEngines(t *testing.T) {
	engines, err := LoadDefaultEngines(testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(engines) == 0 {
		t.Fatal("expected at least one engine in the default catalog")
	}
	for id, e := range engines {
		if e.ID != id {
			t.Errorf("engine map key %q does not match EngineDef.ID %q", id, e.ID)
		}
	}
}

func TestParseEnginesSkipsMalformed(t *testing.T) {
	data := []byte(`[
		{"id": "good", "thrust_vacuum": 1000, "dry_mass": 10, "min_throttle": 0.5},
		{"id": "", "dry_mass": 10},
		{"id": "no-mass", "dry_mass": 0},
		{"id": "bad-throttle", "dry_mass": 10, "min_throttle": 2.0}
	]`)
	engines, err := ParseEngines(data, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(engines) != 1 {
		t.Errorf("len(engines) = %d, want 1 (only the valid entry survives)", len(engines))
	}
	if _, ok := engines["good"]; !ok {
		t.Error("expected the valid entry to survive parsing")
	}
}

func TestLoadDefaultMissions(t *testing.T) {
	missions, err := LoadDefaultMissions(testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missions) == 0 {
		t.Fatal("expected at least one mission in the default catalog")
	}
}

func TestParseMissionsSuborbitalTagging(t *testing.T) {
	data := []byte(`[
		{"id": "hop", "tier": 1, "suborbital_altitude": 100000, "max_budget": 1000, "budget": 1000}
	]`)
	missions, err := ParseMissions(data, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missions) != 1 {
		t.Fatalf("len(missions) = %d, want 1", len(missions))
	}
	target := missions[0].Requirements.TargetOrbit
	if target == nil || target.Kind != mission.Suborbital {
		t.Fatalf("expected suborbital target, got %+v", target)
	}
	if target.Apoapsis.Min != 100000 {
		t.Errorf("Apoapsis.Min = %v, want 100000", target.Apoapsis.Min)
	}
	if !math.IsInf(target.Periapsis.Min, -1) {
		t.Error("expected unbounded-below periapsis for suborbital target")
	}
}

func TestParseMissionsOrbitalTagging(t *testing.T) {
	data := []byte(`[
		{"id": "leo", "tier": 2, "target_orbit": {"periapsis_min": 300000, "periapsis_max": 500000, "apoapsis_min": 300000, "apoapsis_max": 500000}, "max_budget": 1000, "budget": 1000}
	]`)
	missions, err := ParseMissions(data, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target := missions[0].Requirements.TargetOrbit
	if target == nil || target.Kind != mission.Orbital {
		t.Fatalf("expected orbital target, got %+v", target)
	}
}

func TestParseMissionsSkipsBlankID(t *testing.T) {
	data := []byte(`[{"id": "", "tier": 1}]`)
	missions, err := ParseMissions(data, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missions) != 0 {
		t.Errorf("expected blank-id mission to be skipped, got %d missions", len(missions))
	}
}

func TestParseMissionsSkipsInvalidTier(t *testing.T) {
	data := []byte(`[{"id": "bad-tier", "tier": 99, "max_budget": 1, "budget": 1}]`)
	missions, err := ParseMissions(data, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missions) != 0 {
		t.Errorf("expected out-of-range tier mission to be skipped, got %d missions", len(missions))
	}
}
