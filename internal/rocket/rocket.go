// Package rocket holds the frozen vehicle configuration types the flight
// simulator consumes (EngineDef, StageConfig, RocketConfig) and the mutable
// per-stage runtime state (StageRuntime) the simulator derives from them.
package rocket

import (
	"fmt"

	"github.com/brunoga/deep"

	"github.com/inkorange/mission-control/internal/propulsion"
)

// EngineDef describes one engine model. Frozen once constructed.
type EngineDef struct {
	ID              string
	ThrustSeaLevel  float64
	ThrustVacuum    float64
	IspSeaLevel     float64
	IspVacuum       float64
	DryMass         float64
	Throttleable    bool
	MinThrottle     float64
	Restartable     bool
}

// StageConfig describes one stage of a rocket: the engines mounted on it
// (by id and count), its propellant load, and its structural mass. Frozen
// once constructed.
type StageConfig struct {
	Engines         []EngineCount
	FuelMass        float64
	StructuralMass  float64
}

// EngineCount pairs an engine id with how many of that engine are mounted.
type EngineCount struct {
	EngineID string
	Count    int
}

// Payload describes the non-propulsive cargo carried above the top stage.
type Payload struct {
	Name string
	Mass float64
}

// RocketConfig is the frozen, fully-resolved vehicle configuration the
// simulator is constructed from. Stages[0] is the bottom stage, ignited
// first.
type RocketConfig struct {
	Stages       []StageConfig
	Payload      Payload
	TotalCost    float64
	TotalMass    float64
	TotalDryMass float64
}

// StageRuntime is the mutable per-stage state the simulator derives once at
// construction and mutates as fuel burns and stages separate.
type StageRuntime struct {
	Engines            []EngineCount
	FuelRemaining      float64
	FuelMass           float64
	DryMass            float64
	TotalThrustVacuum  float64
	TotalThrustSeaLvl  float64
	IspVacuum          float64
	IspSeaLevel        float64
	MassFlowRateVacRef float64
}

// InvalidConfig is returned by NewRocketConfig when the vehicle is
// physically nonsensical: an engine id does not resolve, a stage has
// engines but zero wet mass, or any mass is negative.
type InvalidConfig struct {
	Reason string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("invalid rocket config: %s", e.Reason)
}

// NewRocketConfig validates stages and payload against the given engine
// catalog (id -> EngineDef) and returns a deep-copied, frozen RocketConfig.
// The deep copy ensures the caller's own StageConfig/Payload values can be
// mutated afterward without affecting the frozen config the simulator holds.
func NewRocketConfig(stages []StageConfig, payload Payload, totalCost float64, engines map[string]EngineDef) (*RocketConfig, error) {
	if payload.Mass < 0 {
		return nil, &InvalidConfig{Reason: "payload mass negative"}
	}
	if len(stages) == 0 {
		return nil, &InvalidConfig{Reason: "no stages"}
	}

	var totalMass, totalDry float64
	for i, s := range stages {
		if s.FuelMass < 0 || s.StructuralMass < 0 {
			return nil, &InvalidConfig{Reason: fmt.Sprintf("stage %d has negative mass", i)}
		}
		var engineDryMass float64
		for _, ec := range s.Engines {
			def, ok := engines[ec.EngineID]
			if !ok {
				return nil, &InvalidConfig{Reason: fmt.Sprintf("stage %d references unresolved engine id %q", i, ec.EngineID)}
			}
			if ec.Count <= 0 {
				return nil, &InvalidConfig{Reason: fmt.Sprintf("stage %d has non-positive engine count for %q", i, ec.EngineID)}
			}
			engineDryMass += def.DryMass * float64(ec.Count)
		}
		wet := s.FuelMass + s.StructuralMass + engineDryMass
		if wet <= 0 && len(s.Engines) > 0 {
			return nil, &InvalidConfig{Reason: fmt.Sprintf("stage %d has engines but zero wet mass", i)}
		}
		totalMass += wet
		totalDry += s.StructuralMass + engineDryMass
	}
	totalMass += payload.Mass
	totalDry += payload.Mass

	cfg := RocketConfig{
		Stages:       stages,
		Payload:      payload,
		TotalCost:    totalCost,
		TotalMass:    totalMass,
		TotalDryMass: totalDry,
	}
	frozen, err := deep.Copy(cfg)
	if err != nil {
		return nil, fmt.Errorf("freezing rocket config: %w", err)
	}
	return &frozen, nil
}

// DeriveStageRuntimes builds the mutable per-stage runtime state for every
// stage in cfg, resolving each engine reference against engines.
func DeriveStageRuntimes(cfg *RocketConfig, engines map[string]EngineDef) ([]StageRuntime, error) {
	runtimes := make([]StageRuntime, 0, len(cfg.Stages))
	for i, s := range cfg.Stages {
		var dryMass, thrustVac, thrustSL, ispVacWeighted, ispSLWeighted float64
		for _, ec := range s.Engines {
			def, ok := engines[ec.EngineID]
			if !ok {
				return nil, fmt.Errorf("stage %d references unresolved engine id %q", i, ec.EngineID)
			}
			n := float64(ec.Count)
			dryMass += def.DryMass * n
			thrustVac += def.ThrustVacuum * n
			thrustSL += def.ThrustSeaLevel * n
			ispVacWeighted += def.IspVacuum * def.ThrustVacuum * n
			ispSLWeighted += def.IspSeaLevel * def.ThrustSeaLevel * n
		}
		ispVac := 0.0
		if thrustVac > 0 {
			ispVac = ispVacWeighted / thrustVac
		}
		ispSL := 0.0
		if thrustSL > 0 {
			ispSL = ispSLWeighted / thrustSL
		}
		runtimes = append(runtimes, StageRuntime{
			Engines:            s.Engines,
			FuelRemaining:      s.FuelMass,
			FuelMass:           s.FuelMass,
			DryMass:            dryMass + s.StructuralMass,
			TotalThrustVacuum:  thrustVac,
			TotalThrustSeaLvl:  thrustSL,
			IspVacuum:          ispVac,
			IspSeaLevel:        ispSL,
			MassFlowRateVacRef: propulsion.MassFlowRate(thrustVac, ispVac),
		})
	}
	return runtimes, nil
}
