// Package catalog turns the default engine and mission datasets — bundled
// into the binary via go:embed — into the frozen rocket.EngineDef and
// mission.Mission values the simulator accepts. There is no network fetch
// here: the simulation core never talks to the network, and the datasets
// this package ships are the only ones a server needs to boot with a
// working set of engines and missions.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/inkorange/mission-control/internal/mission"
	"github.com/inkorange/mission-control/internal/rocket"
)

//go:embed data/engines.json data/missions.json
var defaultData embed.FS

type engineJSON struct {
	ID             string  `json:"id"`
	ThrustSeaLevel float64 `json:"thrust_sea_level"`
	ThrustVacuum   float64 `json:"thrust_vacuum"`
	IspSeaLevel    float64 `json:"isp_sea_level"`
	IspVacuum      float64 `json:"isp_vacuum"`
	DryMass        float64 `json:"dry_mass"`
	Throttleable   bool    `json:"throttleable"`
	MinThrottle    float64 `json:"min_throttle"`
	Restartable    bool    `json:"restartable"`
}

type orbitJSON struct {
	PeriapsisMin float64 `json:"periapsis_min"`
	PeriapsisMax float64 `json:"periapsis_max"`
	ApoapsisMin  float64 `json:"apoapsis_min"`
	ApoapsisMax  float64 `json:"apoapsis_max"`
}

type bonusJSON struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	StarValue   int     `json:"star_value"`
}

type missionJSON struct {
	ID                  string      `json:"id"`
	Tier                int         `json:"tier"`
	TargetOrbit         *orbitJSON  `json:"target_orbit"`
	SuborbitalAltitude  *float64    `json:"suborbital_altitude"`
	MaxBudget           float64     `json:"max_budget"`
	Budget              float64     `json:"budget"`
	BonusChallenges     []bonusJSON `json:"bonus_challenges"`
	EducationalTopicIDs []string    `json:"educational_topic_ids"`
}

// LoadDefaultEngines parses the embedded default engine dataset, skipping
// (and logging) any entry that fails validation, and returns a lookup map
// keyed by engine id.
func LoadDefaultEngines(logger *slog.Logger) (map[string]rocket.EngineDef, error) {
	data, err := defaultData.ReadFile("data/engines.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded engine catalog: %w", err)
	}
	return ParseEngines(data, logger)
}

// ParseEngines decodes a JSON array of engine definitions. Entries with a
// blank id, non-positive dry mass, or a min_throttle outside [0,1] are
// skipped with a warning rather than failing the whole load.
func ParseEngines(data []byte, logger *slog.Logger) (map[string]rocket.EngineDef, error) {
	var raw []engineJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding engine catalog: %w", err)
	}

	engines := make(map[string]rocket.EngineDef, len(raw))
	for i, e := range raw {
		if e.ID == "" {
			logger.Warn("skipping engine entry with blank id", "index", i)
			continue
		}
		if e.DryMass <= 0 {
			logger.Warn("skipping engine entry with non-positive dry mass", "id", e.ID)
			continue
		}
		if e.MinThrottle < 0 || e.MinThrottle > 1 {
			logger.Warn("skipping engine entry with out-of-range min_throttle", "id", e.ID, "min_throttle", e.MinThrottle)
			continue
		}
		engines[e.ID] = rocket.EngineDef{
			ID:             e.ID,
			ThrustSeaLevel: e.ThrustSeaLevel,
			ThrustVacuum:   e.ThrustVacuum,
			IspSeaLevel:    e.IspSeaLevel,
			IspVacuum:      e.IspVacuum,
			DryMass:        e.DryMass,
			Throttleable:   e.Throttleable,
			MinThrottle:    e.MinThrottle,
			Restartable:    e.Restartable,
		}
	}
	return engines, nil
}

// LoadDefaultMissions parses the embedded default mission dataset, skipping
// (and logging) any entry that fails validation.
func LoadDefaultMissions(logger *slog.Logger) ([]*mission.Mission, error) {
	data, err := defaultData.ReadFile("data/missions.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded mission catalog: %w", err)
	}
	return ParseMissions(data, logger)
}

// ParseMissions decodes a JSON array of mission definitions.
func ParseMissions(data []byte, logger *slog.Logger) ([]*mission.Mission, error) {
	var raw []missionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding mission catalog: %w", err)
	}

	missions := make([]*mission.Mission, 0, len(raw))
	for _, m := range raw {
		if m.ID == "" {
			logger.Warn("skipping mission entry with blank id")
			continue
		}
		target, err := targetFromJSON(m)
		if err != nil {
			logger.Warn("skipping mission entry with malformed target", "id", m.ID, "error", err)
			continue
		}

		bonuses := make([]mission.BonusChallenge, 0, len(m.BonusChallenges))
		for _, b := range m.BonusChallenges {
			bonuses = append(bonuses, mission.BonusChallenge{
				ID:          b.ID,
				Description: b.Description,
				StarValue:   b.StarValue,
			})
		}

		built, err := mission.NewMission(mission.Mission{
			ID:   m.ID,
			Tier: m.Tier,
			Requirements: mission.Requirements{
				TargetOrbit:    target,
				MaxBudget:      m.MaxBudget,
			},
			Budget:              m.Budget,
			BonusChallenges:     bonuses,
			EducationalTopicIDs: m.EducationalTopicIDs,
		})
		if err != nil {
			logger.Warn("skipping invalid mission entry", "id", m.ID, "error", err)
			continue
		}
		missions = append(missions, built)
	}
	return missions, nil
}

func targetFromJSON(m missionJSON) (*mission.OrbitalTarget, error) {
	if m.TargetOrbit != nil {
		return &mission.OrbitalTarget{
			Kind:      mission.Orbital,
			Periapsis: mission.Bound{Min: m.TargetOrbit.PeriapsisMin, Max: m.TargetOrbit.PeriapsisMax},
			Apoapsis:  mission.Bound{Min: m.TargetOrbit.ApoapsisMin, Max: m.TargetOrbit.ApoapsisMax},
		}, nil
	}
	if m.SuborbitalAltitude != nil {
		return &mission.OrbitalTarget{
			Kind:      mission.Suborbital,
			Periapsis: mission.Bound{Min: math.Inf(-1), Max: math.Inf(1)},
			Apoapsis:  mission.Bound{Min: *m.SuborbitalAltitude, Max: math.Inf(1)},
		}, nil
	}
	return nil, nil
}
