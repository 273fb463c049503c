// Package progression defines the persisted shape of a player's best
// result for a mission. It supplies only the data schema — persistence
// itself (a database, a save file) is a collaborator outside this module.
package progression

import (
	"time"

	"github.com/brunoga/deep"

	"github.com/inkorange/mission-control/internal/flightresult"
	"github.com/inkorange/mission-control/internal/rocket"
)

// schemaVersion is bumped whenever MissionResult's shape changes in a way
// that isn't backward compatible for readers pinned to an older version.
const schemaVersion = 1

// MissionResult is a player's best recorded attempt at one mission.
type MissionResult struct {
	MissionID        string                    `json:"mission_id"`
	Stars            int                       `json:"stars"`
	BestScore        int                       `json:"best_score"`
	BestRocketConfig rocket.RocketConfig       `json:"best_rocket_config"`
	BonusCompleted   []string                  `json:"bonus_completed"`
	CompletedAt      time.Time                 `json:"completed_at"`
	FlightResult     flightresult.FlightResult `json:"flight_result"`
	Version          int                       `json:"version"`
}

// NewMissionResult builds a frozen MissionResult, stamped at the current
// schema version.
func NewMissionResult(missionID string, stars, bestScore int, cfg rocket.RocketConfig, bonusCompleted []string, completedAt time.Time, result flightresult.FlightResult) (MissionResult, error) {
	mr := MissionResult{
		MissionID:        missionID,
		Stars:            stars,
		BestScore:        bestScore,
		BestRocketConfig: cfg,
		BonusCompleted:   bonusCompleted,
		CompletedAt:      completedAt,
		FlightResult:     result,
		Version:          schemaVersion,
	}
	return deep.Copy(mr)
}

// Improves reports whether candidate would replace this result as the
// player's best attempt at the mission: a higher star rating wins
// outright, and ties are broken by total score.
func (m MissionResult) Improves(candidate MissionResult) bool {
	if candidate.Stars != m.Stars {
		return candidate.Stars > m.Stars
	}
	return candidate.BestScore > m.BestScore
}
