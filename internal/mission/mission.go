// Package mission holds the frozen mission definition the flight simulator
// evaluates termination against: target orbit bounds, budget, and the
// bonus-challenge catalog.
package mission

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/brunoga/deep"

	"github.com/inkorange/mission-control/internal/flightresult"
)

// TargetKind distinguishes an orbital insertion target from a suborbital
// altitude target, replacing an unbounded-periapsis sniff test with an
// explicit tag.
type TargetKind int

const (
	Orbital TargetKind = iota
	Suborbital
)

// Bound is an inclusive [Min, Max] interval; either side may be infinite.
type Bound struct {
	Min float64
	Max float64
}

// OrbitalTarget describes the orbit (or, for a suborbital mission, the
// altitude) a flight must reach.
type OrbitalTarget struct {
	Kind      TargetKind
	Periapsis Bound
	Apoapsis  Bound
}

// BonusChallenge is one optional, extra-credit objective. Predicate is
// evaluated against the FlightResult; a nil Predicate always fails.
// CostThreshold, when set, additionally awards the bonus when the rocket's
// cost is at or under the threshold — the structured replacement for the
// legacy cost-in-description convention, which costRegex still parses as a
// fallback for catalog entries that only set Description.
type BonusChallenge struct {
	ID            string
	Description   string
	Predicate     func(flightresult.FlightResult) bool
	CostThreshold *float64
	StarValue     int
}

var costRegex = regexp.MustCompile(`(?i)\$([\d,]+)\s*([mbk]?)`)

// costThresholdFromDescription parses a legacy "Complete under $60M"-style
// description into a dollar amount, or returns (0, false) if no dollar
// figure is present.
func costThresholdFromDescription(desc string) (float64, bool) {
	m := costRegex.FindStringSubmatch(desc)
	if m == nil {
		return 0, false
	}
	digits := strings.ReplaceAll(m[1], ",", "")
	base, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "k":
		base *= 1_000
	case "m":
		base *= 1_000_000
	case "b":
		base *= 1_000_000_000
	}
	return base, true
}

// Resolve reports whether the bonus is achieved for the given flight result
// and the rocket's total cost. A panicking predicate is treated as failed.
func (b BonusChallenge) Resolve(result flightresult.FlightResult, rocketCost float64) (achieved bool) {
	defer func() {
		if recover() != nil {
			achieved = false
		}
	}()
	if b.Predicate != nil && b.Predicate(result) {
		return true
	}
	if b.CostThreshold != nil {
		return rocketCost <= *b.CostThreshold
	}
	if threshold, ok := costThresholdFromDescription(b.Description); ok {
		return rocketCost <= threshold
	}
	return false
}

// Requirements bundles a mission's numeric constraints.
type Requirements struct {
	TargetOrbit     *OrbitalTarget
	TargetBody      string
	MinPayloadMass  float64
	MaxBudget       float64
}

// Mission is the frozen definition a simulator run is evaluated against.
type Mission struct {
	ID                 string
	Tier               int
	Requirements       Requirements
	Budget             float64
	BonusChallenges    []BonusChallenge
	EducationalTopicIDs []string
}

// InvalidMission is returned by NewMission when the definition itself is
// malformed (e.g. tier out of range).
type InvalidMission struct {
	Reason string
}

func (e *InvalidMission) Error() string {
	return fmt.Sprintf("invalid mission: %s", e.Reason)
}

// NewMission validates and deep-copies m into a frozen Mission the
// simulator and scoring package can safely retain.
func NewMission(m Mission) (*Mission, error) {
	if m.Tier < 1 || m.Tier > 5 {
		return nil, &InvalidMission{Reason: fmt.Sprintf("tier %d out of range [1,5]", m.Tier)}
	}
	frozen, err := deep.Copy(m)
	if err != nil {
		return nil, fmt.Errorf("freezing mission: %w", err)
	}
	return &frozen, nil
}
