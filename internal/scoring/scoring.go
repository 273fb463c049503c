// Package scoring turns a completed flight into a three-axis score
// (efficiency, budget, accuracy), a star rating, and bonus-challenge
// results, per the deterministic scoring contract.
package scoring

import (
	"math"

	"github.com/inkorange/mission-control/internal/flightresult"
	"github.com/inkorange/mission-control/internal/mission"
	"github.com/inkorange/mission-control/internal/orbit"
)

const (
	g0             = 9.80665
	leoInsertionDv = 9400.0
	leoBandAlt     = 2_000_000.0
	parkingOrbit   = 200_000.0
	accuracyTau    = 10_000.0
)

// OptimalDeltaV estimates the ideal delta-v budget for a mission, used as
// the numerator of the efficiency ratio optimal/max(optimal, used).
func OptimalDeltaV(m mission.Mission) float64 {
	target := m.Requirements.TargetOrbit
	if target == nil {
		return 0
	}
	if target.Kind == mission.Suborbital {
		h := target.Apoapsis.Min
		return math.Sqrt(2*g0*h) * 1.15
	}

	targetMeanAlt := (mean(target.Periapsis.Min, target.Periapsis.Max) + mean(target.Apoapsis.Min, target.Apoapsis.Max)) / 2
	targetRadius := flightsimREarth + targetMeanAlt

	if targetMeanAlt <= leoBandAlt {
		return leoInsertionDv
	}
	parkingRadius := flightsimREarth + parkingOrbit
	return leoInsertionDv + orbit.HohmannTransfer(flightsimMuEarth, parkingRadius, targetRadius)
}

// flightsimREarth and flightsimMuEarth mirror flightsim.REarth/MuEarth
// without importing the flightsim package (which itself depends on
// mission/orbit, and must not depend on scoring). Both are grounded on the
// same spec constant.
const flightsimREarth = 6.371e6
const flightsimMuEarth = 3.986004418e14

// mean returns the midpoint of [a, b], or 0 if either bound is infinite.
// Targets with an unbounded periapsis or apoapsis (such as the suborbital
// missions) therefore get 0 as that bound's midpoint.
func mean(a, b float64) float64 {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return 0
	}
	return (a + b) / 2
}

// EfficiencyScore is one of the three 0-100 scored axes.
type EfficiencyScore struct {
	Score      int
	DvUsed     float64
	DvOptimal  float64
	FuelWasted float64
}

type BudgetScore struct {
	Score             int
	CostSpent         float64
	BudgetMax         float64
	PercentUnderBudget float64
}

type AccuracyScore struct {
	Score              int
	OrbitalDeviation   float64
	InclinationError   float64
}

// ScoreBreakdown is the full scoring output for one flight.
type ScoreBreakdown struct {
	Efficiency EfficiencyScore
	Budget     BudgetScore
	Accuracy   AccuracyScore
	TotalScore int
	Stars      int
}

// Score computes the full ScoreBreakdown for a completed flight against a
// mission and the rocket's total cost.
func Score(result flightresult.FlightResult, m mission.Mission, rocketCost float64) ScoreBreakdown {
	optimal := OptimalDeltaV(m)
	efficiency := scoreEfficiency(optimal, result.TotalDeltaVUsed)
	budget := scoreBudget(rocketCost, m.Requirements.MaxBudget)
	accuracy := scoreAccuracy(result, m)

	total := roundClamp(float64(efficiency.Score+budget.Score+accuracy.Score)/3, 0, 100)

	stars := starsFor(total)
	if isFailureOutcome(result.Outcome) {
		stars = 0
	}

	return ScoreBreakdown{
		Efficiency: efficiency,
		Budget:     budget,
		Accuracy:   accuracy,
		TotalScore: total,
		Stars:      stars,
	}
}

func scoreEfficiency(optimal, used float64) EfficiencyScore {
	ratio := optimal / math.Max(optimal, used)
	if optimal == 0 && used == 0 {
		ratio = 1
	}
	score := roundClamp(ratio*100, 0, 100)
	return EfficiencyScore{
		Score:      score,
		DvUsed:     used,
		DvOptimal:  optimal,
		FuelWasted: math.Max(0, used-optimal),
	}
}

func scoreBudget(cost, budgetMax float64) BudgetScore {
	var ratio float64
	if budgetMax > 0 {
		ratio = 1 - cost/budgetMax
	}
	score := roundClamp(ratio*100+50, 0, 100)
	return BudgetScore{
		Score:              score,
		CostSpent:          cost,
		BudgetMax:          budgetMax,
		PercentUnderBudget: math.Max(0, ratio*100),
	}
}

func scoreAccuracy(result flightresult.FlightResult, m mission.Mission) AccuracyScore {
	target := m.Requirements.TargetOrbit
	var score int

	switch {
	case target != nil && result.FinalOrbit != nil:
		if target.Kind == mission.Suborbital {
			apoRatio := math.Min(1, result.MaxAltitude/target.Apoapsis.Min)
			score = roundClamp(apoRatio*100, 0, 100)
		} else {
			periMid := mean(target.Periapsis.Min, target.Periapsis.Max)
			apoMid := mean(target.Apoapsis.Min, target.Apoapsis.Max)
			periErr := math.Abs(result.FinalOrbit.Periapsis - periMid)
			apoErr := math.Abs(result.FinalOrbit.Apoapsis - apoMid)
			avg := (periErr + apoErr) / 2
			errorRatio := 1 - math.Min(1, avg/(10*accuracyTau))
			score = roundClamp(errorRatio*100, 0, 100)
		}
	case result.Outcome == flightresult.OrbitAchieved || result.Outcome == flightresult.MissionComplete:
		score = 75
	default:
		score = 0
	}

	if isFailureOutcome(result.Outcome) && score > 10 {
		score = 10
	}

	return AccuracyScore{
		Score:            score,
		OrbitalDeviation: orbitalDeviation(result, target),
		InclinationError: 0,
	}
}

func orbitalDeviation(result flightresult.FlightResult, target *mission.OrbitalTarget) float64 {
	if target == nil || result.FinalOrbit == nil {
		return 0
	}
	periMid := mean(target.Periapsis.Min, target.Periapsis.Max)
	apoMid := mean(target.Apoapsis.Min, target.Apoapsis.Max)
	periErr := math.Abs(result.FinalOrbit.Periapsis - periMid)
	apoErr := math.Abs(result.FinalOrbit.Apoapsis - apoMid)
	return (periErr + apoErr) / 2
}

func isFailureOutcome(o flightresult.Outcome) bool {
	return o == flightresult.Crash || o == flightresult.Suborbital || o == flightresult.FuelExhausted
}

func starsFor(total int) int {
	switch {
	case total >= 80:
		return 3
	case total >= 60:
		return 2
	case total >= 40:
		return 1
	default:
		return 0
	}
}

func roundClamp(x, lo, hi float64) int {
	if x < lo {
		x = lo
	}
	if x > hi {
		x = hi
	}
	return int(math.Round(x))
}

// BonusResult pairs a bonus challenge with whether it was achieved.
type BonusResult struct {
	Challenge mission.BonusChallenge
	Achieved  bool
}

// ResolveBonuses evaluates every bonus challenge against the flight result
// and rocket cost. Bonuses are only awarded on success outcomes, per spec.
func ResolveBonuses(result flightresult.FlightResult, rocketCost float64, challenges []mission.BonusChallenge) []BonusResult {
	out := make([]BonusResult, 0, len(challenges))
	if !result.Outcome.Success() {
		for _, c := range challenges {
			out = append(out, BonusResult{Challenge: c, Achieved: false})
		}
		return out
	}
	for _, c := range challenges {
		out = append(out, BonusResult{Challenge: c, Achieved: c.Resolve(result, rocketCost)})
	}
	return out
}

