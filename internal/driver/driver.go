// Package driver pumps ticks into a flight simulator: a ticker-driven
// variant for a live server session, and a synchronous variant for
// headless runs and tests. Either way, it invokes scoring exactly once
// when the wrapped simulator leaves the running state.
package driver

import (
	"context"
	"log/slog"
	"time"

	"github.com/inkorange/mission-control/internal/flightresult"
	"github.com/inkorange/mission-control/internal/flightsim"
	"github.com/inkorange/mission-control/internal/metrics"
	"github.com/inkorange/mission-control/internal/mission"
	"github.com/inkorange/mission-control/internal/scoring"
	"github.com/inkorange/mission-control/internal/telemetry"
)

// Driver wraps one flight simulator and caps how much real time a single
// Tick call may advance it by, per spec §6's dt_real ceiling.
type Driver struct {
	sim        *flightsim.Simulator
	mission    *mission.Mission
	rocketCost float64
	sessionID  string

	logger *slog.Logger

	scored     bool
	lastResult flightresult.FlightResult
	lastScore  scoring.ScoreBreakdown
}

// New wraps sim, ready to be driven by Tick or Start. sessionID identifies
// this flight in traces and logs; it need not be globally unique for
// headless (non-server) callers.
func New(sim *flightsim.Simulator, m *mission.Mission, rocketCost float64, sessionID string, logger *slog.Logger) *Driver {
	return &Driver{sim: sim, mission: m, rocketCost: rocketCost, sessionID: sessionID, logger: logger}
}

// Mission returns the mission this driver is scoring against.
func (d *Driver) Mission() *mission.Mission {
	return d.mission
}

// RocketCost returns the total cost of the rocket being flown.
func (d *Driver) RocketCost() float64 {
	return d.rocketCost
}

// Tick advances the wrapped simulator by dtReal, capped at
// flightsim.DtRealCap. If this tick causes the simulator to leave the
// running state, scoring runs exactly once.
func (d *Driver) Tick(ctx context.Context, dtReal time.Duration) {
	seconds := dtReal.Seconds()
	if seconds > flightsim.DtRealCap {
		seconds = flightsim.DtRealCap
	}
	telemetry.TraceTickBatch(ctx, d.sessionID, func(context.Context) {
		d.sim.Tick(seconds)
		metrics.IncTicks()
	})
	d.maybeScore(ctx)
}

func (d *Driver) maybeScore(ctx context.Context) {
	if d.scored || d.sim.Running() || d.sim.CurrentOutcome() == flightresult.Running {
		return
	}
	d.lastResult = d.sim.Result()
	if d.mission != nil {
		telemetry.TraceScore(ctx, d.sessionID, func(context.Context) {
			d.lastScore = scoring.Score(d.lastResult, *d.mission, d.rocketCost)
		})
	}
	d.scored = true
	d.logger.Info("flight terminated",
		"outcome", d.lastResult.Outcome.String(),
		"max_altitude", d.lastResult.MaxAltitude,
		"total_delta_v_used", d.lastResult.TotalDeltaVUsed,
	)
}

// Result returns the flight result once terminated; ok is false while
// still running.
func (d *Driver) Result() (flightresult.FlightResult, bool) {
	return d.lastResult, d.scored
}

// Score returns the score breakdown once terminated; ok is false while
// still running.
func (d *Driver) Score() (scoring.ScoreBreakdown, bool) {
	return d.lastScore, d.scored
}

// Simulator exposes the wrapped simulator for read-only accessors.
func (d *Driver) Simulator() *flightsim.Simulator {
	return d.sim
}

// Start begins a ticker-driven session loop for a live server session,
// pumping ticks at the given real-time interval until the flight
// terminates or ctx is cancelled. Blocks until either condition.
func (d *Driver) Start(ctx context.Context, interval time.Duration) {
	d.sim.Start()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("driver session stopped", "reason", ctx.Err())
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			d.Tick(ctx, dt)
			if !d.sim.Running() {
				return
			}
		}
	}
}

// RunToCompletion synchronously ticks the simulator at fixed dtReal
// increments until it terminates or maxTicks is exhausted. Used by
// headless runs and tests where no real clock is involved.
func RunToCompletion(sim *flightsim.Simulator, m *mission.Mission, rocketCost float64, sessionID string, dtReal time.Duration, maxTicks int, logger *slog.Logger) *Driver {
	d := New(sim, m, rocketCost, sessionID, logger)
	ctx := context.Background()
	d.sim.Start()
	for i := 0; i < maxTicks && d.sim.Running(); i++ {
		d.Tick(ctx, dtReal)
	}
	return d
}
