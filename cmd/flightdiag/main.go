// flightdiag runs a single flight to completion outside the HTTP server,
// for exercising the simulation core and scoring against a mission without
// standing up a session over the wire.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goforj/godump"

	"github.com/inkorange/mission-control/internal/catalog"
	"github.com/inkorange/mission-control/internal/driver"
	"github.com/inkorange/mission-control/internal/flightsim"
	"github.com/inkorange/mission-control/internal/mission"
	"github.com/inkorange/mission-control/internal/rocket"
)

func main() {
	missionID := flag.String("mission", "first-hop", "mission id from the default catalog")
	engineID := flag.String("engine", "kerolox-sl-1", "engine id from the default catalog to mount on a single stage")
	fuelMass := flag.Float64("fuel", 18000, "fuel mass in kg for the single stage")
	structuralMass := flag.Float64("structural", 2200, "structural mass in kg for the single stage")
	payloadMass := flag.Float64("payload", 800, "payload mass in kg")
	cost := flag.Float64("cost", 1500000, "total rocket cost")
	maxTicks := flag.Int("max-ticks", 20000, "tick budget before RunToCompletion gives up")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	engines, err := catalog.LoadDefaultEngines(logger)
	if err != nil {
		fmt.Println("ERROR loading engine catalog:", err)
		os.Exit(1)
	}
	missions, err := catalog.LoadDefaultMissions(logger)
	if err != nil {
		fmt.Println("ERROR loading mission catalog:", err)
		os.Exit(1)
	}

	var m *mission.Mission
	for _, candidate := range missions {
		if candidate.ID == *missionID {
			m = candidate
			break
		}
	}
	if m == nil {
		fmt.Printf("ERROR: unknown mission id %q\n", *missionID)
		os.Exit(1)
	}

	if _, ok := engines[*engineID]; !ok {
		fmt.Printf("ERROR: unknown engine id %q\n", *engineID)
		os.Exit(1)
	}

	cfg, err := rocket.NewRocketConfig(
		[]rocket.StageConfig{
			{
				Engines:        []rocket.EngineCount{{EngineID: *engineID, Count: 1}},
				FuelMass:       *fuelMass,
				StructuralMass: *structuralMass,
			},
		},
		rocket.Payload{Name: "diagnostic-payload", Mass: *payloadMass},
		*cost,
		engines,
	)
	if err != nil {
		fmt.Println("ERROR building rocket config:", err)
		os.Exit(1)
	}

	sim, err := flightsim.New(cfg, m, engines, logger)
	if err != nil {
		fmt.Println("ERROR constructing simulator:", err)
		os.Exit(1)
	}

	fmt.Printf("Running mission %q with engine %q, total mass %.1f kg, cost $%.0f\n",
		m.ID, *engineID, cfg.TotalMass, cfg.TotalCost)

	start := time.Now()
	d := driver.RunToCompletion(sim, m, cfg.TotalCost, "flightdiag", 50*time.Millisecond, *maxTicks, logger)
	elapsed := time.Since(start)

	result, ok := d.Result()
	if !ok {
		fmt.Println("flight did not reach a terminal outcome within the tick budget")
		os.Exit(1)
	}
	score, _ := d.Score()

	fmt.Printf("\nCompleted in %v (%d ticks)\n\n", elapsed, len(sim.History())-1)
	godump.Dump(result)
	fmt.Println()
	godump.Dump(score)
}
