package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/ringsidehq/roundledger/internal/simulate"
	"github.com/ringsidehq/roundledger/pkg/logger"
)

// Default configuration constants.
const (
	defaultRounds            = 3
	defaultActions           = 120
	defaultCameras           = 2
	defaultDupRate           = 0.05
	defaultWorkerMultiplier  = 2
	defaultTimeout           = 30 * time.Second
	defaultSimulationTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		boutID  = flag.String("bout", "sim-bout", "Bout identifier")
		rounds  = flag.Int("rounds", defaultRounds, "Number of rounds to simulate")
		actions = flag.Int("actions", defaultActions, "Physical actions per round per fighter")
		cameras = flag.Int("cameras", defaultCameras, "CV cameras observing each action")
		dupRate = flag.Float64("dup-rate", defaultDupRate, "Fraction of submissions retransmitted")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkerMultiplier, "Number of concurrent submitters")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		lock    = flag.Bool("lock", true, "Lock each round after streaming")
		output  = flag.String("output", "", "Output file for generated submissions")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSimulationTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:    *baseURL,
		BoutID:     *boutID,
		Rounds:     *rounds,
		Actions:    *actions,
		Cameras:    *cameras,
		DupRate:    *dupRate,
		Workers:    *workers,
		Timeout:    *timeout,
		Lock:       *lock,
		OutputFile: *output,
		Verbose:    *verbose,
	}

	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
