package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	. "github.com/spheroids/spheroids/common"

	"github.com/evilsocket/islazy/log"
)

const version = "1.0.0"

var (
	opName     = flag.String("op", "info", "Operation to run, use -op help to list them.")
	inputFile  = flag.String("input", "", "Input .dat or .csv file.")
	csvHeader  = flag.Bool("header", false, "Skip the first line of CSV inputs.")
	dataPath   = flag.String("datapath", "", "If filled, run the operation on every .dat buffer of this folder.")
	outputPath = flag.String("output", "", "Output .dat or .csv file (a folder when -datapath is used), stdout if empty.")
	asText     = flag.Bool("text", false, "Print outputs as compressed text instead of CSV.")
	muString   = flag.String("mu", "", "Comma separated direction vector.")
	rho        = flag.Float64("rho", 0.5, "Concentration/shrinkage parameter.")
	checked    = flag.Bool("checked", false, "Reject rho outside (-1, 1) and singular rows in the Möbius transform.")
	weights    = flag.String("weights", "", "Optional .dat or .csv file with the observation weights for the fit operations.")
	samples    = flag.Int("n", 100, "Number of samples to draw.")
	components = flag.Int("k", 2, "Number of mixture components for the cluster operations.")
	minWeight  = flag.Float64("min-weight", 0.05, "Mixture components lighter than this are dropped while clustering.")
	seed       = flag.Uint64("seed", 0, "Random seed for the sample and cluster operations, 0 for a random one.")
	logFile    = flag.String("log-file", "", "If filled, spheroids will log to this file.")
	logDebug   = flag.Bool("debug", false, "Enable debug logs.")
	cpuProfile = flag.String("cpu-profile", "", "Write CPU profile to this file.")
	memProfile = flag.String("mem-profile", "", "Write memory profile to this file.")
)

func die(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func main() {
	flag.Parse()

	if err := SetupLogging(*logFile, *logDebug); err != nil {
		die("%v\n", err)
	}

	profiler := NewProfiler(*cpuProfile, *memProfile)
	err := profiler.Start()
	if err == nil {
		stopSignals := OnSignal(func(_ os.Signal) {
			stopProfiler(profiler)
			TeardownLogging()
		})

		err = run()

		stopSignals()
		stopProfiler(profiler)
	}

	TeardownLogging()
	if err != nil {
		die("%v\n", err)
	}
}

func run() error {
	log.Debug("spheroids v%s starting ...", version)

	if *opName == "help" {
		printOps()
		return nil
	}

	o, found := ops[*opName]
	if !found {
		return fmt.Errorf("unknown operation %s, valid operations are: %s", *opName, strings.Join(opNames(), ", "))
	}

	cfg, err := newConfig()
	if err != nil {
		return err
	}

	if *dataPath != "" {
		return runBatch(o, cfg, *dataPath, *outputPath)
	}
	return runSingle(o, cfg, *inputFile, *outputPath)
}

func stopProfiler(p *Profiler) {
	if err := p.Stop(); err != nil {
		log.Error("%v", err)
	}
}

func newConfig() (*config, error) {
	cfg := &config{
		rho:       *rho,
		checked:   *checked,
		samples:   *samples,
		k:         *components,
		minWeight: *minWeight,
	}

	if *muString != "" {
		mu, err := parseVector(*muString)
		if err != nil {
			return nil, err
		}
		cfg.mu = mu
	}

	if *weights != "" {
		w, err := readInput(*weights, *csvHeader)
		if err != nil {
			return nil, err
		}
		cfg.weights = w
	}

	if *seed != 0 {
		cfg.src = rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)
	}

	return cfg, nil
}
