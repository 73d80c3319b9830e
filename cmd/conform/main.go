package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/joripage/matching-engine-lab/pkg/conformance"
	"github.com/joripage/matching-engine-lab/pkg/core"
	"github.com/joripage/matching-engine-lab/pkg/logging"
	"github.com/joripage/matching-engine-lab/pkg/orderbook"
	"github.com/joripage/matching-engine-lab/pkg/workload"
)

func main() {
	var (
		input       string
		profileName string
		count       int
		seed        uint64
		engines     string
	)
	flag.StringVar(&input, "input", "", "NDJSON command file; when empty a workload is generated")
	flag.StringVar(&profileName, "profile", "default", "Workload profile for generated input")
	flag.IntVar(&count, "count", 100_000, "Number of generated commands")
	flag.Uint64Var(&seed, "seed", 42, "Random seed for generated input")
	flag.StringVar(&engines, "engines", strings.Join(orderbook.EngineNames(), ","), "Comma separated backends to check")
	flag.Parse()

	logger := logging.NewLogger(logging.INFO)
	defer logger.Sync()
	defer logger.Install()()

	cmds, err := loadCommands(input, profileName, count, seed)
	if err != nil {
		zap.S().Errorf("load commands: %v", err)
		os.Exit(1)
	}

	reports, err := conformance.CheckBackends(cmds, strings.Split(engines, ",")...)
	if err != nil {
		zap.S().Errorf("conformance: %v", err)
		os.Exit(1)
	}

	failed := false
	for _, r := range reports {
		if r.OK() {
			zap.S().Infow("conformant", "engine", r.Engine, "commands", len(cmds))
			continue
		}
		failed = true
		if r.Mismatch != nil {
			zap.S().Errorw("events differ", "engine", r.Engine, "index", r.Mismatch.Index, "detail", r.Mismatch.Error())
		} else {
			zap.S().Errorw("book differs", "engine", r.Engine, "error", r.Err)
		}
	}
	if failed {
		os.Exit(1)
	}
}

// loadCommands reads input, skipping blank lines. Lines that fail to
// decode are an error here: a conformance corpus must be well formed.
func loadCommands(input, profileName string, count int, seed uint64) ([]core.Command, error) {
	if input == "" {
		if err := workload.ValidateCount(count); err != nil {
			return nil, err
		}
		profile, err := workload.GetProfile(profileName)
		if err != nil {
			return nil, err
		}
		return workload.NewGenerator(profile, seed).Generate(count), nil
	}

	f, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cmds []core.Command
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; scanner.Scan(); line++ {
		if core.IsBlank(scanner.Bytes()) {
			continue
		}
		cmd, err := core.ParseCommand(scanner.Bytes())
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", input, line, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, scanner.Err()
}
