package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joripage/matching-engine-lab/pkg/workload"
)

func main() {
	var (
		profileName string
		count       int
		seed        uint64
	)
	flag.StringVar(&profileName, "profile", "default", "Workload profile")
	flag.IntVar(&count, "count", 1000, "Number of commands")
	flag.Uint64Var(&seed, "seed", 42, "Random seed")
	flag.Parse()

	if err := workload.ValidateCount(count); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	profile, err := workload.GetProfile(profileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := workload.NewGenerator(profile, seed).WriteNDJSON(os.Stdout, count); err != nil {
		fmt.Fprintf(os.Stderr, "write commands: %v\n", err)
		os.Exit(1)
	}
}
