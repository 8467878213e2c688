package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dferrand/planweave/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		milestones  = flag.Int("milestones", cfg.NumMilestones, "number of milestones to generate")
		features    = flag.Int("features-per-milestone", cfg.FeaturesPerMilestone, "features under each milestone")
		options     = flag.Int("options-per-feature", cfg.OptionsPerFeature, "options under each feature")
		members     = flag.Int("members", cfg.NumMembers, "number of team members to generate")
		teams       = flag.Int("teams", cfg.NumTeams, "number of teams to generate")
		allocChance = flag.Float64("allocation-chance", cfg.AllocationChance, "probability that a leaf option gets an allocation")
		seed        = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir   = flag.String("output-dir", "data", "directory to write plan.json")
		writeStdout = flag.Bool("stdout", false, "write dataset to stdout instead of a file")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumMilestones:        *milestones,
		FeaturesPerMilestone: *features,
		OptionsPerFeature:    *options,
		NumMembers:           *members,
		NumTeams:             *teams,
		AllocationChance:     clampProbability(*allocChance),
		Seed:                 *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d nodes, %d members, %d teams and %d allocations into %s\n",
		len(dataset.Nodes), len(dataset.Members), len(dataset.Teams), len(dataset.Allocations), *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
