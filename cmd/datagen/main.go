package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/ossien/graphsink/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		players         = pflag.Int("players", cfg.NumPlayers, "number of players to generate")
		teams           = pflag.Int("teams", cfg.NumTeams, "number of teams to spread players across")
		duplicateChance = pflag.Float64("duplicate-chance", cfg.DuplicateChance, "probability of re-emitting a record with key formatting noise")
		seed            = pflag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		output          = pflag.String("output", "", "output file (NDJSON); stdout when empty")
	)
	pflag.Parse()

	genCfg := generator.Config{
		NumPlayers:      *players,
		NumTeams:        *teams,
		DuplicateChance: clampProbability(*duplicateChance),
		Seed:            *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	records, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *output == "" {
		if err := generator.WriteRecords(os.Stdout, records); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write records: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteRecordsFile(*output, records); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write records: %v\n", err)
		os.Exit(1)
	}
}

func clampProbability(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
