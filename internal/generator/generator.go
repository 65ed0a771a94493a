// Package generator produces synthetic flat records shaped for the sample
// pipeline: player and team rows with deliberate formatting noise in key
// fields, so an ingest run demonstrates normalization convergence and
// in-batch deduplication against a real database.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Record is one flat input row, as the interpretation layer expects it.
type Record map[string]any

// Generator produces synthetic records deterministically from its seed.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	if cfg.NumPlayers <= 0 {
		cfg.NumPlayers = DefaultConfig().NumPlayers
	}
	if cfg.NumTeams <= 0 {
		cfg.NumTeams = DefaultConfig().NumTeams
	}
	if cfg.DuplicateChance <= 0 {
		cfg.DuplicateChance = DefaultConfig().DuplicateChance
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Generator{cfg: cfg, rand: rand.New(rand.NewSource(cfg.Seed))}
}

// Generate synthesises player records, each carrying its team so the sample
// pipeline can derive both node kinds and the PLAYS_FOR relationship from one
// row. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) ([]Record, error) {
	teams := make([]string, g.cfg.NumTeams)
	for i := range teams {
		teams[i] = fmt.Sprintf("Team %02d", i+1)
	}

	records := make([]Record, 0, g.cfg.NumPlayers+g.cfg.NumPlayers/4)
	for i := 0; i < g.cfg.NumPlayers; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		playerID := fmt.Sprintf("P-%06d", i+1)
		team := teams[g.rand.Intn(len(teams))]
		record := Record{
			"player_id": playerID,
			"name":      g.randomName(),
			"position":  g.randomPosition(),
			"team":      team,
			"number":    g.rand.Intn(99) + 1,
		}
		records = append(records, record)

		if g.rand.Float64() < g.cfg.DuplicateChance {
			records = append(records, g.noisyCopy(record))
		}
	}
	return records, nil
}

// noisyCopy re-emits a record with surface formatting drift in its key
// fields. A correct connector converges both copies onto one node.
func (g *Generator) noisyCopy(record Record) Record {
	noisy := make(Record, len(record))
	for k, v := range record {
		noisy[k] = v
	}
	id := noisy["player_id"].(string)
	switch g.rand.Intn(3) {
	case 0:
		noisy["player_id"] = " " + id
	case 1:
		noisy["player_id"] = id + "  "
	default:
		noisy["player_id"] = "\t" + id + " "
	}
	noisy["team"] = " " + noisy["team"].(string)
	return noisy
}

var (
	firstNames = []string{"Alex", "Dana", "Jules", "Kai", "Mara", "Nico", "Rey", "Sam", "Tess", "Viktor"}
	lastNames  = []string{"Adler", "Brook", "Costa", "Duarte", "Egan", "Farkas", "Gill", "Hosada", "Iqbal", "Juhasz"}
	positions  = []string{"GK", "DF", "MF", "FW"}
)

func (g *Generator) randomName() string {
	return strings.Join([]string{
		firstNames[g.rand.Intn(len(firstNames))],
		lastNames[g.rand.Intn(len(lastNames))],
	}, " ")
}

func (g *Generator) randomPosition() string {
	return positions[g.rand.Intn(len(positions))]
}
