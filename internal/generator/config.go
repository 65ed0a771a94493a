package generator

// Config drives the synthetic record generator.
type Config struct {
	NumPlayers int
	NumTeams   int
	// DuplicateChance is the probability a player record is emitted a
	// second time with formatting noise (stray whitespace, case drift) in
	// its key fields, to exercise normalization and deduplication.
	DuplicateChance float64
	Seed            int64
}

// DefaultConfig returns baseline settings for a small demonstration dataset.
func DefaultConfig() Config {
	return Config{
		NumPlayers:      1000,
		NumTeams:        32,
		DuplicateChance: 0.2,
		Seed:            42,
	}
}
