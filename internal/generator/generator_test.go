package generator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestGenerate_Deterministic(t *testing.T) {
	cfg := Config{NumPlayers: 50, NumTeams: 4, DuplicateChance: 0.2, Seed: 42}

	first, err := New(cfg).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := New(cfg).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("same seed must yield same count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i]["player_id"] != second[i]["player_id"] || first[i]["name"] != second[i]["name"] {
			t.Fatalf("record %d differs between runs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestGenerate_NoisyDuplicates(t *testing.T) {
	records, err := New(Config{NumPlayers: 200, NumTeams: 4, DuplicateChance: 0.5, Seed: 7}).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(records) <= 200 {
		t.Fatalf("expected duplicates beyond the base population, got %d records", len(records))
	}

	noisy := 0
	for _, record := range records {
		id := record["player_id"].(string)
		if id != strings.TrimSpace(id) {
			noisy++
		}
	}
	if noisy == 0 {
		t.Fatal("expected at least one whitespace-noised key")
	}
	// After trimming, every id belongs to the base population.
	for _, record := range records {
		id := strings.TrimSpace(record["player_id"].(string))
		if !strings.HasPrefix(id, "P-") {
			t.Fatalf("unexpected player id %q", id)
		}
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Config{Seed: 1}).Generate(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestWriteRecords_NDJSON(t *testing.T) {
	records := []Record{
		{"player_id": "P-000001", "team": "Team 01"},
		{"player_id": "P-000002", "team": "Team 02"},
	}

	var buf bytes.Buffer
	if err := WriteRecords(&buf, records); err != nil {
		t.Fatalf("write: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var decoded map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != len(records) {
		t.Fatalf("expected %d lines, got %d", len(records), lines)
	}
}
