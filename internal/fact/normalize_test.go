package fact

import (
	"reflect"
	"testing"
)

func TestNormalizeKey_TrimAndLower(t *testing.T) {
	policy := NormalizationPolicy{TrimWhitespace: true, LowercaseStrings: true}
	got := NormalizeKey(map[string]any{
		"id":    "  ABC-10 ",
		"email": "Jane@Example.COM\t",
		"count": 7,
	}, policy)

	want := map[string]any{
		"id":    "abc-10",
		"email": "jane@example.com",
		"count": 7,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalized key mismatch: want %v got %v", want, got)
	}
}

func TestNormalizeKey_TrimOnly(t *testing.T) {
	policy := NormalizationPolicy{TrimWhitespace: true}
	got := NormalizeKey(map[string]any{"id": " 10 "}, policy)
	if got["id"] != "10" {
		t.Fatalf("expected trimmed id %q, got %q", "10", got["id"])
	}
}

func TestNormalizeKey_NoPolicyLeavesValues(t *testing.T) {
	got := NormalizeKey(map[string]any{"id": " X "}, NormalizationPolicy{})
	if got["id"] != " X " {
		t.Fatalf("expected untouched value, got %q", got["id"])
	}
}

func TestNormalizeKey_Idempotent(t *testing.T) {
	policy := NormalizationPolicy{TrimWhitespace: true, LowercaseStrings: true}
	once := NormalizeKey(map[string]any{"id": "  MiXeD  "}, policy)
	twice := NormalizeKey(once, policy)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("normalization not idempotent: %v vs %v", once, twice)
	}
}

func TestNormalizeKey_NonStringPassThrough(t *testing.T) {
	policy := NormalizationPolicy{TrimWhitespace: true, LowercaseStrings: true}
	got := NormalizeKey(map[string]any{"id": 42, "active": true, "score": 1.5, "missing": nil}, policy)
	want := map[string]any{"id": 42, "active": true, "score": 1.5, "missing": nil}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("non-string values must pass through: want %v got %v", want, got)
	}
}

func TestNormalizeKey_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{"id": " 10 "}
	_ = NormalizeKey(in, NormalizationPolicy{TrimWhitespace: true})
	if in["id"] != " 10 " {
		t.Fatalf("input mutated: %q", in["id"])
	}
}
