package cypher

import (
	"strings"
	"time"

	"github.com/ossien/graphsink/internal/fact"
	"github.com/ossien/graphsink/internal/graph"
)

// DefaultExpiryProperty is the timestamp property TTL sweeps compare against
// when the configuration does not name one.
const DefaultExpiryProperty = "last_ingested_at"

// TimeToLiveConfig declares an expiry sweep for one node or relationship
// type: entities whose expiry property is older than MaxAge get removed.
type TimeToLiveConfig struct {
	Kind           fact.Kind
	Type           string
	ExpiryProperty string
	MaxAge         time.Duration
}

// TTLStatement builds the delete statement for an expiry sweep, with the
// cutoff timestamp bound as a parameter.
func TTLStatement(cfg TimeToLiveConfig, now time.Time) graph.Statement {
	property := cfg.ExpiryProperty
	if property == "" {
		property = DefaultExpiryProperty
	}
	cutoff := now.Add(-cfg.MaxAge).UTC().Format(time.RFC3339Nano)

	var sb strings.Builder
	if cfg.Kind == fact.KindNode {
		sb.WriteString("MATCH (n:")
		sb.WriteString(escapeIdentifier(cfg.Type))
		sb.WriteString(")\nWHERE n.")
		sb.WriteString(escapeIdentifier(property))
		sb.WriteString(" < $cutoff\nDETACH DELETE n")
	} else {
		sb.WriteString("MATCH ()-[r:")
		sb.WriteString(escapeIdentifier(cfg.Type))
		sb.WriteString("]->()\nWHERE r.")
		sb.WriteString(escapeIdentifier(property))
		sb.WriteString(" < $cutoff\nDELETE r")
	}

	return graph.Statement{
		Text:   sb.String(),
		Params: map[string]any{"cutoff": cutoff},
	}
}

// Hook is an arbitrary query run before or after an ingest, outside the
// batching machinery (index creation, bookkeeping updates).
type Hook interface {
	AsCypher() (string, map[string]any)
}

// HookStatement converts a hook into an executable statement.
func HookStatement(h Hook) graph.Statement {
	text, params := h.AsCypher()
	return graph.Statement{Text: text, Params: params}
}
