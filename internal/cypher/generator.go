// Package cypher translates deduplicated fact batches into parametrized
// Cypher upsert statements. Type and property names are escaped into the
// statement text; all values are bound as parameters so the same compiled
// statement shape is reused across batches of one group, letting the database
// cache query plans.
package cypher

import (
	"fmt"
	"strings"

	"github.com/ossien/graphsink/internal/batch"
	"github.com/ossien/graphsink/internal/fact"
	"github.com/ossien/graphsink/internal/graph"
)

// Generator builds upsert statements, caching statement text per batch group.
// It is not safe for concurrent use; the sink serializes access.
type Generator struct {
	cache map[string]string
}

// NewGenerator returns a generator with an empty statement cache.
func NewGenerator() *Generator {
	return &Generator{cache: make(map[string]string)}
}

// Generate produces one parametrized upsert statement for the batch. The
// second return value is false when the batch is empty and no statement is
// needed.
func (g *Generator) Generate(b batch.Batch) (graph.Statement, bool, error) {
	if b.Len() == 0 {
		return graph.Statement{}, false, nil
	}
	if b.Kind == fact.KindNode {
		return g.nodeUpsert(b)
	}
	return g.relationshipUpsert(b)
}

func (g *Generator) nodeUpsert(b batch.Batch) (graph.Statement, bool, error) {
	first, ok := b.Facts[0].(*fact.NodeFact)
	if !ok {
		return graph.Statement{}, false, fmt.Errorf("node batch %s contains %T", b.GroupKey, b.Facts[0])
	}

	text, cached := g.cache[b.GroupKey]
	if !cached {
		text = buildNodeUpsert(first.NodeType, first.KeyFields(), first.AdditionalTypes)
		g.cache[b.GroupKey] = text
	}

	rows := make([]map[string]any, 0, b.Len())
	for _, f := range b.Facts {
		nf := f.(*fact.NodeFact)
		rows = append(rows, map[string]any{
			"key":   nf.Key,
			"props": nf.Props,
		})
	}

	return graph.Statement{Text: text, Params: map[string]any{"rows": rows}}, true, nil
}

func (g *Generator) relationshipUpsert(b batch.Batch) (graph.Statement, bool, error) {
	first, ok := b.Facts[0].(*fact.RelationshipFact)
	if !ok {
		return graph.Statement{}, false, fmt.Errorf("relationship batch %s contains %T", b.GroupKey, b.Facts[0])
	}

	text, cached := g.cache[b.GroupKey]
	if !cached {
		text = buildRelationshipUpsert(first)
		g.cache[b.GroupKey] = text
	}

	rows := make([]map[string]any, 0, b.Len())
	for _, f := range b.Facts {
		rf := f.(*fact.RelationshipFact)
		row := map[string]any{
			"from":  rf.From.Key,
			"to":    rf.To.Key,
			"props": rf.Props,
		}
		if len(rf.Key) > 0 {
			row["key"] = rf.Key
		}
		rows = append(rows, row)
	}

	return graph.Statement{Text: text, Params: map[string]any{"rows": rows}}, true, nil
}

// buildNodeUpsert renders the match-or-create template for one node group:
// merge by key, overlay properties, add any extra labels.
func buildNodeUpsert(nodeType string, keyFields, additionalTypes []string) string {
	var sb strings.Builder
	sb.WriteString("UNWIND $rows AS row\n")
	sb.WriteString("MERGE (n:")
	sb.WriteString(escapeIdentifier(nodeType))
	sb.WriteString(" {")
	sb.WriteString(keyPattern("row.key", keyFields))
	sb.WriteString("})\n")
	sb.WriteString("SET n += row.props")
	if len(additionalTypes) > 0 {
		sb.WriteString("\nSET n")
		for _, label := range additionalTypes {
			sb.WriteByte(':')
			sb.WriteString(escapeIdentifier(label))
		}
	}
	return sb.String()
}

// buildRelationshipUpsert renders the template for one relationship group.
// Endpoint nodes are merged by key without property writes, so a relationship
// arriving before its endpoints still lands on the right identities.
func buildRelationshipUpsert(shape *fact.RelationshipFact) string {
	var sb strings.Builder
	sb.WriteString("UNWIND $rows AS row\n")
	sb.WriteString("MERGE (from:")
	sb.WriteString(escapeIdentifier(shape.From.Type))
	sb.WriteString(" {")
	sb.WriteString(keyPattern("row.from", sortedKeyFields(shape.From.Key)))
	sb.WriteString("})\n")
	sb.WriteString("MERGE (to:")
	sb.WriteString(escapeIdentifier(shape.To.Type))
	sb.WriteString(" {")
	sb.WriteString(keyPattern("row.to", sortedKeyFields(shape.To.Key)))
	sb.WriteString("})\n")
	sb.WriteString("MERGE (from)-[r:")
	sb.WriteString(escapeIdentifier(shape.RelType))
	if len(shape.Key) > 0 {
		sb.WriteString(" {")
		sb.WriteString(keyPattern("row.key", sortedKeyFields(shape.Key)))
		sb.WriteString("}")
	}
	sb.WriteString("]->(to)\n")
	sb.WriteString("SET r += row.props")
	return sb.String()
}

// keyPattern renders `field`: source.`field` pairs for a merge pattern.
func keyPattern(source string, fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		escaped := escapeIdentifier(field)
		parts = append(parts, fmt.Sprintf("%s: %s.%s", escaped, source, escaped))
	}
	return strings.Join(parts, ", ")
}

func sortedKeyFields(key map[string]any) []string {
	return fact.SortedFields(key)
}

// escapeIdentifier quotes a label, relationship type or property name for
// safe inclusion in statement text. Backticks inside the name are doubled.
func escapeIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
