// Package fact holds the in-memory model for pending graph mutations: node
// and relationship upserts carrying a natural key, a property set and, for
// relationships, endpoint references. Keys are normalized exactly once, at
// construction, so every downstream comparison sees canonical values.
package fact

import (
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates the two entity kinds a fact can describe.
type Kind int

const (
	KindNode Kind = iota
	KindRelationship
)

// String returns a human-readable kind name for logs and errors.
func (k Kind) String() string {
	if k == KindNode {
		return "node"
	}
	return "relationship"
}

// Fact is a pending upsert of either kind. Identity and grouping keys are
// derived from normalized key values, so facts differing only in surface
// formatting of their keys converge on the same identity.
type Fact interface {
	Kind() Kind
	Type() string
	// GroupKey identifies the statement shape a fact belongs to: all facts
	// sharing a group key can be written by one parametrized statement.
	GroupKey() string
	// IdentityKey uniquely identifies the entity within its group.
	IdentityKey() string
	// Properties returns the mutable property set of the fact.
	Properties() map[string]any
}

// NodeRef is a weak reference to a node by type and natural key. It does not
// guarantee the node exists; the writer merges referenced endpoints by key.
type NodeRef struct {
	Type string
	Key  map[string]any
}

// NodeFact is a pending node upsert.
type NodeFact struct {
	NodeType        string
	Key             map[string]any
	Props           map[string]any
	AdditionalTypes []string
}

// NewNodeFact builds a node fact, normalizing the key under the given policy.
func NewNodeFact(nodeType string, key, props map[string]any, additionalTypes []string, policy NormalizationPolicy) *NodeFact {
	labels := append([]string(nil), additionalTypes...)
	sort.Strings(labels)
	if props == nil {
		props = map[string]any{}
	}
	return &NodeFact{
		NodeType:        nodeType,
		Key:             NormalizeKey(key, policy),
		Props:           props,
		AdditionalTypes: labels,
	}
}

func (f *NodeFact) Kind() Kind                 { return KindNode }
func (f *NodeFact) Type() string               { return f.NodeType }
func (f *NodeFact) Properties() map[string]any { return f.Props }

// KeyFields returns the sorted key field names of the fact.
func (f *NodeFact) KeyFields() []string { return sortedFields(f.Key) }

func (f *NodeFact) GroupKey() string {
	return groupKey(KindNode, f.NodeType, sortedFields(f.Key), f.AdditionalTypes)
}

func (f *NodeFact) IdentityKey() string {
	return encodeKey(f.NodeType, f.Key)
}

// RelationshipFact is a pending relationship upsert between two node
// references. Key is the relationship's own natural key and may be empty, in
// which case the endpoints determine identity.
type RelationshipFact struct {
	RelType string
	Key     map[string]any
	From    NodeRef
	To      NodeRef
	Props   map[string]any
}

// NewRelationshipFact builds a relationship fact, normalizing its own key and
// both endpoint keys under the given policy.
func NewRelationshipFact(relType string, key map[string]any, from, to NodeRef, props map[string]any, policy NormalizationPolicy) *RelationshipFact {
	if props == nil {
		props = map[string]any{}
	}
	return &RelationshipFact{
		RelType: relType,
		Key:     NormalizeKey(key, policy),
		From:    NodeRef{Type: from.Type, Key: NormalizeKey(from.Key, policy)},
		To:      NodeRef{Type: to.Type, Key: NormalizeKey(to.Key, policy)},
		Props:   props,
	}
}

func (f *RelationshipFact) Kind() Kind                 { return KindRelationship }
func (f *RelationshipFact) Type() string               { return f.RelType }
func (f *RelationshipFact) Properties() map[string]any { return f.Props }

func (f *RelationshipFact) GroupKey() string {
	shape := []string{
		"from=" + f.From.Type + "(" + strings.Join(sortedFields(f.From.Key), ",") + ")",
		"to=" + f.To.Type + "(" + strings.Join(sortedFields(f.To.Key), ",") + ")",
	}
	return groupKey(KindRelationship, f.RelType, sortedFields(f.Key), shape)
}

// IdentityKey is (type, natural key) when the relationship declares its own
// key, otherwise (type, from identity, to identity).
func (f *RelationshipFact) IdentityKey() string {
	if len(f.Key) > 0 {
		return encodeKey(f.RelType, f.Key)
	}
	return f.RelType + "|" + encodeKey(f.From.Type, f.From.Key) + "->" + encodeKey(f.To.Type, f.To.Key)
}

// EndpointsEqual reports whether another relationship fact references the
// same endpoint identities.
func (f *RelationshipFact) EndpointsEqual(other *RelationshipFact) bool {
	return encodeKey(f.From.Type, f.From.Key) == encodeKey(other.From.Type, other.From.Key) &&
		encodeKey(f.To.Type, f.To.Key) == encodeKey(other.To.Type, other.To.Key)
}

// SortedFields returns the field names of a key mapping in sorted order.
func SortedFields(m map[string]any) []string {
	return sortedFields(m)
}

func sortedFields(m map[string]any) []string {
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func groupKey(kind Kind, typ string, keyFields, extra []string) string {
	var b strings.Builder
	b.WriteString(kind.String())
	b.WriteByte('|')
	b.WriteString(typ)
	b.WriteByte('|')
	b.WriteString(strings.Join(keyFields, ","))
	if len(extra) > 0 {
		b.WriteByte('|')
		b.WriteString(strings.Join(extra, ","))
	}
	return b.String()
}

// encodeKey produces a deterministic textual encoding of (type, key) used for
// identity comparison. Fields are visited in sorted order so logically equal
// keys always encode identically.
func encodeKey(typ string, key map[string]any) string {
	var b strings.Builder
	b.WriteString(typ)
	b.WriteByte('{')
	for i, field := range sortedFields(key) {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s=%v", field, key[field])
	}
	b.WriteByte('}')
	return b.String()
}
