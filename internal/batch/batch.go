// Package batch groups incoming facts into homogeneous, deduplicated batches
// ready for a single parametrized upsert per (kind, type) group.
package batch

import (
	"fmt"

	"github.com/ossien/graphsink/internal/fact"
)

// Batch is a set of deduplicated facts sharing one statement shape. All facts
// in a batch have the same kind, type, key fields and additional labels.
type Batch struct {
	Kind     fact.Kind
	Type     string
	GroupKey string
	Facts    []fact.Fact
}

// Len returns the number of deduplicated facts in the batch.
func (b Batch) Len() int { return len(b.Facts) }

// EndpointConflictError reports two relationship facts that share an identity
// but reference different endpoints. Picking one silently would corrupt the
// graph, so the aggregator refuses the incoming fact.
type EndpointConflictError struct {
	RelType  string
	Identity string
	Existing *fact.RelationshipFact
	Incoming *fact.RelationshipFact
}

func (e *EndpointConflictError) Error() string {
	return fmt.Sprintf(
		"conflicting endpoints for relationship %s identity %s: %s(%v)->%s(%v) vs %s(%v)->%s(%v)",
		e.RelType, e.Identity,
		e.Existing.From.Type, e.Existing.From.Key, e.Existing.To.Type, e.Existing.To.Key,
		e.Incoming.From.Type, e.Incoming.From.Key, e.Incoming.To.Type, e.Incoming.To.Key,
	)
}
