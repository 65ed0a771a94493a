package batch

import (
	"github.com/ossien/graphsink/internal/fact"
)

// Aggregator accumulates facts for one flush cycle, deduplicating by identity
// within each (kind, type) group. It is not safe for concurrent use; the
// adapter serializes access to it.
type Aggregator struct {
	groups map[string]*group
	order  []string
	size   int
}

type group struct {
	kind     fact.Kind
	typ      string
	groupKey string
	byID     map[string]fact.Fact
	order    []string
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{groups: make(map[string]*group)}
}

// Add absorbs a fact into the current cycle. A fact whose identity is already
// present merges its properties key-by-key, incoming values winning on
// conflict. A relationship fact that shares an identity with a previously
// added fact but references different endpoints is rejected with
// *EndpointConflictError.
func (a *Aggregator) Add(f fact.Fact) error {
	gk := f.GroupKey()
	g, ok := a.groups[gk]
	if !ok {
		g = &group{
			kind:     f.Kind(),
			typ:      f.Type(),
			groupKey: gk,
			byID:     make(map[string]fact.Fact),
		}
		a.groups[gk] = g
		a.order = append(a.order, gk)
	}

	id := f.IdentityKey()
	existing, ok := g.byID[id]
	if !ok {
		g.byID[id] = f
		g.order = append(g.order, id)
		a.size++
		return nil
	}

	if rel, ok := f.(*fact.RelationshipFact); ok {
		prior := existing.(*fact.RelationshipFact)
		if !prior.EndpointsEqual(rel) {
			return &EndpointConflictError{
				RelType:  rel.RelType,
				Identity: id,
				Existing: prior,
				Incoming: rel,
			}
		}
	}

	mergeProperties(existing.Properties(), f.Properties())
	return nil
}

// Len returns the number of distinct identities pending in the cycle.
func (a *Aggregator) Len() int { return a.size }

// GroupSize returns the number of distinct identities pending for the group
// the given fact would join.
func (a *Aggregator) GroupSize(groupKey string) int {
	g, ok := a.groups[groupKey]
	if !ok {
		return 0
	}
	return len(g.byID)
}

// Drain flushes all accumulated batches and clears internal state. Node
// batches precede relationship batches; within a kind, groups appear in
// first-seen order and facts in first-added order.
func (a *Aggregator) Drain() []Batch {
	var nodes, rels []Batch
	for _, gk := range a.order {
		g := a.groups[gk]
		facts := make([]fact.Fact, 0, len(g.order))
		for _, id := range g.order {
			facts = append(facts, g.byID[id])
		}
		b := Batch{Kind: g.kind, Type: g.typ, GroupKey: g.groupKey, Facts: facts}
		if g.kind == fact.KindNode {
			nodes = append(nodes, b)
		} else {
			rels = append(rels, b)
		}
	}

	a.groups = make(map[string]*group)
	a.order = nil
	a.size = 0

	return append(nodes, rels...)
}

// mergeProperties overlays src onto dst, overwriting overlapping keys.
func mergeProperties(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
