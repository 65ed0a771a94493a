package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossien/graphsink/internal/batch"
	"github.com/ossien/graphsink/internal/fact"
)

var trim = fact.NormalizationPolicy{TrimWhitespace: true}

func nodeBatch(facts ...fact.Fact) batch.Batch {
	agg := batch.NewAggregator()
	for _, f := range facts {
		if err := agg.Add(f); err != nil {
			panic(err)
		}
	}
	return agg.Drain()[0]
}

func TestGenerate_NodeUpsert(t *testing.T) {
	gen := NewGenerator()
	b := nodeBatch(
		fact.NewNodeFact("Player", map[string]any{"player_id": "10"}, map[string]any{"name": "A"}, nil, trim),
		fact.NewNodeFact("Player", map[string]any{"player_id": "11"}, map[string]any{"name": "B"}, nil, trim),
	)

	stmt, ok, err := gen.Generate(b)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t,
		"UNWIND $rows AS row\n"+
			"MERGE (n:`Player` {`player_id`: row.key.`player_id`})\n"+
			"SET n += row.props",
		stmt.Text)

	rows := stmt.Params["rows"].([]map[string]any)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"player_id": "10"}, rows[0]["key"])
	assert.Equal(t, map[string]any{"name": "A"}, rows[0]["props"])
}

func TestGenerate_NodeUpsertAdditionalLabels(t *testing.T) {
	gen := NewGenerator()
	b := nodeBatch(fact.NewNodeFact("Player", map[string]any{"id": "1"}, nil, []string{"Person", "Athlete"}, trim))

	stmt, ok, err := gen.Generate(b)
	require.NoError(t, err)
	require.True(t, ok)
	// Labels are sorted at fact construction.
	assert.Contains(t, stmt.Text, "SET n:`Athlete`:`Person`")
}

func TestGenerate_RelationshipUpsert(t *testing.T) {
	gen := NewGenerator()
	b := nodeBatch(fact.NewRelationshipFact("PLAYS_FOR", nil,
		fact.NodeRef{Type: "Player", Key: map[string]any{"player_id": "10"}},
		fact.NodeRef{Type: "Team", Key: map[string]any{"name": "X"}},
		map[string]any{"number": 9}, trim))

	stmt, ok, err := gen.Generate(b)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t,
		"UNWIND $rows AS row\n"+
			"MERGE (from:`Player` {`player_id`: row.from.`player_id`})\n"+
			"MERGE (to:`Team` {`name`: row.to.`name`})\n"+
			"MERGE (from)-[r:`PLAYS_FOR`]->(to)\n"+
			"SET r += row.props",
		stmt.Text)

	rows := stmt.Params["rows"].([]map[string]any)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{"player_id": "10"}, rows[0]["from"])
	assert.Equal(t, map[string]any{"name": "X"}, rows[0]["to"])
	assert.Equal(t, map[string]any{"number": 9}, rows[0]["props"])
	assert.NotContains(t, rows[0], "key")
}

func TestGenerate_KeyedRelationshipMergesOnKey(t *testing.T) {
	gen := NewGenerator()
	b := nodeBatch(fact.NewRelationshipFact("CONTRACT", map[string]any{"contract_id": "C1"},
		fact.NodeRef{Type: "Player", Key: map[string]any{"player_id": "10"}},
		fact.NodeRef{Type: "Team", Key: map[string]any{"name": "X"}},
		nil, trim))

	stmt, ok, err := gen.Generate(b)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Contains(t, stmt.Text, "MERGE (from)-[r:`CONTRACT` {`contract_id`: row.key.`contract_id`}]->(to)")
	rows := stmt.Params["rows"].([]map[string]any)
	assert.Equal(t, map[string]any{"contract_id": "C1"}, rows[0]["key"])
}

func TestGenerate_EmptyBatchSkipped(t *testing.T) {
	gen := NewGenerator()
	_, ok, err := gen.Generate(batch.Batch{Kind: fact.KindNode, Type: "Player"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerate_StatementTextCachedPerGroup(t *testing.T) {
	gen := NewGenerator()
	first := nodeBatch(fact.NewNodeFact("Player", map[string]any{"id": "1"}, nil, nil, trim))
	second := nodeBatch(fact.NewNodeFact("Player", map[string]any{"id": "2"}, nil, nil, trim))

	s1, _, err := gen.Generate(first)
	require.NoError(t, err)
	s2, _, err := gen.Generate(second)
	require.NoError(t, err)

	assert.Equal(t, s1.Text, s2.Text)
}

func TestEscapeIdentifier(t *testing.T) {
	assert.Equal(t, "`Player`", escapeIdentifier("Player"))
	assert.Equal(t, "`weird ``label```", escapeIdentifier("weird `label`"))
}

func TestGenerate_ValuesNeverInterpolated(t *testing.T) {
	gen := NewGenerator()
	malicious := "x\"}) DETACH DELETE n //"
	b := nodeBatch(fact.NewNodeFact("Player", map[string]any{"id": malicious}, nil, nil, trim))

	stmt, ok, err := gen.Generate(b)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, stmt.Text, malicious)
}
