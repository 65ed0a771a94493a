package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossien/graphsink/internal/fact"
)

const samplePipeline = `
connector: neo4j
batch_size: 500
interpretations:
  - type: source_node
    node_type: Player
    key:
      player_id: player_id
    properties:
      name: name
      team: team.name
    additional_types: [Person]
    normalization:
      trim_whitespace: true
  - type: relationship
    relationship_type: PLAYS_FOR
    from_node:
      node_type: Player
      key:
        player_id: player_id
    to_node:
      node_type: Team
      key:
        name: team.name
    normalization:
      trim_whitespace: true
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(samplePipeline))
	require.NoError(t, err)

	assert.Equal(t, "neo4j", p.Connector)
	assert.Equal(t, 500, p.BatchSize)
	require.Len(t, p.Interpretations, 2)
	assert.Equal(t, "source_node", p.Interpretations[0].Type)
	assert.Equal(t, []string{"Person"}, p.Interpretations[0].AdditionalTypes)
	assert.Equal(t, "PLAYS_FOR", p.Interpretations[1].RelationshipType)
	assert.True(t, p.Interpretations[1].Normalization.TrimWhitespace)
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown rule type",
			yaml: "interpretations:\n  - type: projection\n",
			want: `unknown type "projection"`,
		},
		{
			name: "source node without key",
			yaml: "interpretations:\n  - type: source_node\n    node_type: Player\n",
			want: "requires key",
		},
		{
			name: "relationship without to_node",
			yaml: `
interpretations:
  - type: relationship
    relationship_type: PLAYS_FOR
    from_node:
      node_type: Player
      key:
        player_id: player_id
`,
			want: "requires to_node",
		},
		{
			name: "not yaml",
			yaml: "{interpretations",
			want: "parse pipeline file",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestCompile_BadExpression(t *testing.T) {
	p := Pipeline{Interpretations: []Interpretation{{
		Type:     "source_node",
		NodeType: "Player",
		Key:      map[string]string{"player_id": "players[?"},
	}}}
	_, err := Compile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "player_id")
}

func TestInterpret_Record(t *testing.T) {
	p, err := Parse([]byte(samplePipeline))
	require.NoError(t, err)
	it, err := Compile(p)
	require.NoError(t, err)

	facts, err := it.Interpret(map[string]any{
		"player_id": " 10 ",
		"name":      "Alice",
		"team":      map[string]any{"name": "X"},
	})
	require.NoError(t, err)
	require.Len(t, facts, 2)

	node, ok := facts[0].(*fact.NodeFact)
	require.True(t, ok)
	assert.Equal(t, "Player", node.Type())
	assert.Equal(t, "10", node.Key["player_id"], "key normalization follows the rule's flags")
	assert.Equal(t, "Alice", node.Props["name"])
	assert.Equal(t, "X", node.Props["team"])

	rel, ok := facts[1].(*fact.RelationshipFact)
	require.True(t, ok)
	assert.Equal(t, "PLAYS_FOR", rel.Type())
	assert.Equal(t, "10", rel.From.Key["player_id"])
	assert.Equal(t, "X", rel.To.Key["name"])
}

// A record missing an extraction source yields a nil key value. The fact is
// still produced; the sink's validation decides its fate.
func TestInterpret_MissingField(t *testing.T) {
	p, err := Parse([]byte(samplePipeline))
	require.NoError(t, err)
	it, err := Compile(p)
	require.NoError(t, err)

	facts, err := it.Interpret(map[string]any{"name": "Alice"})
	require.NoError(t, err)
	require.Len(t, facts, 2)

	node := facts[0].(*fact.NodeFact)
	assert.Nil(t, node.Key["player_id"])
	assert.Error(t, fact.Validate(node))
}
