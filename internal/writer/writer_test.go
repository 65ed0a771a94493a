package writer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossien/graphsink/internal/fact"
	"github.com/ossien/graphsink/internal/graph"
)

func testConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
	}
}

func nodeOp(typ string) Operation {
	return Operation{
		Kind:      fact.KindNode,
		Type:      typ,
		FactCount: 1,
		Statement: graph.Statement{Text: "MERGE (n:`" + typ + "`)", Params: map[string]any{}},
	}
}

func relOp(typ string) Operation {
	return Operation{
		Kind:      fact.KindRelationship,
		Type:      typ,
		FactCount: 1,
		Statement: graph.Statement{Text: "MERGE ()-[r:`" + typ + "`]->()", Params: map[string]any{}},
	}
}

func transient(msg string) error {
	return &graph.TransientError{Cause: errors.New(msg)}
}

func TestExecute_EmptyCycleIsNoop(t *testing.T) {
	client := graph.NewMemoryClient()
	w := New(client, testConfig(), nil)

	stats, err := w.Execute(context.Background(), NewCycle(nil))
	require.NoError(t, err)
	assert.Zero(t, stats.Attempts)
	assert.Empty(t, client.BatchCalls())
}

func TestExecute_NodesPrecedeRelationships(t *testing.T) {
	client := graph.NewMemoryClient()
	w := New(client, testConfig(), nil)

	// Relationship op listed first; the cycle still writes nodes first.
	cycle := NewCycle([]Operation{relOp("PLAYS_FOR"), nodeOp("Player"), nodeOp("Team")})
	_, err := w.Execute(context.Background(), cycle)
	require.NoError(t, err)

	calls := client.BatchCalls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 3)
	assert.Contains(t, calls[0][0].Text, "Player")
	assert.Contains(t, calls[0][1].Text, "Team")
	assert.Contains(t, calls[0][2].Text, "PLAYS_FOR")
}

func TestExecute_RetryBoundIsExact(t *testing.T) {
	// Three queued failures for three allowed attempts. A fourth attempt
	// would succeed and show up in BatchCalls.
	client := graph.NewMemoryClient().FailNext(
		transient("reset 1"), transient("reset 2"), transient("reset 3"),
	)
	w := New(client, testConfig(), nil)

	_, err := w.Execute(context.Background(), NewCycle([]Operation{nodeOp("Player")}))
	require.Error(t, err)

	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.True(t, we.Exhausted)
	assert.Equal(t, 3, we.Attempts)
	assert.Equal(t, fact.KindNode, we.Kind)
	assert.Equal(t, "Player", we.Type)

	assert.Empty(t, client.BatchCalls())
}

func TestExecute_TransientFailureThenSuccess(t *testing.T) {
	client := graph.NewMemoryClient().FailNext(transient("leader switch"))
	client.PushSummary(graph.Summary{NodesCreated: 2, PropertiesSet: 4})
	w := New(client, testConfig(), nil)

	stats, err := w.Execute(context.Background(), NewCycle([]Operation{nodeOp("Player")}))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Attempts)
	assert.Equal(t, 2, stats.NodesUpserted)
	assert.Equal(t, 4, stats.PropertiesSet)
	assert.Len(t, client.BatchCalls(), 1)
}

func TestExecute_TerminalErrorNotRetried(t *testing.T) {
	terminal := errors.New("constraint violation")
	client := graph.NewMemoryClient().FailNext(terminal)
	w := New(client, testConfig(), nil)

	_, err := w.Execute(context.Background(), NewCycle([]Operation{nodeOp("Player")}))
	require.Error(t, err)

	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.False(t, we.Exhausted)
	assert.Equal(t, 1, we.Attempts)
	assert.ErrorIs(t, err, terminal)
	assert.Empty(t, client.BatchCalls())
}

func TestExecute_TerminalErrorAttributedByStatementIndex(t *testing.T) {
	cause := errors.New("malformed statement")
	client := graph.NewMemoryClient().FailNext(&graph.StatementError{Index: 1, Cause: cause})
	w := New(client, testConfig(), nil)

	cycle := NewCycle([]Operation{nodeOp("Player"), relOp("PLAYS_FOR")})
	_, err := w.Execute(context.Background(), cycle)
	require.Error(t, err)

	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, fact.KindRelationship, we.Kind)
	assert.Equal(t, "PLAYS_FOR", we.Type)
}

func TestExecute_TransactionPerBatch(t *testing.T) {
	client := graph.NewMemoryClient()
	client.PushSummary(graph.Summary{NodesCreated: 1})
	client.PushSummary(graph.Summary{RelationshipsCreated: 1})

	cfg := testConfig()
	cfg.TransactionPerBatch = true
	w := New(client, cfg, nil)

	stats, err := w.Execute(context.Background(), NewCycle([]Operation{nodeOp("Player"), relOp("PLAYS_FOR")}))
	require.NoError(t, err)

	calls := client.BatchCalls()
	require.Len(t, calls, 2)
	require.Len(t, calls[0], 1)
	assert.Contains(t, calls[0][0].Text, "Player")
	assert.Contains(t, calls[1][0].Text, "PLAYS_FOR")
	assert.Equal(t, 1, stats.NodesUpserted)
	assert.Equal(t, 1, stats.RelationshipsUpserted)
	assert.Equal(t, 2, stats.Attempts)
}

func TestExecute_CancelledContext(t *testing.T) {
	client := graph.NewMemoryClient().FailNext(transient("reset"))
	w := New(client, testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Execute(ctx, NewCycle([]Operation{nodeOp("Player")}))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
