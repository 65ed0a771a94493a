// Package writer executes flush cycles against the graph database inside
// explicit transactions, retrying transient failures with bounded exponential
// backoff and surfacing terminal failures with their failing operation.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/ossien/graphsink/internal/fact"
	"github.com/ossien/graphsink/internal/graph"
	"github.com/ossien/graphsink/internal/metrics"
)

// Operation is one generated upsert statement annotated with the batch it
// came from, for error attribution and logging.
type Operation struct {
	Kind      fact.Kind
	Type      string
	FactCount int
	Statement graph.Statement
}

// Cycle is the unit of transactional work: node operations followed by
// relationship operations. Node operations always commit before relationship
// operations in the same cycle begin.
type Cycle struct {
	ID            string
	Nodes         []Operation
	Relationships []Operation
}

// NewCycle assigns a correlation ID and splits operations by kind, nodes
// first.
func NewCycle(ops []Operation) Cycle {
	c := Cycle{ID: uuid.NewString()}
	for _, op := range ops {
		if op.Kind == fact.KindNode {
			c.Nodes = append(c.Nodes, op)
		} else {
			c.Relationships = append(c.Relationships, op)
		}
	}
	return c
}

// Empty reports whether the cycle carries no operations.
func (c Cycle) Empty() bool { return len(c.Nodes) == 0 && len(c.Relationships) == 0 }

// Stats reports what a committed cycle wrote.
type Stats struct {
	NodesUpserted         int
	RelationshipsUpserted int
	PropertiesSet         int
	LabelsAdded           int
	Attempts              int
	Duration              time.Duration
}

// Config tunes transaction scope and retry behaviour.
type Config struct {
	// MaxAttempts bounds the total number of transaction attempts per
	// cycle, including the first.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry; it doubles per
	// retry up to MaxBackoff, with jitter.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// TransactionPerBatch trades cycle-level atomicity for smaller
	// transactions: each operation commits on its own. A cycle interrupted
	// mid-way can then leave earlier operations committed.
	TransactionPerBatch bool
}

// DefaultConfig mirrors the retry posture of comparable connectors: three
// attempts, one second initial delay, thirty second ceiling.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// Writer executes cycles against a single exclusively-owned client.
type Writer struct {
	client graph.Client
	cfg    Config
	logger *slog.Logger
}

// New builds a writer. The client is owned by the writer's sink for the
// lifetime of one adapter instance.
func New(client graph.Client, cfg Config, logger *slog.Logger) *Writer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{client: client, cfg: cfg, logger: logger}
}

// Execute writes the cycle. By default all operations share one transaction;
// with TransactionPerBatch each operation gets its own, in the same fixed
// node-before-relationship order. Transient failures are retried up to
// MaxAttempts with exponential backoff; anything else fails the cycle with a
// *WriteError.
func (w *Writer) Execute(ctx context.Context, cycle Cycle) (Stats, error) {
	start := time.Now()
	if cycle.Empty() {
		return Stats{}, nil
	}

	ops := append(append([]Operation(nil), cycle.Nodes...), cycle.Relationships...)

	var stats Stats
	if w.cfg.TransactionPerBatch {
		for _, op := range ops {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("cycle %s cancelled: %w", cycle.ID, err)
			}
			summary, attempts, err := w.executeWithRetry(ctx, cycle.ID, []Operation{op})
			stats.Attempts += attempts
			if err != nil {
				stats.Duration = time.Since(start)
				return stats, err
			}
			accumulate(&stats, summary)
		}
	} else {
		summary, attempts, err := w.executeWithRetry(ctx, cycle.ID, ops)
		stats.Attempts = attempts
		if err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		accumulate(&stats, summary)
	}

	stats.Duration = time.Since(start)
	metrics.NodesUpserted.Add(float64(stats.NodesUpserted))
	metrics.RelationshipsUpserted.Add(float64(stats.RelationshipsUpserted))
	metrics.PropertiesSet.Add(float64(stats.PropertiesSet))
	metrics.FlushDuration.Observe(stats.Duration.Seconds())

	w.logger.Debug("flush cycle committed",
		"cycle", cycle.ID,
		"nodes", stats.NodesUpserted,
		"relationships", stats.RelationshipsUpserted,
		"attempts", stats.Attempts,
		"duration", stats.Duration.String(),
	)
	return stats, nil
}

func (w *Writer) executeWithRetry(ctx context.Context, cycleID string, ops []Operation) (graph.Summary, int, error) {
	statements := make([]graph.Statement, len(ops))
	for i, op := range ops {
		statements[i] = op.Statement
	}

	backoff := w.cfg.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return graph.Summary{}, attempt - 1, fmt.Errorf("cycle %s cancelled: %w", cycleID, err)
		}

		summary, err := w.client.ExecuteBatch(ctx, statements)
		if err == nil {
			return summary, attempt, nil
		}
		lastErr = err

		if !graph.IsTransient(err) {
			op := failingOperation(ops, err)
			metrics.TerminalFailures.WithLabelValues(op.Kind.String(), op.Type).Inc()
			return graph.Summary{}, attempt, &WriteError{
				Kind:     op.Kind,
				Type:     op.Type,
				Attempts: attempt,
				Cause:    err,
			}
		}
		if attempt == w.cfg.MaxAttempts {
			break
		}

		metrics.RetriesTotal.Inc()
		delay := withJitter(backoff)
		w.logger.Warn("transient write failure, retrying",
			"cycle", cycleID,
			"attempt", attempt,
			"backoff", delay.String(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return graph.Summary{}, attempt, fmt.Errorf("cycle %s cancelled: %w", cycleID, ctx.Err())
		case <-time.After(delay):
		}
		backoff = min(backoff*2, w.cfg.MaxBackoff)
	}

	op := failingOperation(ops, lastErr)
	metrics.TerminalFailures.WithLabelValues(op.Kind.String(), op.Type).Inc()
	return graph.Summary{}, w.cfg.MaxAttempts, &WriteError{
		Kind:      op.Kind,
		Type:      op.Type,
		Attempts:  w.cfg.MaxAttempts,
		Exhausted: true,
		Cause:     lastErr,
	}
}

// failingOperation resolves which operation an error belongs to. When the
// client reports a statement index it is authoritative; otherwise the first
// operation stands in for the whole transaction.
func failingOperation(ops []Operation, err error) Operation {
	var se *graph.StatementError
	if errors.As(err, &se) && se.Index >= 0 && se.Index < len(ops) {
		return ops[se.Index]
	}
	return ops[0]
}

func accumulate(stats *Stats, summary graph.Summary) {
	stats.NodesUpserted += summary.NodesCreated
	stats.RelationshipsUpserted += summary.RelationshipsCreated
	stats.PropertiesSet += summary.PropertiesSet
	stats.LabelsAdded += summary.LabelsAdded
}

// withJitter spreads retries of concurrent instances apart by up to half the
// base delay.
func withJitter(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}
