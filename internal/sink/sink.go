// Package sink is the seam between an upstream fact stream and the write-back
// engine: it aggregates submitted facts in memory and, on flush, drives the
// generator and writer to persist one cycle. Submit never touches the
// network; Flush is the only operation that does.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ossien/graphsink/internal/batch"
	"github.com/ossien/graphsink/internal/cypher"
	"github.com/ossien/graphsink/internal/fact"
	"github.com/ossien/graphsink/internal/graph"
	"github.com/ossien/graphsink/internal/metrics"
	"github.com/ossien/graphsink/internal/writer"
)

// Config tunes aggregation and flushing.
type Config struct {
	// BatchSize is the per-group identity count that triggers a flush in
	// Run. Zero means DefaultBatchSize.
	BatchSize int
	// FlushInterval forces a flush in Run when facts have been pending
	// longer than this. Zero disables time-based flushing.
	FlushInterval time.Duration
	Writer        writer.Config
}

// DefaultBatchSize matches the chunk size comparable connectors default to.
const DefaultBatchSize = 1000

// ErrNotStarted is returned when Submit or Flush is called before Start.
var ErrNotStarted = errors.New("sink not started")

// Sink owns one aggregator/writer pair and one exclusively-held database
// client. A single caller at a time may use Submit and Flush; the sink's
// mutex enforces that.
type Sink struct {
	mu      sync.Mutex
	client  graph.Client
	agg     *batch.Aggregator
	gen     *cypher.Generator
	writer  *writer.Writer
	logger  *slog.Logger
	cfg     Config
	started bool
	full    bool
	skipped int
}

// New assembles a sink over an already-constructed client.
func New(client graph.Client, cfg Config, logger *slog.Logger) *Sink {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		client: client,
		agg:    batch.NewAggregator(),
		gen:    cypher.NewGenerator(),
		writer: writer.New(client, cfg.Writer, logger),
		logger: logger,
		cfg:    cfg,
	}
}

// Start verifies database connectivity and readies the sink for submissions.
func (s *Sink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if err := s.client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("verify connectivity: %w", err)
	}
	s.started = true
	return nil
}

// Submit absorbs a fact into the pending cycle. It only mutates in-memory
// aggregation state and never blocks on the network. Facts with unusable keys
// are skipped and counted rather than failing the stream; an endpoint
// conflict is returned to the caller, who must abort or flush the cycle.
func (s *Sink) Submit(f fact.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}

	if err := fact.Validate(f); err != nil {
		s.skipped++
		metrics.NormalizationSkips.Inc()
		s.logger.Warn("skipping record with unusable key", "kind", f.Kind().String(), "type", f.Type(), "error", err)
		return nil
	}

	if err := s.agg.Add(f); err != nil {
		return err
	}
	if s.agg.GroupSize(f.GroupKey()) >= s.cfg.BatchSize {
		s.full = true
	}
	metrics.PendingFacts.Set(float64(s.agg.Len()))
	return nil
}

// ShouldFlush reports whether any group has reached the batch-size threshold.
func (s *Sink) ShouldFlush() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full
}

// Pending returns the number of deduplicated facts awaiting the next flush.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.Len()
}

// Skipped returns how many records were dropped for unusable keys.
func (s *Sink) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// Flush drains the pending cycle and writes it synchronously. This is the
// sink's sole suspension point. An empty cycle is a no-op.
func (s *Sink) Flush(ctx context.Context) (writer.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return writer.Stats{}, ErrNotStarted
	}
	return s.flushLocked(ctx)
}

func (s *Sink) flushLocked(ctx context.Context) (writer.Stats, error) {
	batches := s.agg.Drain()
	s.full = false
	metrics.PendingFacts.Set(0)
	if len(batches) == 0 {
		return writer.Stats{}, nil
	}

	ops := make([]writer.Operation, 0, len(batches))
	for _, b := range batches {
		stmt, ok, err := s.gen.Generate(b)
		if err != nil {
			return writer.Stats{}, fmt.Errorf("generate statement for %s %s: %w", b.Kind, b.Type, err)
		}
		if !ok {
			continue
		}
		ops = append(ops, writer.Operation{
			Kind:      b.Kind,
			Type:      b.Type,
			FactCount: b.Len(),
			Statement: stmt,
		})
	}

	return s.writer.Execute(ctx, writer.NewCycle(ops))
}

// Stop performs a best-effort final flush of any pending facts and releases
// the connection. The connection is closed on every exit path; a flush
// failure is still reported.
func (s *Sink) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return s.client.Close(ctx)
	}
	s.started = false

	_, flushErr := s.flushLocked(ctx)
	closeErr := s.client.Close(ctx)
	if flushErr != nil {
		return fmt.Errorf("final flush: %w", flushErr)
	}
	return closeErr
}

// Run consumes the fact channel to exhaustion or cancellation, flushing
// whenever a group reaches the batch-size threshold or the flush interval
// elapses, and once more at end of stream. The accumulated write stats are
// returned.
func (s *Sink) Run(ctx context.Context, facts <-chan fact.Fact) (writer.Stats, error) {
	var total writer.Stats
	var ticker *time.Ticker
	var tick <-chan time.Time
	if s.cfg.FlushInterval > 0 {
		ticker = time.NewTicker(s.cfg.FlushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-tick:
			if s.Pending() > 0 {
				stats, err := s.Flush(ctx)
				addStats(&total, stats)
				if err != nil {
					return total, err
				}
			}
		case f, ok := <-facts:
			if !ok {
				stats, err := s.Flush(ctx)
				addStats(&total, stats)
				return total, err
			}
			if err := s.Submit(f); err != nil {
				return total, err
			}
			if s.ShouldFlush() {
				stats, err := s.Flush(ctx)
				addStats(&total, stats)
				if err != nil {
					return total, err
				}
				if ticker != nil {
					ticker.Reset(s.cfg.FlushInterval)
				}
			}
		}
	}
}

// PerformTTL runs an expiry sweep for the configured type outside the
// batching machinery.
func (s *Sink) PerformTTL(ctx context.Context, cfg cypher.TimeToLiveConfig) error {
	_, err := s.client.Run(ctx, cypher.TTLStatement(cfg, time.Now()))
	if err != nil {
		return fmt.Errorf("ttl sweep for %s %s: %w", cfg.Kind, cfg.Type, err)
	}
	return nil
}

// RunHook executes an arbitrary hook query in its own auto-commit
// transaction.
func (s *Sink) RunHook(ctx context.Context, h cypher.Hook) error {
	_, err := s.client.Run(ctx, cypher.HookStatement(h))
	return err
}

func addStats(total *writer.Stats, stats writer.Stats) {
	total.NodesUpserted += stats.NodesUpserted
	total.RelationshipsUpserted += stats.RelationshipsUpserted
	total.PropertiesSet += stats.PropertiesSet
	total.LabelsAdded += stats.LabelsAdded
	total.Attempts += stats.Attempts
	total.Duration += stats.Duration
}
