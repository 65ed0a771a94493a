package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/ossien/graphsink/internal/config"
	"github.com/ossien/graphsink/internal/fact"
	"github.com/ossien/graphsink/internal/graph"
	"github.com/ossien/graphsink/internal/interpret"
	"github.com/ossien/graphsink/internal/logging"
	"github.com/ossien/graphsink/internal/metrics"
	"github.com/ossien/graphsink/internal/sink"
	"github.com/ossien/graphsink/internal/writer"
)

func main() {
	var (
		pipelinePath = pflag.String("pipeline", "", "Path to the declarative pipeline YAML file")
		recordsPath  = pflag.String("records", "-", "Path to input records (JSON array or NDJSON, '-' for stdin)")
		connector    = pflag.String("connector", "", "Connector capability name (overrides the pipeline file)")
		batchSize    = pflag.Int("batch-size", 0, "Per-type flush threshold (overrides the pipeline file)")
		envFile      = pflag.String("env-file", "", "Optional .env file to load before reading configuration")
		dryRun       = pflag.Bool("dry-run", false, "Interpret and batch records without writing to the database")
	)
	pflag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "graphsink")

	if *pipelinePath == "" {
		logger.Error("--pipeline is required")
		os.Exit(2)
	}

	pipeline, err := interpret.Load(*pipelinePath)
	if err != nil {
		logger.Error("failed to load pipeline", "error", err, "path", *pipelinePath)
		os.Exit(1)
	}
	interpreter, err := interpret.Compile(pipeline)
	if err != nil {
		logger.Error("failed to compile pipeline", "error", err)
		os.Exit(1)
	}

	name := pipeline.Connector
	if *connector != "" {
		name = *connector
	}
	if name == "" {
		name = "neo4j"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Enabled {
		metrics.Register(prometheus.DefaultRegisterer)
		go serveMetrics(logger, cfg.Metrics.Addr)
	}

	sinkCfg := sink.Config{
		BatchSize:     cfg.Ingest.BatchSize,
		FlushInterval: cfg.Ingest.FlushInterval,
		Writer: writer.Config{
			MaxAttempts:         cfg.Ingest.MaxAttempts,
			InitialBackoff:      cfg.Ingest.InitialBackoff,
			MaxBackoff:          cfg.Ingest.MaxBackoff,
			TransactionPerBatch: cfg.Ingest.TransactionPerBatch,
		},
	}
	if pipeline.BatchSize > 0 {
		sinkCfg.BatchSize = pipeline.BatchSize
	}
	if *batchSize > 0 {
		sinkCfg.BatchSize = *batchSize
	}

	var s *sink.Sink
	if *dryRun {
		logger.Info("dry run: writes stay in memory")
		s = sink.New(graph.NewMemoryClient(), sinkCfg, logger)
	} else {
		s, err = sink.Open(ctx, name, graph.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
			TxTimeout:      cfg.Graph.TxTimeout,
		}, sinkCfg, logger)
		if err != nil {
			logger.Error("failed to open connector", "error", err, "connector", name)
			os.Exit(1)
		}
	}

	if err := s.Start(ctx); err != nil {
		logger.Error("failed to start sink", "error", err)
		os.Exit(1)
	}

	input, closeInput, err := openRecords(*recordsPath)
	if err != nil {
		logger.Error("failed to open records", "error", err, "path", *recordsPath)
		_ = s.Stop(context.Background())
		os.Exit(1)
	}
	defer closeInput()

	facts := make(chan fact.Fact, 256)
	streamErr := make(chan error, 1)
	go func() {
		defer close(facts)
		streamErr <- streamFacts(ctx, input, interpreter, facts, logger)
	}()

	start := time.Now()
	stats, runErr := s.Run(ctx, facts)
	// Unblock the streaming goroutine if the run ended before the stream did.
	cancel()
	stopErr := s.Stop(context.Background())

	logger.Info("ingestion finished",
		"connector", name,
		"nodes", stats.NodesUpserted,
		"relationships", stats.RelationshipsUpserted,
		"skipped", s.Skipped(),
		"duration", time.Since(start).String(),
	)

	if err := <-streamErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("record stream failed", "error", err)
		os.Exit(1)
	}
	if runErr != nil {
		logger.Error("ingestion failed", "error", runErr)
		os.Exit(1)
	}
	if stopErr != nil {
		logger.Error("shutdown failed", "error", stopErr)
		os.Exit(1)
	}
}

func openRecords(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return file, func() { _ = file.Close() }, nil
}

// streamFacts decodes records lazily and feeds interpreted facts into the
// channel. Both a top-level JSON array and newline-delimited objects are
// accepted: for an array the opening token is consumed first, then elements
// stream one at a time either way.
func streamFacts(ctx context.Context, input io.Reader, interpreter *interpret.Interpreter, out chan<- fact.Fact, logger *slog.Logger) error {
	buffered := bufio.NewReader(input)
	decoder := json.NewDecoder(buffered)

	isArray, err := peekArray(buffered)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read records: %w", err)
	}
	if isArray {
		if _, err := decoder.Token(); err != nil {
			return fmt.Errorf("read array start: %w", err)
		}
	}

	for decoder.More() {
		var record map[string]any
		if err := decoder.Decode(&record); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		if err := feedRecords(ctx, []map[string]any{record}, interpreter, out, logger); err != nil {
			return err
		}
	}
	return nil
}

// peekArray skips leading whitespace and reports whether the stream opens
// with a JSON array.
func peekArray(r *bufio.Reader) (bool, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return false, err
		}
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			if err := r.UnreadByte(); err != nil {
				return false, err
			}
			return b == '[', nil
		}
	}
}

func feedRecords(ctx context.Context, records []map[string]any, interpreter *interpret.Interpreter, out chan<- fact.Fact, logger *slog.Logger) error {
	for _, record := range records {
		facts, err := interpreter.Interpret(record)
		if err != nil {
			logger.Warn("skipping uninterpretable record", "error", err)
			continue
		}
		for _, f := range facts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- f:
			}
		}
	}
	return nil
}

func serveMetrics(logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", "error", err)
	}
}
