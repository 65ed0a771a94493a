package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	Graph   GraphConfig
	Ingest  IngestConfig
	Metrics MetricsConfig
	Logging LoggingConfig
}

// GraphConfig describes connectivity to the graph database. Encryption
// follows the URI scheme (neo4j+s / bolt+s for TLS).
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	TxTimeout      time.Duration
}

// IngestConfig governs batching, flushing and retry behaviour of the
// write-back engine.
type IngestConfig struct {
	BatchSize      int
	FlushInterval  time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// TransactionPerBatch commits each batch in its own transaction
	// instead of one transaction per flush cycle. This trades cycle
	// atomicity for smaller transactions and must be opted into.
	TransactionPerBatch bool
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultLoggingLevel   = "info"
	defaultLoggingFormat  = "text"
	defaultGraphSessions  = 10
	defaultBatchSize      = 1000
	defaultMaxAttempts    = 3
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
	defaultMetricsAddr    = "127.0.0.1:9464"
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphSessions),
		},
		Ingest: IngestConfig{
			BatchSize:           parseIntWithDefault("INGEST_BATCH_SIZE", defaultBatchSize),
			MaxAttempts:         parseIntWithDefault("INGEST_MAX_ATTEMPTS", defaultMaxAttempts),
			InitialBackoff:      defaultInitialBackoff,
			MaxBackoff:          defaultMaxBackoff,
			TransactionPerBatch: parseBoolWithDefault("INGEST_TX_PER_BATCH", false),
		},
		Metrics: MetricsConfig{
			Enabled: parseBoolWithDefault("METRICS_ENABLED", false),
			Addr:    valueOrDefault("METRICS_ADDR", defaultMetricsAddr),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
	}

	var err error
	if cfg.Graph.TxTimeout, err = parseDuration("GRAPH_TX_TIMEOUT", 0); err != nil {
		return Config{}, err
	}
	if cfg.Ingest.FlushInterval, err = parseDuration("INGEST_FLUSH_INTERVAL", 0); err != nil {
		return Config{}, err
	}
	if cfg.Ingest.InitialBackoff, err = parseDuration("INGEST_INITIAL_BACKOFF", defaultInitialBackoff); err != nil {
		return Config{}, err
	}
	if cfg.Ingest.MaxBackoff, err = parseDuration("INGEST_MAX_BACKOFF", defaultMaxBackoff); err != nil {
		return Config{}, err
	}

	if cfg.Ingest.BatchSize <= 0 {
		return Config{}, fmt.Errorf("INGEST_BATCH_SIZE must be positive, got %d", cfg.Ingest.BatchSize)
	}
	if cfg.Ingest.MaxAttempts <= 0 {
		return Config{}, fmt.Errorf("INGEST_MAX_ATTEMPTS must be positive, got %d", cfg.Ingest.MaxAttempts)
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
