// Package metrics defines Prometheus metrics for the connector.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	NodesUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphsink_nodes_upserted_total",
			Help: "Nodes created or updated by committed flush cycles",
		},
	)

	RelationshipsUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphsink_relationships_upserted_total",
			Help: "Relationships created or updated by committed flush cycles",
		},
	)

	PropertiesSet = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphsink_properties_set_total",
			Help: "Properties written by committed flush cycles",
		},
	)

	RetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphsink_write_retries_total",
			Help: "Transient write failures that triggered a retry",
		},
	)

	TerminalFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphsink_terminal_failures_total",
			Help: "Flush cycles abandoned with a terminal error",
		},
		[]string{"kind", "type"},
	)

	NormalizationSkips = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphsink_normalization_skips_total",
			Help: "Records skipped due to malformed key fields",
		},
	)

	FlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphsink_flush_duration_seconds",
			Help:    "Wall time of one flush cycle including retries",
			Buckets: prometheus.DefBuckets,
		},
	)

	PendingFacts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphsink_pending_facts",
			Help: "Deduplicated facts waiting for the next flush",
		},
	)
)

// Register registers all connector metrics with the given registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(
		NodesUpserted,
		RelationshipsUpserted,
		PropertiesSet,
		RetriesTotal,
		TerminalFailures,
		NormalizationSkips,
		FlushDuration,
		PendingFacts,
	)
}
