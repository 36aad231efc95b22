package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climafetch_api_calls_total",
			Help: "Total ClimaCell timelines API calls",
		},
		[]string{"endpoint", "status"},
	)

	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "climafetch_api_latency_seconds",
			Help:    "ClimaCell API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climafetch_cache_operations_total",
			Help: "Cache blob reads and writes",
		},
		[]string{"document", "op", "result"},
	)

	SnapshotsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climafetch_snapshots_total",
			Help: "Snapshots built, by validity",
		},
		[]string{"result"},
	)

	HistoryWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climafetch_history_writes_total",
			Help: "History rows written",
		},
		[]string{"result"},
	)

	LastRunOutcome = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "climafetch_last_run_outcome",
			Help: "Outcome of the last run: 0 success, 1 no data, 2 failure",
		},
	)
)

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
