package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds all Prometheus metrics for the aggregation pipeline.
type PipelineMetrics struct {
	EventsTotal       *prometheus.CounterVec
	BatchesSealed     prometheus.Counter
	BatchRecords      prometheus.Histogram
	BufferDepth       prometheus.Gauge
	WALActive         prometheus.Gauge
	QueriesTotal      *prometheus.CounterVec
	APIKeyCacheHits   prometheus.Counter
	APIKeyCacheMisses prometheus.Counter
}

// NewPipelineMetrics initializes and registers the Prometheus metrics.
func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		EventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playledger",
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Total number of ingested streaming events by status.",
		}, []string{"status"}), // status: accepted, error_parse, error_validate, error_buffer, error_media_type
		BatchesSealed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "playledger",
			Subsystem: "seal",
			Name:      "batches_sealed_total",
			Help:      "Total number of batches sealed into the content store.",
		}),
		BatchRecords: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "playledger",
			Subsystem: "seal",
			Name:      "batch_records",
			Help:      "Number of play logs per sealed batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		BufferDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "playledger",
			Subsystem: "seal",
			Name:      "buffer_depth_gauge",
			Help:      "Play logs currently buffered under the sealable window key.",
		}),
		WALActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "playledger",
			Subsystem: "ingest",
			Name:      "wal_active_gauge",
			Help:      "Indicates if the write-ahead log is currently active (1 for active, 0 for inactive).",
		}),
		QueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playledger",
			Subsystem: "query",
			Name:      "queries_total",
			Help:      "Total number of history queries by strategy and status.",
		}, []string{"strategy", "status"}),
		APIKeyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "playledger",
			Subsystem: "auth",
			Name:      "api_key_cache_hits_total",
			Help:      "Total number of API key cache hits.",
		}),
		APIKeyCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "playledger",
			Subsystem: "auth",
			Name:      "api_key_cache_misses_total",
			Help:      "Total number of API key cache misses.",
		}),
	}
}
