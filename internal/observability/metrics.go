package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "atcf"

// Metrics holds the Prometheus counters, histograms, and gauges for the merge pipeline.
type Metrics struct {
	ObservationsConsumed prometheus.Counter
	NotificationsSent    prometheus.Counter
	PipelineRunning      prometheus.Gauge

	// Merge outcomes and per-bulletin failures.
	RecordsMerged      *prometheus.CounterVec // labels: outcome={appended,duplicate}
	ProcessErrors      *prometheus.CounterVec // labels: kind={parse,resolution,persist,other}
	CorruptLines       prometheus.Counter
	PositionsDropped   prometheus.Counter
	StormsResolved     *prometheus.CounterVec // labels: source={observation,xref,registry}
	ArchiveErrors      prometheus.Counter
	NotificationErrors prometheus.Counter

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Registry matcher metrics.
	RegistryRequests    *prometheus.CounterVec // labels: outcome={match,none,error}
	RegistryCache       *prometheus.CounterVec // labels: result={hit,miss}
	RegistryAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ObservationsConsumed,
		m.NotificationsSent,
		m.PipelineRunning,
		m.RecordsMerged,
		m.ProcessErrors,
		m.CorruptLines,
		m.PositionsDropped,
		m.StormsResolved,
		m.ArchiveErrors,
		m.NotificationErrors,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.RegistryRequests,
		m.RegistryCache,
		m.RegistryAPIDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ObservationsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_consumed_total",
			Help:      "Total observations read from the source.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total track-update notifications delivered.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		RecordsMerged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_merged_total",
			Help:      "Forecast records merged into track files by outcome.",
		}, []string{"outcome"}),
		ProcessErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_errors_total",
			Help:      "Observations skipped by failure kind.",
		}, []string{"kind"}),
		CorruptLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_lines_total",
			Help:      "Undecodable track file lines skipped while loading.",
		}),
		PositionsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_dropped_total",
			Help:      "Forecast positions rejected as invalid or beyond the track horizon.",
		}),
		StormsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storms_resolved_total",
			Help:      "Successful storm identity resolutions by source.",
		}, []string{"source"}),
		ArchiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_errors_total",
			Help:      "Bulletins that could not be archived.",
		}),
		NotificationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_errors_total",
			Help:      "Track-update notifications that failed to send.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of observations per extracted batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-merge-notify cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RegistryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_requests_total",
			Help:      "Storm registry match requests by outcome.",
		}, []string{"outcome"}),
		RegistryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_cache_total",
			Help:      "Storm registry cache lookups by result.",
		}, []string{"result"}),
		RegistryAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_api_duration_seconds",
			Help:      "Storm registry request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}
