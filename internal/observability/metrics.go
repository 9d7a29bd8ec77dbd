package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_flash"

// Metrics holds the Prometheus counters, histograms, and gauges for the flash track pipeline.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration     prometheus.Histogram
	PipelineRunning prometheus.Gauge

	TrajectorySamples prometheus.Gauge
	ScansListed       prometheus.Gauge
	JoinResults       *prometheus.CounterVec // labels: result={matched,unmatched_scan,unmatched_sample}

	// Aggregation metrics.
	PairsAggregated prometheus.Counter
	PairsSkipped    prometheus.Counter
	EventsCounted   prometheus.Histogram
	ScanCache       *prometheus.CounterVec // labels: result={hit,miss}

	// Fetch metrics.
	Downloads         *prometheus.CounterVec // labels: outcome={downloaded,exists,error}
	FetchBreakerState prometheus.Gauge       // 0 closed, 1 half-open, 2 open

	ObservationsPublished prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PipelineRunning,
		m.TrajectorySamples,
		m.ScansListed,
		m.JoinResults,
		m.PairsAggregated,
		m.PairsSkipped,
		m.EventsCounted,
		m.ScanCache,
		m.Downloads,
		m.FetchBreakerState,
		m.ObservationsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress.",
		}),
		TrajectorySamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trajectory_samples",
			Help:      "Number of samples in the most recent trajectory.",
		}),
		ScansListed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scans_listed",
			Help:      "Number of scans returned by the catalog in the most recent run.",
		}),
		JoinResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_results_total",
			Help:      "Join outcomes by side.",
		}, []string{"result"}),
		PairsAggregated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_aggregated_total",
			Help:      "Joined pairs turned into observations.",
		}),
		PairsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_skipped_total",
			Help:      "Joined pairs skipped because scan data was unavailable.",
		}),
		EventsCounted: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "events_per_observation",
			Help:      "Event count of each aggregated observation.",
			Buckets:   []float64{0, 1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		ScanCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_cache_total",
			Help:      "Scan event cache lookups by result.",
		}, []string{"result"}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Scan file downloads by outcome.",
		}, []string{"outcome"}),
		FetchBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_breaker_state",
			Help:      "Object storage circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
		ObservationsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_published_total",
			Help:      "Observations written to the sink topic.",
		}),
	}
}
