package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "precip_regions"

// Metrics holds the Prometheus collectors for extraction runs and the
// series API.
type Metrics struct {
	RegionsProcessed *prometheus.CounterVec // labels: granularity
	RegionFailures   *prometheus.CounterVec // labels: granularity, reason
	RegionsSkipped   *prometheus.CounterVec // labels: granularity
	GridLoadDuration prometheus.Histogram
	RunDuration      *prometheus.HistogramVec // labels: granularity

	SeriesRequests *prometheus.CounterVec // labels: outcome={ok,not_found,bad_request,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RegionsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_processed_total",
			Help:      "Regions whose series were computed, by granularity.",
		}, []string{"granularity"}),
		RegionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_failures_total",
			Help:      "Regions that fell back to an all-NaN series, by granularity and reason.",
		}, []string{"granularity", "reason"}),
		RegionsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_skipped_total",
			Help:      "Regions omitted because their daily series was absent.",
		}, []string{"granularity"}),
		GridLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grid_load_duration_seconds",
			Help:      "Time to read one gridded dataset into memory.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extraction run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 300, 900, 1800, 3600},
		}, []string{"granularity"}),
		SeriesRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_series_requests_total",
			Help:      "Series API requests by outcome.",
		}, []string{"outcome"}),
	}

	prometheus.MustRegister(
		m.RegionsProcessed,
		m.RegionFailures,
		m.RegionsSkipped,
		m.GridLoadDuration,
		m.RunDuration,
		m.SeriesRequests,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can build as many as they need.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RegionsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "regions_processed_total"}, []string{"granularity"}),
		RegionFailures:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "region_failures_total"}, []string{"granularity", "reason"}),
		RegionsSkipped:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "regions_skipped_total"}, []string{"granularity"}),
		GridLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "grid_load_duration_seconds"}),
		RunDuration:      prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "run_duration_seconds"}, []string{"granularity"}),
		SeriesRequests:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "http_series_requests_total"}, []string{"outcome"}),
	}
}
