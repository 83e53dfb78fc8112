package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// report service.
type Metrics struct {
	ReportsSubmitted   prometheus.Counter
	TransitionsApplied *prometheus.CounterVec // labels: op={approve,resolve}
	TransitionsRefused *prometheus.CounterVec // labels: op={approve,resolve}
	ViewsRecorded      prometheus.Counter
	Classifications    *prometheus.CounterVec // labels: priority={medium,high,critical}
	ReportsStored      prometheus.Gauge

	// Declustering metrics.
	DeclusterBatchSize prometheus.Histogram

	// External lookup metrics (weather + reverse geocoding).
	LookupRequests *prometheus.CounterVec   // labels: provider={weather,geocode}, outcome={success,error,fallback}
	LookupDuration *prometheus.HistogramVec // labels: provider={weather,geocode}
	WeatherCache   *prometheus.CounterVec   // labels: result={hit,miss}

	// Event feed metrics.
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReportsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civic_report",
			Name:      "reports_submitted_total",
			Help:      "Total reports accepted for submission.",
		}),
		TransitionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic_report",
			Name:      "transitions_applied_total",
			Help:      "Lifecycle transitions that passed their preconditions and mutated a report.",
		}, []string{"op"}),
		TransitionsRefused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic_report",
			Name:      "transitions_refused_total",
			Help:      "Lifecycle transitions refused as silent no-ops by precondition checks.",
		}, []string{"op"}),
		ViewsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civic_report",
			Name:      "views_recorded_total",
			Help:      "Total report view events recorded.",
		}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic_report",
			Name:      "hazard_classifications_total",
			Help:      "Hazard classifications at submission, by resulting priority.",
		}, []string{"priority"}),
		ReportsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "civic_report",
			Name:      "reports_stored",
			Help:      "Number of reports currently held by the store.",
		}),
		DeclusterBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "civic_report",
			Name:      "decluster_batch_size",
			Help:      "Number of reports per decluster computation.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic_report",
			Name:      "lookup_requests_total",
			Help:      "External lookup requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		LookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "civic_report",
			Name:      "lookup_duration_seconds",
			Help:      "External lookup request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic_report",
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civic_report",
			Name:      "events_published_total",
			Help:      "Report events published to the event feed.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civic_report",
			Name:      "publish_errors_total",
			Help:      "Failed event feed publishes.",
		}),
	}

	prometheus.MustRegister(
		m.ReportsSubmitted,
		m.TransitionsApplied,
		m.TransitionsRefused,
		m.ViewsRecorded,
		m.Classifications,
		m.ReportsStored,
		m.DeclusterBatchSize,
		m.LookupRequests,
		m.LookupDuration,
		m.WeatherCache,
		m.EventsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportsSubmitted:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "civic_report", Name: "reports_submitted_total"}),
		TransitionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "civic_report", Name: "transitions_applied_total"}, []string{"op"}),
		TransitionsRefused: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "civic_report", Name: "transitions_refused_total"}, []string{"op"}),
		ViewsRecorded:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "civic_report", Name: "views_recorded_total"}),
		Classifications:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "civic_report", Name: "hazard_classifications_total"}, []string{"priority"}),
		ReportsStored:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "civic_report", Name: "reports_stored"}),
		DeclusterBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "civic_report", Name: "decluster_batch_size"}),
		LookupRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "civic_report", Name: "lookup_requests_total"}, []string{"provider", "outcome"}),
		LookupDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "civic_report", Name: "lookup_duration_seconds"}, []string{"provider"}),
		WeatherCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "civic_report", Name: "weather_cache_total"}, []string{"result"}),
		EventsPublished:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "civic_report", Name: "events_published_total"}),
		PublishErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "civic_report", Name: "publish_errors_total"}),
	}
}
