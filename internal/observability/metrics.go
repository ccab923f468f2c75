package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pandora_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Upstream measurement API.
	UpstreamRequests *prometheus.CounterVec   // labels: endpoint={data,compare}, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: endpoint={data,compare}

	// Views and sessions.
	ViewsActive   prometheus.Gauge
	Sessions      prometheus.Gauge
	FigureRenders *prometheus.CounterVec // labels: view={timeseries,comparison}, format={json,png}

	// Fetch event pipeline.
	PipelineRunning         prometheus.Gauge
	FetchEventsQueued       prometheus.Counter
	FetchEventsDropped      prometheus.Counter
	FetchEventsPublished    prometheus.Counter
	PublishErrors           prometheus.Counter
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all dashboard metrics and registers them with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Measurement API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Measurement API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		ViewsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "views_active",
			Help:      "Open time-series and comparison views.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Browser sessions holding at least one open page.",
		}),
		FigureRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "figure_renders_total",
			Help:      "Figures served by view and format.",
		}, []string{"view", "format"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_event_pipeline_running",
			Help:      "1 when the fetch event pipeline is active, 0 when shut down.",
		}),
		FetchEventsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_events_queued_total",
			Help:      "Fetch events accepted into the publish queue.",
		}),
		FetchEventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_events_dropped_total",
			Help:      "Fetch events dropped because the publish queue was full.",
		}),
		FetchEventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_events_published_total",
			Help:      "Fetch events written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_event_publish_errors_total",
			Help:      "Failed fetch event batch writes.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_event_batch_size",
			Help:      "Number of fetch events per published batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_event_batch_duration_seconds",
			Help:      "Duration of a fetch event batch write.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}

	reg.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.ViewsActive,
		m.Sessions,
		m.FigureRenders,
		m.PipelineRunning,
		m.FetchEventsQueued,
		m.FetchEventsDropped,
		m.FetchEventsPublished,
		m.PublishErrors,
		m.BatchSize,
		m.BatchProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		UpstreamRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "upstream_requests_total"}, []string{"endpoint", "outcome"}),
		UpstreamDuration:        prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "upstream_request_duration_seconds"}, []string{"endpoint"}),
		ViewsActive:             prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "views_active"}),
		Sessions:                prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "sessions"}),
		FigureRenders:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "figure_renders_total"}, []string{"view", "format"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "fetch_event_pipeline_running"}),
		FetchEventsQueued:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "fetch_events_queued_total"}),
		FetchEventsDropped:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "fetch_events_dropped_total"}),
		FetchEventsPublished:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "fetch_events_published_total"}),
		PublishErrors:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "fetch_event_publish_errors_total"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "fetch_event_batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "fetch_event_batch_duration_seconds"}),
	}
}
