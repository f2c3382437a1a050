package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AaronLay10/SemanticZoom/internal/events"
	"github.com/AaronLay10/SemanticZoom/internal/version"
)

const metricsNamespace = "semzoom"

// Metrics holds the viewer's Prometheus collectors. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	renderDuration  *prometheus.HistogramVec
	renderFailures  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	uploads         *prometheus.CounterVec
	sessions        prometheus.Gauge
	droppedUpdates  prometheus.Counter
}

// NewMetrics registers the viewer collectors, labelled with the viewer name.
func NewMetrics(viewerName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	constLabels := prometheus.Labels{"viewer": viewerName}
	factory := promauto.With(reg)
	start := time.Now()

	m := &Metrics{
		registry: reg,

		// renderDuration measures one surface draw, layout included.
		// Labels: surface (graph, annotation)
		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Subsystem:   "render",
			Name:        "duration_seconds",
			Help:        "Surface render duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"surface"}),

		renderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   "render",
			Name:        "failures_total",
			Help:        "Total failed surface renders",
			ConstLabels: constLabels,
		}, []string{"surface"}),

		// requestDuration measures mining service round trips.
		// Labels: op (discover, aggregate), outcome (ok, error)
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Subsystem:   "miner",
			Name:        "request_duration_seconds",
			Help:        "Mining service request duration in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"op", "outcome"}),

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   "miner",
			Name:        "requests_total",
			Help:        "Total mining service requests",
			ConstLabels: constLabels,
		}, []string{"op", "outcome"}),

		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "uploads_total",
			Help:        "Total event log uploads",
			ConstLabels: constLabels,
		}, []string{"outcome"}),

		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "sessions_active",
			Help:        "Number of open page sessions",
			ConstLabels: constLabels,
		}),

		droppedUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   "ws",
			Name:        "resyncs_total",
			Help:        "Times a slow page was resent a full snapshot",
			ConstLabels: constLabels,
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   metricsNamespace,
		Name:        "uptime_seconds",
		Help:        "Seconds since the viewer started",
		ConstLabels: constLabels,
	}, func() float64 { return time.Since(start).Seconds() })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   metricsNamespace,
		Name:        "event_subscribers",
		Help:        "Live event stream subscribers",
		ConstLabels: constLabels,
	}, func() float64 { return float64(events.SubscriberCount()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   metricsNamespace,
		Name:        "mqtt_connected",
		Help:        "Whether the MQTT broker is connected (1) or not (0)",
		ConstLabels: constLabels,
	}, func() float64 { return boolGauge(readinessSnapshot().mqttConnected) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   metricsNamespace,
		Name:        "postgres_connected",
		Help:        "Whether PostgreSQL is connected (1) or not (0)",
		ConstLabels: constLabels,
	}, func() float64 { return boolGauge(readinessSnapshot().postgresConnected) })

	factory.NewGauge(prometheus.GaugeOpts{
		Namespace:   metricsNamespace,
		Name:        "build_info",
		Help:        "Build information",
		ConstLabels: prometheus.Labels{"viewer": viewerName, "version": version.Version},
	}).Set(1)

	return m
}

// ObserveRender records one surface draw.
func (m *Metrics) ObserveRender(surface string, d time.Duration, err error) {
	m.renderDuration.WithLabelValues(surface).Observe(d.Seconds())
	if err != nil {
		m.renderFailures.WithLabelValues(surface).Inc()
	}
}

// ObserveRequest records one mining service request.
func (m *Metrics) ObserveRequest(op, outcome string, d time.Duration) {
	m.requestDuration.WithLabelValues(op, outcome).Observe(d.Seconds())
	m.requests.WithLabelValues(op, outcome).Inc()
}

// ObserveUpload counts an upload by outcome (ok, rejected, error).
func (m *Metrics) ObserveUpload(outcome string) {
	m.uploads.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
