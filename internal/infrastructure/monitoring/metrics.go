package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "genctl"

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can run without a collector.
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	Submissions      *prometheus.CounterVec
	SessionsFinished *prometheus.CounterVec
	Warnings         prometheus.Counter

	// Progress channel metrics
	ChannelsOpen    prometheus.Gauge
	ChannelMessages *prometheus.CounterVec
	ChannelDropped  *prometheus.CounterVec

	// Cache metrics
	HistoryRefreshes *prometheus.CounterVec
	CatalogLoads     *prometheus.CounterVec

	// Backend client metrics
	BackendRequests *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec

	// Local API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a metrics collector backed by its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		Submissions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Generation submissions by outcome",
			},
			[]string{"outcome"},
		),
		SessionsFinished: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_finished_total",
				Help:      "Generation sessions that reached a terminal status",
			},
			[]string{"status"},
		),
		Warnings: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_warnings_total",
				Help:      "Error fragments recorded on otherwise normal status updates",
			},
		),
		ChannelsOpen: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "progress_channels_open",
				Help:      "Currently open progress channels",
			},
		),
		ChannelMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "progress_messages_total",
				Help:      "Progress channel messages by type",
			},
			[]string{"type"},
		),
		ChannelDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "progress_messages_dropped_total",
				Help:      "Progress channel messages discarded by reason",
			},
			[]string{"reason"},
		),
		HistoryRefreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_refreshes_total",
				Help:      "History cache loads by outcome",
			},
			[]string{"outcome"},
		),
		CatalogLoads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_loads_total",
				Help:      "Framework catalog loads by outcome",
			},
			[]string{"outcome"},
		),
		BackendRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_requests_total",
				Help:      "Requests sent to the generation backend",
			},
			[]string{"endpoint", "status"},
		),
		BackendDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_request_duration_seconds",
				Help:      "Generation backend request duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Local API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Local API request duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus exposition handler for this collector.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordSubmission records a submit outcome: accepted, rejected or invalid.
func (m *Metrics) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

// RecordSessionFinished records a session reaching a terminal status.
func (m *Metrics) RecordSessionFinished(status string) {
	if m == nil {
		return
	}
	m.SessionsFinished.WithLabelValues(status).Inc()
}

// IncWarnings counts a partial warning.
func (m *Metrics) IncWarnings() {
	if m == nil {
		return
	}
	m.Warnings.Inc()
}

// IncChannels counts an opened progress channel.
func (m *Metrics) IncChannels() {
	if m == nil {
		return
	}
	m.ChannelsOpen.Inc()
}

// DecChannels counts a released progress channel.
func (m *Metrics) DecChannels() {
	if m == nil {
		return
	}
	m.ChannelsOpen.Dec()
}

// RecordChannelMessage counts an accepted inbound message.
func (m *Metrics) RecordChannelMessage(msgType string) {
	if m == nil {
		return
	}
	m.ChannelMessages.WithLabelValues(msgType).Inc()
}

// RecordChannelDropped counts a discarded inbound message.
func (m *Metrics) RecordChannelDropped(reason string) {
	if m == nil {
		return
	}
	m.ChannelDropped.WithLabelValues(reason).Inc()
}

// RecordHistoryRefresh records a history load outcome.
func (m *Metrics) RecordHistoryRefresh(outcome string) {
	if m == nil {
		return
	}
	m.HistoryRefreshes.WithLabelValues(outcome).Inc()
}

// RecordCatalogLoad records a catalog load outcome.
func (m *Metrics) RecordCatalogLoad(outcome string) {
	if m == nil {
		return
	}
	m.CatalogLoads.WithLabelValues(outcome).Inc()
}

// RecordBackendRequest records one request to the generation backend.
func (m *Metrics) RecordBackendRequest(endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequests.WithLabelValues(endpoint, status).Inc()
	m.BackendDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordHTTPRequest records one local API request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
