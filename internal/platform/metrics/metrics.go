package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the radio service.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	scansTotal         prometheus.Counter
	sessionsCreated    prometheus.Counter
	sessionsReaped     prometheus.Counter
	decodeOpens        prometheus.Counter
	decodeOpenFailures prometheus.Counter
	pushFailures       prometheus.Counter
	streamFailures     prometheus.Counter
	hardResets         prometheus.Counter
	sessions           prometheus.Gauge
	decodingSessions   prometheus.Gauge
}

// New creates and registers Prometheus metrics for the radio service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_http_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_http_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		scansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_scans_total",
			Help: "Total number of spatial scan and reconciliation cycles",
		}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_sessions_created_total",
			Help: "Total number of stream sessions created",
		}),
		sessionsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_sessions_reaped_total",
			Help: "Total number of stream sessions removed after fading to silence",
		}),
		decodeOpens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_decode_opens_total",
			Help: "Total number of decode handles opened",
		}),
		decodeOpenFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_decode_open_failures_total",
			Help: "Total number of failed decode opens",
		}),
		pushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_volume_push_failures_total",
			Help: "Total number of volume pushes rejected by a decode handle",
		}),
		streamFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_stream_failures_total",
			Help: "Total number of streams the backend reported as failed",
		}),
		hardResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_hard_resets_total",
			Help: "Total number of hard resets caused by a missing listener",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "radio_sessions",
			Help: "Number of stream sessions in the registry",
		}),
		decodingSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "radio_decoding_sessions",
			Help: "Number of stream sessions holding a decode handle",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.scansTotal,
		m.sessionsCreated,
		m.sessionsReaped,
		m.decodeOpens,
		m.decodeOpenFailures,
		m.pushFailures,
		m.streamFailures,
		m.hardResets,
		m.sessions,
		m.decodingSessions,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncScans increments the scan counter.
func (m *Metrics) IncScans() {
	m.scansTotal.Inc()
}

// IncSessionsCreated increments the created sessions counter.
func (m *Metrics) IncSessionsCreated() {
	m.sessionsCreated.Inc()
}

// IncSessionsReaped increments the reaped sessions counter.
func (m *Metrics) IncSessionsReaped() {
	m.sessionsReaped.Inc()
}

// IncDecodeOpens increments the decode opens counter.
func (m *Metrics) IncDecodeOpens() {
	m.decodeOpens.Inc()
}

// IncDecodeOpenFailures increments the failed decode opens counter.
func (m *Metrics) IncDecodeOpenFailures() {
	m.decodeOpenFailures.Inc()
}

// IncVolumePushFailures increments the failed volume pushes counter.
func (m *Metrics) IncVolumePushFailures() {
	m.pushFailures.Inc()
}

// IncStreamFailures increments the failed streams counter.
func (m *Metrics) IncStreamFailures() {
	m.streamFailures.Inc()
}

// IncHardResets increments the hard resets counter.
func (m *Metrics) IncHardResets() {
	m.hardResets.Inc()
}

// SetSessions sets the session gauges: all sessions and those currently decoding.
func (m *Metrics) SetSessions(total, decoding int) {
	m.sessions.Set(float64(total))
	m.decodingSessions.Set(float64(decoding))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. session counts).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
