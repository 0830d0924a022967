// Package metrics provides vaultd's Prometheus metrics, grounded on the
// teacher's pkg/metrics/prometheus adapters and internal/adapter/nsm's
// nil-receiver pattern: every method is safe to call on a nil *Metrics, so
// callers that run with metrics disabled never need a branch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector vaultd reports through. Fields
// are exported so cmd/vaultd can wire them into an http.Handler via
// promhttp, but all recording happens through the methods below.
type Metrics struct {
	SessionsOpened   prometheus.Counter
	SessionsClosed   prometheus.Counter
	SessionsRejected prometheus.Counter
	SessionsActive   prometheus.Gauge

	CommandsTotal    *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
	CommandErrors    *prometheus.CounterVec

	UploadChunksTotal   prometheus.Counter
	DownloadChunksTotal prometheus.Counter
	UploadBytesTotal    prometheus.Counter
	DownloadBytesTotal  prometheus.Counter

	JanitorReapsTotal prometheus.Counter
}

// New creates and registers vaultd's metrics. Pass nil to build an
// unregistered instance (tests, or metrics disabled); pass a
// prometheus.Registerer (typically prometheus.NewRegistry()) to register
// for real.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_sessions_opened_total",
			Help: "Total sessions accepted.",
		}),
		SessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_sessions_closed_total",
			Help: "Total sessions closed, for any reason.",
		}),
		SessionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_sessions_rejected_total",
			Help: "Total connections rejected at capacity.",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaultd_sessions_active",
			Help: "Currently open sessions.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultd_commands_total",
			Help: "Total commands dispatched, by command name.",
		}, []string{"command"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vaultd_command_duration_seconds",
			Help:    "Command handler latency in seconds, by command name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		CommandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultd_command_errors_total",
			Help: "Total command errors, by command name and error kind.",
		}, []string{"command", "kind"}),
		UploadChunksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_upload_chunks_total",
			Help: "Total upload chunks accepted.",
		}),
		DownloadChunksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_download_chunks_total",
			Help: "Total download chunks served.",
		}),
		UploadBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_upload_bytes_total",
			Help: "Total bytes received via uploads.",
		}),
		DownloadBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_download_bytes_total",
			Help: "Total bytes sent via downloads.",
		}),
		JanitorReapsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_janitor_reaps_total",
			Help: "Total abandoned uploads reaped by the janitor.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SessionsOpened, m.SessionsClosed, m.SessionsRejected, m.SessionsActive,
			m.CommandsTotal, m.CommandDuration, m.CommandErrors,
			m.UploadChunksTotal, m.DownloadChunksTotal,
			m.UploadBytesTotal, m.DownloadBytesTotal,
			m.JanitorReapsTotal,
		)
	}
	return m
}

// SessionOpened implements session.ManagerMetrics.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsOpened.Inc()
	m.SessionsActive.Inc()
}

// SessionClosed implements session.ManagerMetrics.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsClosed.Inc()
	m.SessionsActive.Dec()
}

// SessionRejected implements session.ManagerMetrics.
func (m *Metrics) SessionRejected() {
	if m == nil {
		return
	}
	m.SessionsRejected.Inc()
}

// RecordCommand records one dispatched command's outcome.
func (m *Metrics) RecordCommand(name string, durationSeconds float64, errorKind string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(name).Inc()
	m.CommandDuration.WithLabelValues(name).Observe(durationSeconds)
	if errorKind != "" {
		m.CommandErrors.WithLabelValues(name, errorKind).Inc()
	}
}

func (m *Metrics) RecordUploadChunk(n int) {
	if m == nil {
		return
	}
	m.UploadChunksTotal.Inc()
	m.UploadBytesTotal.Add(float64(n))
}

func (m *Metrics) RecordDownloadChunk(n int) {
	if m == nil {
		return
	}
	m.DownloadChunksTotal.Inc()
	m.DownloadBytesTotal.Add(float64(n))
}

func (m *Metrics) RecordJanitorReap() {
	if m == nil {
		return
	}
	m.JanitorReapsTotal.Inc()
}
