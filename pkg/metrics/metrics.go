// Package metrics exposes Prometheus instrumentation for the scheduling engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the engine.
type Metrics struct {
	registry                  *prometheus.Registry
	RequestsTotal             prometheus.Counter
	ErrorsTotal               prometheus.Counter
	SessionsGeneratedTotal    prometheus.Counter
	NotificationsSentTotal    prometheus.Counter
	NotificationsFailedTotal  prometheus.Counter
	NotificationsSkippedTotal prometheus.Counter
	ProgressRejectedTotal     prometheus.Counter
	DueJobsBacklog            prometheus.Gauge
}

// New creates and registers engine metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webinar_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		ErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webinar_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		SessionsGeneratedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webinar_sessions_generated_total",
			Help: "Total number of sessions materialized by the scheduler",
		}),
		NotificationsSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webinar_notifications_sent_total",
			Help: "Total number of notification jobs handed to the sender",
		}),
		NotificationsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webinar_notifications_failed_total",
			Help: "Total number of notification delivery failures",
		}),
		NotificationsSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webinar_notifications_skipped_total",
			Help: "Total number of notification jobs skipped because their precondition no longer held",
		}),
		ProgressRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webinar_progress_rejected_total",
			Help: "Total number of progress heartbeats rejected for exceeding the live-pacing ceiling",
		}),
		DueJobsBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webinar_due_jobs_backlog",
			Help: "Number of due notification jobs seen by the last drain",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.ErrorsTotal,
		m.SessionsGeneratedTotal,
		m.NotificationsSentTotal,
		m.NotificationsFailedTotal,
		m.NotificationsSkippedTotal,
		m.ProgressRejectedTotal,
		m.DueJobsBacklog,
	)
	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
