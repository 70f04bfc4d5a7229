package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	InteractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "interactions_total",
		Help: "Interactions applied, by content type, action and outcome",
	}, []string{"content_type", "action", "outcome"})

	CounterRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "counter_write_conflicts_total",
		Help: "Conditional counter writes that lost a race and were retried",
	}, []string{"content_type"})

	CounterFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "counter_update_failures_total",
		Help: "Counter updates abandoned after exhausting retries",
	}, []string{"content_type"})

	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Notification events by kind and delivery status",
	}, []string{"kind", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// MustRegister registers the collectors.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		InteractionsTotal,
		CounterRetriesTotal,
		CounterFailuresTotal,
		NotificationsTotal,
		HTTPRequestDuration,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveInteraction records one orchestrator call.
func ObserveInteraction(contentType, action string, err error, changed bool) {
	outcome := "changed"
	switch {
	case err != nil:
		outcome = "error"
	case !changed:
		outcome = "noop"
	}
	if contentType == "" {
		contentType = "unknown"
	}
	InteractionsTotal.WithLabelValues(contentType, action, outcome).Inc()
}

// ObserveNotification records one notification delivery attempt.
func ObserveNotification(kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NotificationsTotal.WithLabelValues(kind, status).Inc()
}

// ObserveHTTP records request latency.
func ObserveHTTP(method, route string, status int, start time.Time) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestDuration.WithLabelValues(method, route, http.StatusText(status)).Observe(time.Since(start).Seconds())
}
