package utils

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the application collectors. Each App gets its own registry.
type Metrics struct {
	Registry        *prometheus.Registry
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	QuizSubmissions *prometheus.CounterVec
	Reorders        *prometheus.CounterVec
	WebhookEvents   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apollo_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "apollo_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		QuizSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apollo_quiz_submissions_total",
			Help: "Graded quiz attempts by outcome.",
		}, []string{"passed"}),
		Reorders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apollo_reorders_total",
			Help: "Sibling reorder operations by kind and result.",
		}, []string{"kind", "result"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apollo_payment_webhook_events_total",
			Help: "Payment webhook events by type and result.",
		}, []string{"type", "result"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.QuizSubmissions,
		m.Reorders,
		m.WebhookEvents,
	)
	return m
}

// The helpers below accept a nil receiver so services can run without metrics.

func (m *Metrics) QuizSubmitted(passed bool) {
	if m == nil {
		return
	}
	m.QuizSubmissions.WithLabelValues(strconv.FormatBool(passed)).Inc()
}

func (m *Metrics) Reordered(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.Reorders.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) WebhookHandled(eventType, result string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(eventType, result).Inc()
}
