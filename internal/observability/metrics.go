package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "federation"

type Metrics struct {
	Registry *prometheus.Registry

	WebhooksTotal      *prometheus.CounterVec
	CheckoutsTotal     *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	StatusTransitions  *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		WebhooksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "webhooks_total",
			Help:      "Payment webhooks received, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		CheckoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "checkouts_total",
			Help:      "Checkouts created, by provider and entity type.",
		}, []string{"provider", "entity_type"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "attempts_total",
			Help:      "Notification delivery attempts, by channel and status.",
		}, []string{"channel", "status"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrollment",
			Name:      "status_transitions_total",
			Help:      "Entity payment status transitions, by entity type and target status.",
		}, []string{"entity_type", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.WebhooksTotal,
		m.CheckoutsTotal,
		m.NotificationsTotal,
		m.StatusTransitions,
		m.HTTPDuration,
	)
	return m
}

