// Package observability wires Prometheus instrumentation for the API.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters for the telemetry API.
type Metrics struct {
	RequestsTotal         *prometheus.CounterVec // labels: method, status
	ObservationsCreated   prometheus.Counter
	QuarterLockRejections prometheus.Counter
}

// NewMetrics creates the API metrics and registers them with reg. Tests
// pass a fresh registry to avoid duplicate-registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bluewave",
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by method and status code.",
		}, []string{"method", "status"}),
		ObservationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bluewave",
			Name:      "observations_created_total",
			Help:      "Observations persisted via the ingest endpoint.",
		}),
		QuarterLockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bluewave",
			Name:      "quarter_lock_rejections_total",
			Help:      "Mutations rejected because the record is outside the current quarter.",
		}),
	}

	reg.MustRegister(m.RequestsTotal, m.ObservationsCreated, m.QuarterLockRejections)
	return m
}
