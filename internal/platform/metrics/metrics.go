package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level Prometheus metrics shared across handlers.
// Module-specific metrics live next to their module.
type Metrics struct {
	RequestLatency *prometheus.HistogramVec
	RequestsTotal  *prometheus.CounterVec
}

// New creates and registers all shared Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dustledger_request_duration_seconds",
			Help:    "Latency of ledger call-surface requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dustledger_requests_total",
			Help: "Total ledger call-surface requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
}

// ObserveRequest records one completed request.
func (m *Metrics) ObserveRequest(operation, outcome string, seconds float64) {
	m.RequestsTotal.WithLabelValues(operation, outcome).Inc()
	m.RequestLatency.WithLabelValues(operation).Observe(seconds)
}
