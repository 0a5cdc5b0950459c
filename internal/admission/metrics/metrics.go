package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes admission gate counters.
type Metrics struct {
	ChecksTotal *prometheus.CounterVec
	BansTotal   prometheus.Counter
	ActiveBans  prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dustledger",
			Subsystem: "admission",
			Name:      "checks_total",
			Help:      "Admission checks by action and verdict.",
		}, []string{"action", "verdict"}),
		BansTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dustledger",
			Subsystem: "admission",
			Name:      "bans_total",
			Help:      "Bans issued after repeated violations.",
		}),
		ActiveBans: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dustledger",
			Subsystem: "admission",
			Name:      "active_bans",
			Help:      "Bans currently in force.",
		}),
	}
}

// RecordCheck is nil-safe so services without metrics skip recording.
func (m *Metrics) RecordCheck(action, verdict string) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(action, verdict).Inc()
}

func (m *Metrics) RecordBan() {
	if m == nil {
		return
	}
	m.BansTotal.Inc()
	m.ActiveBans.Inc()
}

func (m *Metrics) RecordBanLifted() {
	if m == nil {
		return
	}
	m.ActiveBans.Dec()
}
