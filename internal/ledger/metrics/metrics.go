package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes ledger accounting counters and gauges.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	BurnedTotal       prometheus.Counter
	CirculatingSupply prometheus.Gauge
	ReserveCoverage   prometheus.Gauge
	ActiveProposals   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dustledger",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		BurnedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dustledger",
			Subsystem: "ledger",
			Name:      "burned_dust_total",
			Help:      "Dust removed from circulation by burns.",
		}),
		CirculatingSupply: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dustledger",
			Subsystem: "ledger",
			Name:      "circulating_supply_dust",
			Help:      "Current circulating dust supply.",
		}),
		ReserveCoverage: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dustledger",
			Subsystem: "ledger",
			Name:      "reserve_coverage_ratio",
			Help:      "Backed supply over circulating supply.",
		}),
		ActiveProposals: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dustledger",
			Subsystem: "ledger",
			Name:      "active_proposals",
			Help:      "Governance proposals currently open for voting.",
		}),
	}
}

// RecordOperation is nil-safe so services without metrics skip recording.
func (m *Metrics) RecordOperation(kind, outcome string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordBurn(displayUnits float64) {
	if m == nil {
		return
	}
	m.BurnedTotal.Add(displayUnits)
}
