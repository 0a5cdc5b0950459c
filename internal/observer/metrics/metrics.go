package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes observability-layer gauges so dashboards can scrape the
// latest aggregates without calling the snapshot endpoint.
type Metrics struct {
	SnapshotsTotal prometheus.Counter
	Gini           prometheus.Gauge
	TopDecileShare prometheus.Gauge
	DormantRatio   prometheus.Gauge
	PatternsTotal  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SnapshotsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dustledger",
			Subsystem: "observer",
			Name:      "snapshots_total",
			Help:      "Economy snapshots taken.",
		}),
		Gini: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dustledger",
			Subsystem: "observer",
			Name:      "gini",
			Help:      "Wealth inequality coefficient from the latest snapshot.",
		}),
		TopDecileShare: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dustledger",
			Subsystem: "observer",
			Name:      "top_decile_share",
			Help:      "Wealth share of the richest decile from the latest snapshot.",
		}),
		DormantRatio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dustledger",
			Subsystem: "observer",
			Name:      "dormant_ratio",
			Help:      "Fraction of accounts inactive past the dormancy window.",
		}),
		PatternsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dustledger",
			Subsystem: "observer",
			Name:      "patterns_total",
			Help:      "Emergence detector verdicts by pattern and outcome.",
		}, []string{"pattern", "detected"}),
	}
}

// RecordSnapshot is nil-safe so services without metrics skip recording.
func (m *Metrics) RecordSnapshot(gini, topDecile, dormantRatio float64) {
	if m == nil {
		return
	}
	m.SnapshotsTotal.Inc()
	m.Gini.Set(gini)
	m.TopDecileShare.Set(topDecile)
	m.DormantRatio.Set(dormantRatio)
}

func (m *Metrics) RecordPattern(name string, detected bool) {
	if m == nil {
		return
	}
	verdict := "no"
	if detected {
		verdict = "yes"
	}
	m.PatternsTotal.WithLabelValues(name, verdict).Inc()
}
