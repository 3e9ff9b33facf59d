// Package metrics exposes game counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "weearn"

// Metrics groups every collector the engine updates.
type Metrics struct {
	Clicks       *prometheus.CounterVec
	Balance      prometheus.Gauge
	Rate         prometheus.Gauge
	BlockChanges prometheus.Counter
	Purchases    *prometheus.CounterVec
	Rejections   *prometheus.CounterVec
	Alerts       prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Clicks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "clicks_total", Help: "Clicks applied to the ledger.",
		}, []string{"source"}),
		Balance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "balance", Help: "Current ledger balance.",
		}),
		Rate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "market_rate", Help: "Click value of the current block.",
		}),
		BlockChanges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "block_changes_total", Help: "Observed market block transitions.",
		}),
		Purchases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "purchases_total", Help: "Successful purchases by flow.",
		}, []string{"flow"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rejections_total", Help: "Rejected intents by reason.",
		}, []string{"reason"}),
		Alerts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "market_alerts_total", Help: "Bull/Moon alerts sent.",
		}),
	}
}
