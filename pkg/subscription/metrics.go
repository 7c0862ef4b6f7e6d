package subscription

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the table's Prometheus collectors.
type Metrics struct {
	Subscriptions  *prometheus.GaugeVec
	Dispatched     *prometheus.CounterVec
	Merges         *prometheus.CounterVec
	HistoryExpired prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "groupcast",
			Subsystem: "subscription",
			Name:      "entries",
			Help:      "Subscriptions in the table by type",
		}, []string{"type"}),
		Dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupcast",
			Subsystem: "subscription",
			Name:      "dispatched_total",
			Help:      "Messages offered to the table by outcome",
		}, []string{"outcome"}),
		Merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupcast",
			Subsystem: "subscription",
			Name:      "merges_total",
			Help:      "Consolidation attempts by result",
		}, []string{"result"}),
		HistoryExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groupcast",
			Subsystem: "subscription",
			Name:      "history_expired_total",
			Help:      "History windows dropped after expiry",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Subscriptions, m.Dispatched, m.Merges, m.HistoryExpired)
	}
	return m
}

func (m *Metrics) subscribed(t Type, delta float64) {
	if m == nil {
		return
	}
	m.Subscriptions.WithLabelValues(t.String()).Add(delta)
}

func (m *Metrics) dispatched(matched bool) {
	if m == nil {
		return
	}
	outcome := "unmatched"
	if matched {
		outcome = "matched"
	}
	m.Dispatched.WithLabelValues(outcome).Inc()
}

func (m *Metrics) merged(result string) {
	if m == nil {
		return
	}
	m.Merges.WithLabelValues(result).Inc()
}

func (m *Metrics) expired(n int) {
	if m == nil || n == 0 {
		return
	}
	m.HistoryExpired.Add(float64(n))
}
