package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks compliance runs.
type Metrics struct {
	Runs        *prometheus.CounterVec
	Findings    *prometheus.GaugeVec
	RunDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_compliance_runs_total",
			Help: "Compliance audit runs by overall status",
		}, []string{"status"}),
		Findings: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "provenant_compliance_findings",
			Help: "Findings of the latest run by check and status",
		}, []string{"check", "status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "provenant_compliance_run_duration_seconds",
			Help:    "Duration of a full compliance run",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

func (m *Metrics) Observe(status string, seconds float64, byCheck map[string]map[string]int) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Observe(seconds)
	m.Findings.Reset()
	for check, counts := range byCheck {
		for st, n := range counts {
			m.Findings.WithLabelValues(check, st).Set(float64(n))
		}
	}
}
