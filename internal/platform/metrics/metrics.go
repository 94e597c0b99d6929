// Package metrics exposes the Prometheus endpoint and process-level gauges.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds process-level gauges that are not owned by a domain package.
type Metrics struct {
	BuildInfo            *prometheus.GaugeVec
	ImmutabilityEnforced prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BuildInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "provenant_build_info",
			Help: "Build version of the running binary",
		}, []string{"version"}),
		ImmutabilityEnforced: factory.NewGauge(prometheus.GaugeOpts{
			Name: "provenant_immutability_enforced",
			Help: "1 when the storage immutability guard is enforced, 0 otherwise",
		}),
	}
}

func (m *Metrics) SetBuild(version string) {
	m.BuildInfo.WithLabelValues(version).Set(1)
}

func (m *Metrics) SetImmutabilityEnforced(enforced bool) {
	if enforced {
		m.ImmutabilityEnforced.Set(1)
		return
	}
	m.ImmutabilityEnforced.Set(0)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
