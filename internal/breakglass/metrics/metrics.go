package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for break-glass access.
type Metrics struct {
	Registered     prometheus.Counter
	Revoked        prometheus.Counter
	AccessGranted  *prometheus.CounterVec
	AccessDenied   *prometheus.CounterVec
	AccessLogFails prometheus.Counter
	ExpiredSwept   prometheus.Counter
}

// New registers all break-glass metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registered: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_breakglass_registered_total",
			Help: "Break-glass authorizations registered",
		}),
		Revoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_breakglass_revoked_total",
			Help: "Break-glass authorizations revoked before expiry",
		}),
		AccessGranted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_breakglass_access_total",
			Help: "Admin accesses admitted under an active authorization",
		}, []string{"table", "operation"}),
		AccessDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_breakglass_access_denied_total",
			Help: "Admin accesses refused for lack of an active authorization",
		}, []string{"table", "operation"}),
		AccessLogFails: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_breakglass_access_log_failures_total",
			Help: "Admin accesses refused because the access log could not be written",
		}),
		ExpiredSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_breakglass_expired_reported_total",
			Help: "Authorizations reported as expired by the sweep",
		}),
	}
}
