package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ledger.
type Metrics struct {
	EventsAppended      *prometheus.CounterVec
	AppendRejected      *prometheus.CounterVec
	ConflictsDetected   prometheus.Counter
	ConflictsResolved   *prometheus.CounterVec
	EnrollmentBypassed  *prometheus.CounterVec
	FatalErrors         prometheus.Counter
	AppendDuration      prometheus.Histogram
	ChainValidationDur  prometheus.Histogram
	ChainValidationFail prometheus.Counter
}

// New registers all ledger metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_events_appended_total",
			Help: "Events appended to the ledger",
		}, []string{"operation"}),
		AppendRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_append_rejected_total",
			Help: "Candidates rejected by the append pipeline",
		}, []string{"code"}),
		ConflictsDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_conflicts_detected_total",
			Help: "Conflict records created for edits against a stale head",
		}),
		ConflictsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_conflicts_resolved_total",
			Help: "Conflict records resolved",
		}, []string{"strategy"}),
		EnrollmentBypassed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_enrollment_bypassed_total",
			Help: "Writes by elevated roles that skipped the enrollment check",
		}, []string{"role"}),
		FatalErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_fatal_errors_total",
			Help: "Orphan and integrity failures surfaced by the ledger",
		}),
		AppendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "provenant_append_duration_seconds",
			Help:    "Duration of the append pipeline",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ChainValidationDur: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "provenant_chain_validation_duration_seconds",
			Help:    "Duration of hash-chain validation for one record",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ChainValidationFail: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_chain_validation_failures_total",
			Help: "Chain validations that found a divergence",
		}),
	}
}

func (m *Metrics) IncrementAppended(operation string) {
	m.EventsAppended.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementRejected(code string) {
	m.AppendRejected.WithLabelValues(code).Inc()
}

// ObserveAppend records the duration of an append. Call with the time
// captured at the start of the operation.
func (m *Metrics) ObserveAppend(start time.Time) {
	m.AppendDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveChainValidation(start time.Time, valid bool) {
	m.ChainValidationDur.Observe(time.Since(start).Seconds())
	if !valid {
		m.ChainValidationFail.Inc()
	}
}
