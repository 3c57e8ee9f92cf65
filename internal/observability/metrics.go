package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters of the rider submission path. Labels are limited to the
// tenant slug to keep cardinality bounded by the number of operators.
var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_submissions_total",
			Help: "Accepted survey submissions.",
		},
		[]string{"tenant"},
	)

	ComplaintsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_complaints_total",
			Help: "Complaints filed alongside a submission.",
		},
		[]string{"tenant"},
	)

	ThrottledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_throttled_total",
			Help: "Valid submissions rejected by the throttle.",
		},
		[]string{"tenant"},
	)

	ReconcileFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_reconcile_failures_total",
			Help: "Submissions rolled back by the reconciler, by reason.",
		},
		[]string{"tenant", "reason"},
	)
)

func init() {
	prometheus.MustRegister(SubmissionsTotal, ComplaintsTotal, ThrottledTotal, ReconcileFailuresTotal)
}
