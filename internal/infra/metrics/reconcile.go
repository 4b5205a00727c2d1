package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		reconcileTotal,
		reconcilePollAttempts,
	)
}

var (
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_total",
			Help: "Reconciliation runs by terminal state (success/timeout/error).",
		},
		[]string{"state"},
	)

	reconcilePollAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconcile_poll_attempts",
			Help:    "Fallback polling attempts used per run.",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8},
		},
	)
)

func IncReconcile(state string) {
	reconcileTotal.WithLabelValues(norm(state)).Inc()
}

func ObservePollAttempt(attempt int) {
	reconcilePollAttempts.Observe(float64(attempt))
}
