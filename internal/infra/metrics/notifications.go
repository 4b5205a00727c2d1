package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		notificationsFanoutTotal,
		toastsDroppedTotal,
	)
}

var (
	notificationsFanoutTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_fanout_total",
			Help: "Payment notifications fanned out as toasts.",
		},
	)

	toastsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "toasts_dropped_total",
			Help: "Toasts dropped because the in-memory queue was full.",
		},
	)
)

func AddNotificationsFanout(n int) {
	notificationsFanoutTotal.Add(float64(n))
}

func IncToastDropped() {
	toastsDroppedTotal.Inc()
}
