package notifications

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "notificationmanager"

var (
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "deliveries_total",
			Help:      "Total delivery attempts by recipient kind and outcome (delivered, failed, rejected)",
		},
		[]string{"kind", "status"},
	)

	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "delivery_duration_seconds",
			Help:      "Time to deliver one notification",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	dispatchRecipients = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "dispatch_recipients",
			Help:      "Number of recipients matched per notify call",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

func recordDelivery(kind RecipientKind, status string, duration time.Duration) {
	deliveriesTotal.WithLabelValues(string(kind), status).Inc()
	deliveryDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}
