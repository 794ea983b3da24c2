package analytics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	eventsTotal     *prometheus.CounterVec
	deliveryLatency prometheus.Histogram
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		eventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Name:      "events_total",
			Help:      "Analytics events by outcome (queued, dropped, delivered, failed).",
		}, []string{"result"}),
		deliveryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "analytics",
			Name:      "delivery_latency_seconds",
			Help:      "Latency of posting a single event to the collector.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
