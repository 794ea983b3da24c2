package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	flagSyncTotal    *prometheus.CounterVec
	flagSyncAttempts prometheus.Histogram
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		flagSyncTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "automation",
			Name:      "flag_sync_total",
			Help:      "Automation feature flag waits by outcome (succeeded, timed_out).",
		}, []string{"outcome"}),
		flagSyncAttempts: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "automation",
			Name:      "flag_sync_attempts",
			Help:      "Flag provider reads needed before the automations flag matched the plan.",
			Buckets:   []float64{1, 2, 3, 5, 8, 10, 20},
		}),
	}
})
