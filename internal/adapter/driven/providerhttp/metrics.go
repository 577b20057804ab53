package providerhttp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "badgehub",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Badge provider API calls by provider, operation and outcome.",
	}, []string{"provider", "operation", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "badgehub",
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "Latency of badge provider API calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "operation"})
)

func observe(provider, operation, outcome string, elapsed time.Duration) {
	requestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	if elapsed > 0 {
		requestDuration.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
	}
}
