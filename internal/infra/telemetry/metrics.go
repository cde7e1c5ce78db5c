package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus collectors for the caching and rate-limit
// layers. A single instance is created at startup and injected into the
// services that record into it.
type Metrics struct {
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	CacheErrors  prometheus.Counter
	RateAllowed  prometheus.Counter
	RateDenied   prometheus.Counter
	RateFailOpen prometheus.Counter
}

// NewMetrics registers the collectors with the default registerer.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mte"
	}

	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache reads answered from the store.",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache reads that found no usable value, including decode failures.",
		}),
		CacheErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Cache operations absorbed as no-ops due to store errors.",
		}),
		RateAllowed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rate_limit",
			Name:      "allowed_total",
			Help:      "Requests admitted by the rate limiter.",
		}),
		RateDenied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rate_limit",
			Name:      "denied_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		RateFailOpen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rate_limit",
			Name:      "fail_open_total",
			Help:      "Requests admitted because the backing store was unavailable.",
		}),
	}
}
