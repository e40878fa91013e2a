// Package observability provides Prometheus metrics for the dispatch pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"promptrun/internal/core"
)

// Metrics collects per-dispatch counters and latency. It implements the
// dispatch.Observer interface.
type Metrics struct {
	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the dispatch metrics on the given registerer.
// Pass prometheus.DefaultRegisterer for the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promptrun_dispatches_total",
			Help: "Completed dispatch calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promptrun_dispatch_duration_seconds",
			Help:    "End-to-end dispatch latency by provider.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"provider"}),
	}
}

// ObserveDispatch records one finished dispatch call.
func (m *Metrics) ObserveDispatch(provider core.ProviderID, outcome string, duration time.Duration) {
	m.dispatches.WithLabelValues(string(provider), outcome).Inc()
	m.duration.WithLabelValues(string(provider)).Observe(duration.Seconds())
}
