package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics records remote API call latency and failures per endpoint.
type BackendMetrics struct {
	duration *prometheus.HistogramVec
	failure  *prometheus.CounterVec
}

// NewBackendMetrics registers the backend client metrics on the provided registerer.
func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	if reg == nil {
		return &BackendMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Duration of remote backend calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_request_failures_total",
		Help: "Failed remote backend calls.",
	}, []string{"endpoint"})
	reg.MustRegister(duration, failure)
	return &BackendMetrics{
		duration: duration,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named endpoint.
func (b *BackendMetrics) ObserveDuration(endpoint string, duration time.Duration) {
	if b == nil || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(normalizeLabel(endpoint)).Observe(duration.Seconds())
}

// IncFailure increments the failure counter for the named endpoint.
func (b *BackendMetrics) IncFailure(endpoint string) {
	if b == nil || b.failure == nil {
		return
	}
	b.failure.WithLabelValues(normalizeLabel(endpoint)).Inc()
}
