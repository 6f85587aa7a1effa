package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/driveio/fedfs/pkg/store/provider"
)

// providerMetrics is the Prometheus implementation of provider.Metrics.
//
// It collects per-backend call counts (labelled by provider key, operation
// and outcome) and call latencies.
type providerMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewProviderMetrics creates a Prometheus-backed provider.Metrics instance.
//
// Returns nil if metrics are not enabled, which leaves provider clients
// unmetered.
func NewProviderMetrics() provider.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &providerMetrics{
		calls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fedfs_provider_calls_total",
				Help: "Total number of remote provider calls",
			},
			[]string{"provider", "op", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "fedfs_provider_call_duration_seconds",
				Help: "Duration of remote provider calls in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1,     // 1s
					5,     // 5s
					10,    // 10s
					30,    // 30s
				},
			},
			[]string{"provider", "op"},
		),
	}
}

// ObserveCall implements provider.Metrics.ObserveCall
func (m *providerMetrics) ObserveCall(providerKey, op string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.calls.WithLabelValues(providerKey, op, status).Inc()
	m.duration.WithLabelValues(providerKey, op).Observe(duration.Seconds())
}
