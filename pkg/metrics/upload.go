package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/driveio/fedfs/pkg/upload"
)

// uploadMetrics is the Prometheus implementation of upload.Metrics.
type uploadMetrics struct {
	started *prometheus.CounterVec
	bytes   prometheus.Counter
	ended   *prometheus.CounterVec
}

// NewUploadMetrics creates a Prometheus-backed upload.Metrics instance.
//
// Returns nil if metrics are not enabled, which causes the upload manager
// to use its built-in no-op implementation.
func NewUploadMetrics() upload.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &uploadMetrics{
		started: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fedfs_upload_sessions_started_total",
				Help: "Total number of upload sessions opened",
			},
			[]string{"mode"},
		),
		bytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "fedfs_upload_bytes_total",
				Help: "Total bytes accepted into upload sessions",
			},
		),
		ended: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fedfs_upload_sessions_ended_total",
				Help: "Total number of upload sessions reaching a terminal state",
			},
			[]string{"state"},
		),
	}
}

// SessionStarted implements upload.Metrics.SessionStarted
func (m *uploadMetrics) SessionStarted(chunked, native bool) {
	mode := "single"
	switch {
	case chunked && native:
		mode = "native"
	case chunked:
		mode = "spill"
	}
	m.started.WithLabelValues(mode).Inc()
}

// ChunkUploaded implements upload.Metrics.ChunkUploaded
func (m *uploadMetrics) ChunkUploaded(bytes int64) {
	m.bytes.Add(float64(bytes))
}

// SessionEnded implements upload.Metrics.SessionEnded
func (m *uploadMetrics) SessionEnded(state string) {
	m.ended.WithLabelValues(state).Inc()
}
