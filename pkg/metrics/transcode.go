package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transcode outcomes used as label values.
const (
	TranscodeOutcomeReady     = "ready"
	TranscodeOutcomeFailed    = "failed"
	TranscodeOutcomeDiscarded = "discarded"
)

// TranscodeMetrics tracks the bounded transcode pool.
type TranscodeMetrics struct {
	tasks    *prometheus.CounterVec
	duration prometheus.Histogram
	depth    prometheus.Gauge
	running  prometheus.Gauge
}

// NewTranscodeMetrics registers the queue metrics on the provided registerer.
func NewTranscodeMetrics(reg prometheus.Registerer) *TranscodeMetrics {
	if reg == nil {
		return &TranscodeMetrics{}
	}
	tasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapwall_transcode_tasks_total",
		Help: "Settled transcode tasks by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapwall_transcode_duration_seconds",
		Help:    "Wall time of transcode tasks from start to settle.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
	depth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapwall_transcode_queue_depth",
		Help: "Tasks waiting for a free transcode slot.",
	})
	running := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapwall_transcode_running",
		Help: "Tasks currently holding a transcode slot.",
	})
	reg.MustRegister(tasks, duration, depth, running)
	return &TranscodeMetrics{
		tasks:    tasks,
		duration: duration,
		depth:    depth,
		running:  running,
	}
}

// ObserveTask records a settled task.
func (m *TranscodeMetrics) ObserveTask(outcome string, took time.Duration) {
	if m == nil || m.tasks == nil {
		return
	}
	m.tasks.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(took.Seconds())
}

// SetQueueDepth publishes the number of pending tasks.
func (m *TranscodeMetrics) SetQueueDepth(n int) {
	if m == nil || m.depth == nil {
		return
	}
	m.depth.Set(float64(n))
}

// SetRunning publishes the number of occupied slots.
func (m *TranscodeMetrics) SetRunning(n int) {
	if m == nil || m.running == nil {
		return
	}
	m.running.Set(float64(n))
}
