package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics covers ingestion and real-time fan-out.
type PipelineMetrics struct {
	uploads     *prometheus.CounterVec
	broadcasts  *prometheus.CounterVec
	subscribers prometheus.Gauge
}

// NewPipelineMetrics registers upload and broadcast metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapwall_uploads_total",
		Help: "Upload submissions by media kind and outcome code.",
	}, []string{"kind", "outcome"})
	broadcasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapwall_broadcast_messages_total",
		Help: "Messages published to event channels by type.",
	}, []string{"type"})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapwall_broadcast_subscribers",
		Help: "Live channel subscriptions held by this node.",
	})
	reg.MustRegister(uploads, broadcasts, subscribers)
	return &PipelineMetrics{
		uploads:     uploads,
		broadcasts:  broadcasts,
		subscribers: subscribers,
	}
}

// IncUpload counts one upload attempt.
func (m *PipelineMetrics) IncUpload(kind, outcome string) {
	if m == nil || m.uploads == nil {
		return
	}
	m.uploads.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncBroadcast counts one published message.
func (m *PipelineMetrics) IncBroadcast(messageType string) {
	if m == nil || m.broadcasts == nil {
		return
	}
	m.broadcasts.WithLabelValues(normalizeLabel(messageType)).Inc()
}

// SetSubscribers publishes the current subscription count.
func (m *PipelineMetrics) SetSubscribers(n int) {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Set(float64(n))
}
