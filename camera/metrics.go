package camera

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the prometheus instruments this driver exposes: command
// round-trip latency, per-group queue depth, frames acquired, and decode
// errors, grounded on the gauge/counter instrumentation style in
// runZeroInc-sockstats's pkg/exporter/exporter.go. The core never uses a
// default registry and never scrapes these; NewMetrics registers them
// with the registry the caller passes in, and the caller hands the
// resulting *Metrics to New, or omits it to disable instrumentation
// entirely.
type Metrics struct {
	CommandLatency *prometheus.HistogramVec
	QueueDepth     *prometheus.GaugeVec
	FramesAcquired prometheus.Counter
	DecodeErrors   prometheus.Counter
}

// NewMetrics constructs a Metrics instance and registers every instrument
// with reg. Pass a fresh prometheus.NewRegistry() in tests to avoid
// colliding with a process-wide default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spectralinstrument",
			Name:      "command_latency_seconds",
			Help:      "Round-trip latency of camera commands, by function number.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"function"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "spectralinstrument",
			Name:      "demux_queue_depth",
			Help:      "Current depth of a demultiplexer group queue.",
		}, []string{"group"}),
		FramesAcquired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spectralinstrument",
			Name:      "frames_acquired_total",
			Help:      "Frames successfully assembled and handed to the buffer manager.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spectralinstrument",
			Name:      "decode_errors_total",
			Help:      "Wire packets that failed to decode.",
		}),
	}
	reg.MustRegister(m.CommandLatency, m.QueueDepth, m.FramesAcquired, m.DecodeErrors)
	return m
}

func (m *Metrics) observeCommandLatency(function string, seconds float64) {
	if m == nil {
		return
	}
	m.CommandLatency.WithLabelValues(function).Observe(seconds)
}

func (m *Metrics) setQueueDepth(group string, depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(group).Set(float64(depth))
}

func (m *Metrics) incFramesAcquired() {
	if m == nil {
		return
	}
	m.FramesAcquired.Inc()
}

func (m *Metrics) incDecodeErrors() {
	if m == nil {
		return
	}
	m.DecodeErrors.Inc()
}
