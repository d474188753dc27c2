package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metrics are the relay's prometheus collectors. Each Relay owns a registry so
// several relays (tests, embedded use) never collide.
type metrics struct {
	registry *prometheus.Registry

	activeConnections *prometheus.GaugeVec
	streamsOpened     *prometheus.CounterVec
	upstreamFailures  *prometheus.CounterVec
	framesRelayed     *prometheus.CounterVec
	bytesRelayed      *prometheus.CounterVec
	admissionRejected prometheus.Counter
	tapDropped        prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		activeConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "brainstream_relay_active_connections",
			Help: "Number of client streams currently open",
		}, []string{"variant"}),
		streamsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brainstream_relay_streams_opened_total",
			Help: "Total number of client streams opened",
		}, []string{"variant"}),
		upstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brainstream_relay_upstream_failures_total",
			Help: "Total number of upstream stream opens that failed",
		}, []string{"kind"}),
		framesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brainstream_relay_frames_total",
			Help: "Total number of frames relayed to clients",
		}, []string{"variant", "type"}),
		bytesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brainstream_relay_bytes_total",
			Help: "Total number of bytes written to client streams",
		}, []string{"variant"}),
		admissionRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "brainstream_relay_admission_rejected_total",
			Help: "Total number of streams refused by admission control",
		}),
		tapDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "brainstream_relay_tap_dropped_total",
			Help: "Total number of frames dropped because the tap queue was full",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.activeConnections,
		m.streamsOpened,
		m.upstreamFailures,
		m.framesRelayed,
		m.bytesRelayed,
		m.admissionRejected,
		m.tapDropped,
	)
	return m
}
