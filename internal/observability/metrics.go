package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	connections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pmsemul",
			Subsystem: "conn",
			Name:      "admissions_total",
			Help:      "Connection admission attempts by result.",
		},
		[]string{"result"},
	)
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pmsemul",
			Subsystem: "conn",
			Name:      "active",
			Help:      "Currently registered connections.",
		},
	)
	bytesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pmsemul",
			Subsystem: "conn",
			Name:      "received_bytes_total",
			Help:      "Bytes read from peer connections.",
		},
	)
	framesAssembled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pmsemul",
			Subsystem: "frame",
			Name:      "assembled_total",
			Help:      "Complete frames produced by reassembly.",
		},
	)
	bufferOverflows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pmsemul",
			Subsystem: "frame",
			Name:      "overflows_total",
			Help:      "Reassembly buffers discarded on overflow.",
		},
	)
	controlCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pmsemul",
			Subsystem: "control",
			Name:      "commands_total",
			Help:      "Control commands received by action and kind.",
		},
		[]string{"action", "kind"},
	)
	decodeBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pmsemul",
			Subsystem: "decode",
			Name:      "blocks_total",
			Help:      "Rendered decode blocks by selector kind.",
		},
		[]string{"kind"},
	)
	decodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pmsemul",
			Subsystem: "decode",
			Name:      "errors_total",
			Help:      "Frames discarded by a bounds-check failure.",
		},
	)
	broadcastFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pmsemul",
			Subsystem: "broadcast",
			Name:      "write_failures_total",
			Help:      "Failed per-peer notice writes.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pmsemul",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pmsemul",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			connections,
			activeConnections,
			bytesReceived,
			framesAssembled,
			bufferOverflows,
			controlCommands,
			decodeBlocks,
			decodeErrors,
			broadcastFailures,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordAdmission(accepted bool) {
	RegisterMetrics()
	if accepted {
		connections.WithLabelValues("accepted").Inc()
		activeConnections.Inc()
		return
	}
	connections.WithLabelValues("rejected").Inc()
}

func RecordDisconnect() {
	RegisterMetrics()
	activeConnections.Dec()
}

func RecordBytesReceived(n int) {
	RegisterMetrics()
	bytesReceived.Add(float64(n))
}

func RecordFrame() {
	RegisterMetrics()
	framesAssembled.Inc()
}

func RecordOverflow() {
	RegisterMetrics()
	bufferOverflows.Inc()
}

func RecordControl(action, kind string) {
	RegisterMetrics()
	controlCommands.WithLabelValues(action, kind).Inc()
}

func RecordDecode(kind string, blocks int, err error) {
	RegisterMetrics()
	if blocks > 0 {
		decodeBlocks.WithLabelValues(kind).Add(float64(blocks))
	}
	if err != nil {
		decodeErrors.Inc()
	}
}

func RecordBroadcastFailure() {
	RegisterMetrics()
	broadcastFailures.Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
