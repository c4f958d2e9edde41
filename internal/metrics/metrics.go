// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts frames read from a source by link class
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tundecode_frames_total",
			Help: "Total number of frames read",
		},
		[]string{"source", "link"},
	)

	// DecodeErrorsTotal counts frames rejected by the decoder by error kind
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tundecode_decode_errors_total",
			Help: "Total number of frames that failed to decode",
		},
		[]string{"source", "kind"},
	)

	// ChecksumTotal counts IPv4 header checksum verification results
	ChecksumTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tundecode_checksum_total",
			Help: "Total number of IPv4 header checksum verifications",
		},
		[]string{"source", "result"},
	)

	// ProtocolTotal counts decoded IPv4 datagrams by transport protocol
	ProtocolTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tundecode_protocol_total",
			Help: "Total number of decoded IPv4 datagrams by protocol",
		},
		[]string{"source", "protocol"},
	)

	// FramesDroppedTotal counts frames not handed to the reporter
	FramesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tundecode_frames_dropped_total",
			Help: "Total number of frames dropped before reporting",
		},
		[]string{"source", "reason"},
	)

	// DecodeLatencySeconds measures per-frame decode latency
	DecodeLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tundecode_decode_latency_seconds",
			Help:    "Latency of decoding a single frame in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0000001, 2, 16), // 100ns to ~3ms
		},
		[]string{"source"},
	)

	// DiagnosticsSuppressedTotal counts warnings withheld by the diagnostic limiter
	DiagnosticsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tundecode_diagnostics_suppressed_total",
			Help: "Total number of malformed-frame warnings suppressed by rate limiting",
		},
		[]string{"source"},
	)

	// DiagnosticActiveSources tracks source addresses with an open limiter window
	DiagnosticActiveSources = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tundecode_diagnostic_active_sources",
			Help: "Number of source addresses tracked by the diagnostic limiter",
		},
	)
)

// Label values shared by callers.
const (
	LinkIPv4  = "ipv4"
	LinkOther = "other"

	ChecksumValid   = "valid"
	ChecksumInvalid = "invalid"

	DropReasonError    = "decode_error"
	DropReasonChecksum = "checksum"
	DropReasonFiltered = "filtered"
)
