// Package pipeline implements pipeline metrics.
package pipeline

import (
	"sync/atomic"
)

// Metrics contains per-pipeline metrics counters.
type Metrics struct {
	Source string

	// Frame counters (using atomic for thread-safety)
	Received        atomic.Uint64
	Decoded         atomic.Uint64
	Filtered        atomic.Uint64
	Skipped         atomic.Uint64
	DecodeErrors    atomic.Uint64
	UnknownProtocol atomic.Uint64
	ChecksumInvalid atomic.Uint64
	Dropped         atomic.Uint64
	Reported        atomic.Uint64
	ReportErrors    atomic.Uint64
}

// NewMetrics creates a new metrics instance.
func NewMetrics(source string) *Metrics {
	return &Metrics{
		Source: source,
	}
}
