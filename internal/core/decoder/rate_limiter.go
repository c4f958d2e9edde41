// Package decoder implements protocol decoding.
package decoder

import (
	"sync"
	"sync/atomic"
	"time"
)

// DiagnosticLimiter tracks per-source-address diagnostic counts so that a
// single misbehaving host cannot flood the logs with malformed-frame or
// unknown-protocol warnings. Counts are kept per window and reset when the
// window expires.
type DiagnosticLimiter struct {
	mu           sync.Mutex
	current      map[[4]byte]*atomic.Int64 // source address → diagnostics in current window
	windowStart  time.Time
	windowSize   time.Duration
	maxPerWindow int64

	// Metrics
	suppressed atomic.Int64 // total suppressed diagnostics
}

// DiagnosticLimiterConfig configures per-source diagnostic limiting.
type DiagnosticLimiterConfig struct {
	MaxPerSource int           // Max diagnostics per source per window (0 = disabled)
	Window       time.Duration // Window size (default 10s)
}

// NewDiagnosticLimiter creates a limiter. Returns nil if disabled
// (MaxPerSource <= 0); a nil limiter allows everything.
func NewDiagnosticLimiter(cfg DiagnosticLimiterConfig) *DiagnosticLimiter {
	if cfg.MaxPerSource <= 0 {
		return nil
	}
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Second
	}
	return &DiagnosticLimiter{
		current:      make(map[[4]byte]*atomic.Int64),
		windowStart:  time.Now(),
		windowSize:   cfg.Window,
		maxPerWindow: int64(cfg.MaxPerSource),
	}
}

// Allow reports whether a diagnostic about src may be emitted now.
func (l *DiagnosticLimiter) Allow(src [4]byte, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()

	// Rotate window if expired
	if now.Sub(l.windowStart) >= l.windowSize {
		l.current = make(map[[4]byte]*atomic.Int64)
		l.windowStart = now
	}

	counter, exists := l.current[src]
	if !exists {
		counter = &atomic.Int64{}
		l.current[src] = counter
	}
	l.mu.Unlock()

	count := counter.Add(1)
	if count > l.maxPerWindow {
		l.suppressed.Add(1)
		return false
	}
	return true
}

// Suppressed returns the total number of suppressed diagnostics.
func (l *DiagnosticLimiter) Suppressed() int64 {
	if l == nil {
		return 0
	}
	return l.suppressed.Load()
}

// ActiveSources returns the number of distinct sources in the current window.
func (l *DiagnosticLimiter) ActiveSources() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.current)
}

// SourceKey extracts the source address of a possibly malformed datagram
// for use as a limiter key. Datagrams too short to carry one map to the
// zero key.
func SourceKey(datagram []byte) [4]byte {
	var key [4]byte
	if len(datagram) >= 16 {
		copy(key[:], datagram[12:16])
	}
	return key
}
