// Package core defines core data structures with zero external dependencies.
package core

import "time"

// RawFrame is handed over by a frame source. The decoder only borrows Data;
// a DecodedFrame refers back into it through IPv4.Options, so a source that
// reuses its buffer must not do so before the frame has been reported.
type RawFrame struct {
	Data       []byte    // Frame bytes
	Timestamp  time.Time // Capture timestamp
	CaptureLen uint32    // Captured length
	OrigLen    uint32    // Original length on the wire
	Enveloped  bool      // Data starts with the 4-byte TUN envelope
}

// DecodedFrame is the result of decoding one RawFrame.
type DecodedFrame struct {
	Timestamp  time.Time
	Envelope   Envelope // Zero value when the frame had no envelope
	CaptureLen uint32
	OrigLen    uint32

	// IPv4 is nil when the link protocol is not IPv4.
	IPv4 *IPv4Summary
}

// IsIPv4 reports whether the frame carried an IPv4 datagram.
func (f *DecodedFrame) IsIPv4() bool {
	return f.IPv4 != nil
}
