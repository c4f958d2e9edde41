// Package core defines core types with zero external dependencies.
package core

import "net/netip"

// Envelope is the 4-byte pseudo-header a TUN device prepends to every frame
// when packet information is enabled.
type Envelope struct {
	Flags    uint16 // Opaque, not interpreted
	Protocol LinkProtocol
}

// IPv4Summary is the eagerly decoded, immutable form of an IPv4 header.
type IPv4Summary struct {
	Version        uint8
	HeaderLength   uint8 // IHL in 32-bit words (5..15)
	DSCP           uint8
	ECN            uint8
	TotalLength    uint16
	Identification uint16
	ReservedFlag   bool // Must be zero on the wire
	DontFragment   bool
	MoreFragments  bool
	FragmentOffset uint16 // In units of 8 bytes
	TTL            uint8
	Protocol       Protocol
	SrcIP          netip.Addr
	DstIP          netip.Addr

	// Checksum as received, the value the sender should have written, and
	// whether the received header verifies.
	Checksum         uint16
	ComputedChecksum uint16
	ChecksumValid    bool

	// Options borrows from the frame buffer; it is only valid while the
	// buffer is. Copy it before the next receive if it must be kept.
	Options []byte
}

// HeaderBytes returns the header length in bytes.
func (s *IPv4Summary) HeaderBytes() int {
	return int(s.HeaderLength) * 4
}
