package core

import "fmt"

// Protocol is the transport protocol carried by an IPv4 datagram. It is a
// closed set: ICMP, IGMP, TCP, UDP, and an unknown arm that keeps the raw
// protocol number for diagnostics.
type Protocol uint8

// Named protocol numbers (IANA "Assigned Internet Protocol Numbers").
const (
	ProtocolICMP Protocol = 1
	ProtocolIGMP Protocol = 2
	ProtocolTCP  Protocol = 6
	ProtocolUDP  Protocol = 17
)

// ClassifyProtocol maps the 8-bit protocol field to a Protocol. Numbers
// outside the named set are returned as their unknown arm; that is a normal
// outcome, not an error.
func ClassifyProtocol(number uint8) Protocol {
	return Protocol(number)
}

// Known reports whether p is one of the named protocols.
func (p Protocol) Known() bool {
	switch p {
	case ProtocolICMP, ProtocolIGMP, ProtocolTCP, ProtocolUDP:
		return true
	}
	return false
}

// Number returns the raw protocol number.
func (p Protocol) Number() uint8 {
	return uint8(p)
}

func (p Protocol) String() string {
	switch p {
	case ProtocolICMP:
		return "ICMP"
	case ProtocolIGMP:
		return "IGMP"
	case ProtocolTCP:
		return "TCP"
	case ProtocolUDP:
		return "UDP"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(p))
	}
}

// LinkProtocol is the link-layer protocol identifier found in the capture
// envelope. Only IPv4 is decoded further; every other value is kept as is.
type LinkProtocol uint16

const (
	// LinkProtocolIPv4 is the EtherType value for IPv4.
	LinkProtocolIPv4 LinkProtocol = 0x0800
	// LinkProtocolIPv6 is the EtherType value for IPv6. It is only
	// classified, never decoded.
	LinkProtocolIPv6 LinkProtocol = 0x86DD
)

// IsIPv4 reports whether the envelope announces an IPv4 datagram.
func (p LinkProtocol) IsIPv4() bool {
	return p == LinkProtocolIPv4
}

func (p LinkProtocol) String() string {
	if p.IsIPv4() {
		return "IPv4"
	}
	return fmt.Sprintf("Other(0x%04x)", uint16(p))
}
