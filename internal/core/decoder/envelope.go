// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/tundecode/internal/core"
)

const (
	// envelopeLen is the size of the packet information header a TUN
	// device prepends when IFF_NO_PI is not set:
	//
	//	Flags [2 bytes]
	//	Proto [2 bytes]
	//	Raw protocol (IP, IPv6, etc) frame.
	envelopeLen = 4
)

// ParseEnvelope strips the capture envelope from frame.
// Returns the Envelope and the enclosed datagram. An unrecognized link
// protocol is not an error; the caller routes on Envelope.Protocol.
func ParseEnvelope(frame []byte) (core.Envelope, []byte, error) {
	if len(frame) < envelopeLen {
		return core.Envelope{}, nil, fmt.Errorf("%w: envelope needs %d bytes, have %d",
			core.ErrFrameTruncated, envelopeLen, len(frame))
	}

	env := core.Envelope{
		// Flags (2 bytes), opaque
		Flags: binary.BigEndian.Uint16(frame[0:2]),
		// Link protocol (2 bytes, EtherType numbering)
		Protocol: core.LinkProtocol(binary.BigEndian.Uint16(frame[2:4])),
	}

	return env, frame[envelopeLen:], nil
}
