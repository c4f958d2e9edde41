// Package decoder implements frame envelope classification, IPv4 header
// decoding and RFC 1071 checksums.
package decoder

import (
	"fmt"

	"firestige.xyz/tundecode/internal/core"
)

// Decoder decodes raw frames into structured format.
type Decoder interface {
	Decode(raw core.RawFrame) (core.DecodedFrame, error)
}

// Config configures the StandardDecoder.
type Config struct {
	// AllowAnyVersion disables the check that an IPv4-labelled datagram
	// carries version 4 in its first nibble.
	AllowAnyVersion bool
}

// StandardDecoder decodes TUN envelopes and IPv4 headers. It holds no
// mutable state and is safe for concurrent use as long as each call gets
// its own buffer.
type StandardDecoder struct {
	cfg Config
}

// NewStandardDecoder creates a decoder.
func NewStandardDecoder(cfg Config) *StandardDecoder {
	return &StandardDecoder{cfg: cfg}
}

// Decode decodes one frame. Frames whose envelope announces anything other
// than IPv4 are returned without an IPv4 summary and without error; their
// payload is never looked at.
func (d *StandardDecoder) Decode(raw core.RawFrame) (core.DecodedFrame, error) {
	out := core.DecodedFrame{
		Timestamp:  raw.Timestamp,
		CaptureLen: raw.CaptureLen,
		OrigLen:    raw.OrigLen,
	}

	datagram := raw.Data
	if raw.Enveloped {
		env, payload, err := ParseEnvelope(raw.Data)
		if err != nil {
			return out, err
		}
		out.Envelope = env
		if !env.Protocol.IsIPv4() {
			return out, nil
		}
		datagram = payload
	} else {
		// Bare datagrams have no envelope; the version nibble is the only
		// link-layer hint.
		out.Envelope.Protocol = classifyBare(raw.Data)
		if !out.Envelope.Protocol.IsIPv4() {
			return out, nil
		}
	}

	summary, err := d.DecodeDatagram(datagram)
	if err != nil {
		return out, err
	}
	out.IPv4 = &summary
	return out, nil
}

// DecodeDatagram decodes a buffer that starts at the IPv4 header.
func (d *StandardDecoder) DecodeDatagram(datagram []byte) (core.IPv4Summary, error) {
	h, err := ParseIPv4(datagram)
	if err != nil {
		return core.IPv4Summary{}, err
	}
	if !d.cfg.AllowAnyVersion && h.Version() != 4 {
		return core.IPv4Summary{}, fmt.Errorf("%w: version=%d", core.ErrVersionMismatch, h.Version())
	}
	return h.Summary()
}

// classifyBare labels a bare IP datagram by its version nibble. Anything that
// is not IPv6 is handed to the IPv4 decoder, which reports truncation and
// version errors.
func classifyBare(datagram []byte) core.LinkProtocol {
	if len(datagram) > 0 && datagram[0]>>4 == 6 {
		return core.LinkProtocolIPv6
	}
	return core.LinkProtocolIPv4
}
