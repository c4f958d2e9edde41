// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"golang.org/x/net/ipv4"

	"firestige.xyz/tundecode/internal/core"
)

const (
	ipv4HeaderMinLen = ipv4.HeaderLen // 20 bytes, IHL 5
	ipv4MinIHL       = ipv4HeaderMinLen / 4
	ipv4ChecksumOff  = 10
)

// IPv4 is a read-only view of an IPv4 header backed by the caller's buffer.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|Version|  IHL  |   DSCP    |ECN|          Total Length         |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|         Identification        |Flags|      Fragment Offset    |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|  Time to Live |    Protocol   |         Header Checksum       |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                       Source Address                          |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                    Destination Address                        |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                    Options                    |    Padding    |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// Every accessor is a pure function of the bytes: nothing is cached, no
// accessor depends on another having been called, and nothing is copied.
// Scalar accessors read octets 0-19 only, so the view must hold at least
// 20 bytes; ParseIPv4 checks that. The view, and every slice it returns,
// is only valid while the underlying buffer is not reused.
type IPv4 []byte

// ParseIPv4 returns a view over b after checking that the fixed header fits.
// It performs no other validation.
func ParseIPv4(b []byte) (IPv4, error) {
	if len(b) < ipv4HeaderMinLen {
		return nil, fmt.Errorf("%w: ipv4 header needs %d bytes, have %d",
			core.ErrFrameTruncated, ipv4HeaderMinLen, len(b))
	}
	return IPv4(b), nil
}

// Version returns the high nibble of octet 0.
func (h IPv4) Version() uint8 {
	return h[0] >> 4
}

// HeaderLength returns the IHL field (low nibble of octet 0) in 32-bit
// words. Values below 5 cannot describe the 20-byte fixed header and fail
// with core.ErrHeaderLengthInvalid.
func (h IPv4) HeaderLength() (uint8, error) {
	ihl := h[0] & 0x0f
	if ihl < ipv4MinIHL {
		return ihl, fmt.Errorf("%w: ihl=%d, minimum is %d", core.ErrHeaderLengthInvalid, ihl, ipv4MinIHL)
	}
	return ihl, nil
}

// DSCP returns the upper six bits of octet 1.
func (h IPv4) DSCP() uint8 {
	return h[1] >> 2
}

// ECN returns the lower two bits of octet 1.
func (h IPv4) ECN() uint8 {
	return h[1] & 0x03
}

// TotalLength returns the datagram length (header and data) in bytes.
func (h IPv4) TotalLength() uint16 {
	return binary.BigEndian.Uint16(h[2:4])
}

// Identification returns octets 4-5 (RFC 6864).
func (h IPv4) Identification() uint16 {
	return binary.BigEndian.Uint16(h[4:6])
}

// Flags live in the top three bits of octet 6:
//
//	  0   1   2
//	+---+---+---+
//	|   | D | M |
//	| 0 | F | F |
//	+---+---+---+

// ReservedFlag reports the reserved bit, which must be zero on the wire.
func (h IPv4) ReservedFlag() bool {
	return h[6]&0x80 != 0
}

// DontFragment reports the DF bit.
func (h IPv4) DontFragment() bool {
	return h[6]&0x40 != 0
}

// MoreFragments reports the MF bit.
func (h IPv4) MoreFragments() bool {
	return h[6]&0x20 != 0
}

// FragmentOffset returns the 13-bit fragment offset in units of 8 bytes.
func (h IPv4) FragmentOffset() uint16 {
	return binary.BigEndian.Uint16(h[6:8]) & 0x1fff
}

// TTL returns octet 8.
func (h IPv4) TTL() uint8 {
	return h[8]
}

// ProtocolNumber returns the raw protocol field (octet 9).
func (h IPv4) ProtocolNumber() uint8 {
	return h[9]
}

// Protocol returns the classified protocol field.
func (h IPv4) Protocol() core.Protocol {
	return core.ClassifyProtocol(h[9])
}

// HeaderChecksum returns the checksum as received on the wire.
func (h IPv4) HeaderChecksum() uint16 {
	return binary.BigEndian.Uint16(h[ipv4ChecksumOff : ipv4ChecksumOff+2])
}

// SourceAddressRaw returns octets 12-15 without copying.
func (h IPv4) SourceAddressRaw() []byte {
	return h[12:16:16]
}

// DestinationAddressRaw returns octets 16-19 without copying.
func (h IPv4) DestinationAddressRaw() []byte {
	return h[16:20:20]
}

// SourceAddress returns the source address.
func (h IPv4) SourceAddress() netip.Addr {
	return netip.AddrFrom4([4]byte(h[12:16]))
}

// DestinationAddress returns the destination address.
func (h IPv4) DestinationAddress() netip.Addr {
	return netip.AddrFrom4([4]byte(h[16:20]))
}

// Options returns octets [20, IHL*4) of the view. The header length is
// checked first, so options are unreachable when IHL < 5. The result is
// empty when IHL is 5 and never extends past IHL*4.
func (h IPv4) Options() ([]byte, error) {
	ihl, err := h.HeaderLength()
	if err != nil {
		return nil, err
	}
	end := int(ihl) * 4
	if len(h) < end {
		return nil, fmt.Errorf("%w: ihl=%d needs %d bytes, have %d",
			core.ErrFrameTruncated, ihl, end, len(h))
	}
	return h[ipv4HeaderMinLen:end:end], nil
}

// Validate checks the length invariants:
//
//	20 <= IHL*4 <= TotalLength <= len(h)
//
// It does not look at the version or the checksum.
func (h IPv4) Validate() error {
	if len(h) < ipv4HeaderMinLen {
		return fmt.Errorf("%w: ipv4 header needs %d bytes, have %d",
			core.ErrFrameTruncated, ipv4HeaderMinLen, len(h))
	}
	ihl, err := h.HeaderLength()
	if err != nil {
		return err
	}
	headerLen := int(ihl) * 4
	if len(h) < headerLen {
		return fmt.Errorf("%w: ihl=%d needs %d bytes, have %d",
			core.ErrFrameTruncated, ihl, headerLen, len(h))
	}
	totalLen := int(h.TotalLength())
	if totalLen < headerLen {
		return fmt.Errorf("%w: total length %d below header length %d",
			core.ErrTotalLengthInvalid, totalLen, headerLen)
	}
	if totalLen > len(h) {
		return fmt.Errorf("%w: total length %d exceeds %d available bytes",
			core.ErrFrameTruncated, totalLen, len(h))
	}
	return nil
}

// ComputeChecksum returns the checksum the sender should have written,
// treating the checksum field as zero.
func (h IPv4) ComputeChecksum() (uint16, error) {
	opts, err := h.Options()
	if err != nil {
		return 0, err
	}
	return ComputeIPv4Checksum(h[:ipv4HeaderMinLen], opts), nil
}

// VerifyChecksum reports whether the received header checksum is correct.
func (h IPv4) VerifyChecksum() (bool, error) {
	opts, err := h.Options()
	if err != nil {
		return false, err
	}
	return VerifyIPv4Checksum(h[:ipv4HeaderMinLen], opts), nil
}

// Summary validates the header and decodes every field into an immutable
// value. Options in the result still borrow from h.
func (h IPv4) Summary() (core.IPv4Summary, error) {
	if err := h.Validate(); err != nil {
		return core.IPv4Summary{}, err
	}

	// Validate guarantees both succeed.
	ihl, _ := h.HeaderLength()
	opts, _ := h.Options()
	fixed := h[:ipv4HeaderMinLen]

	return core.IPv4Summary{
		Version:          h.Version(),
		HeaderLength:     ihl,
		DSCP:             h.DSCP(),
		ECN:              h.ECN(),
		TotalLength:      h.TotalLength(),
		Identification:   h.Identification(),
		ReservedFlag:     h.ReservedFlag(),
		DontFragment:     h.DontFragment(),
		MoreFragments:    h.MoreFragments(),
		FragmentOffset:   h.FragmentOffset(),
		TTL:              h.TTL(),
		Protocol:         h.Protocol(),
		SrcIP:            h.SourceAddress(),
		DstIP:            h.DestinationAddress(),
		Checksum:         h.HeaderChecksum(),
		ComputedChecksum: ComputeIPv4Checksum(fixed, opts),
		ChecksumValid:    VerifyIPv4Checksum(fixed, opts),
		Options:          opts,
	}, nil
}
