// Package decoder implements protocol decoding.
package decoder

import "encoding/binary"

// Checksum computes the RFC 1071 Internet checksum of data: the one's
// complement of the one's complement sum of its 16-bit big-endian words.
// An odd trailing byte is summed as the high byte of a zero-padded word.
// The 32-bit accumulator holds data of up to 128 KiB without overflow,
// which covers any IPv4 datagram.
func Checksum(data []byte) uint16 {
	return ^fold(sum(0, data))
}

// ComputeIPv4Checksum returns the header checksum for the 20-byte fixed
// header and its options, with the checksum field (octets 10-11) taken as
// zero whatever fixed holds there.
func ComputeIPv4Checksum(fixed, options []byte) uint16 {
	acc := sum(0, fixed[:ipv4ChecksumOff])
	acc = sum(acc, fixed[ipv4ChecksumOff+2:ipv4HeaderMinLen])
	acc = sum(acc, options)
	return ^fold(acc)
}

// VerifyIPv4Checksum sums the fixed header including its received
// checksum plus the options. The header is intact iff the folded sum is
// 0xFFFF, that is, its complement is zero.
func VerifyIPv4Checksum(fixed, options []byte) bool {
	acc := sum(0, fixed[:ipv4HeaderMinLen])
	acc = sum(acc, options)
	return fold(acc) == 0xffff
}

// sum adds the 16-bit words of data to acc. data is assumed to start on a
// word boundary of the overall checksum input.
func sum(acc uint32, data []byte) uint32 {
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		acc += uint32(binary.BigEndian.Uint16(data[i:]))
	}
	if n%2 == 1 {
		acc += uint32(data[n-1]) << 8
	}
	return acc
}

// fold adds the carries above bit 15 back into the low half until none
// remain. A header-sized input needs at most two passes.
func fold(acc uint32) uint16 {
	for acc>>16 != 0 {
		acc = acc&0xffff + acc>>16
	}
	return uint16(acc)
}
