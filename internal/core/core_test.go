package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test zero values of core structs
func TestStructZeroValues(t *testing.T) {
	t.Run("Envelope", func(t *testing.T) {
		var env Envelope
		if env.Protocol.IsIPv4() {
			t.Error("expected zero Envelope not to be IPv4")
		}
	})

	t.Run("IPv4Summary", func(t *testing.T) {
		var s IPv4Summary
		if s.SrcIP.IsValid() {
			t.Errorf("expected invalid SrcIP, got %v", s.SrcIP)
		}
		if s.Options != nil {
			t.Errorf("expected Options=nil, got %v", s.Options)
		}
	})

	t.Run("DecodedFrame", func(t *testing.T) {
		var f DecodedFrame
		if f.IsIPv4() {
			t.Error("expected zero DecodedFrame not to be IPv4")
		}
	})
}

func TestClassifyProtocol(t *testing.T) {
	tests := []struct {
		number uint8
		want   Protocol
		known  bool
		name   string
	}{
		{1, ProtocolICMP, true, "ICMP"},
		{2, ProtocolIGMP, true, "IGMP"},
		{6, ProtocolTCP, true, "TCP"},
		{17, ProtocolUDP, true, "UDP"},
		{253, Protocol(253), false, "Unknown(253)"},
		{0, Protocol(0), false, "Unknown(0)"},
		{132, Protocol(132), false, "Unknown(132)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ClassifyProtocol(tt.number)
			assert.Equal(t, tt.want, p)
			assert.Equal(t, tt.known, p.Known())
			assert.Equal(t, tt.name, p.String())
			assert.Equal(t, tt.number, p.Number())
		})
	}
}

func TestLinkProtocol(t *testing.T) {
	assert.True(t, LinkProtocol(0x0800).IsIPv4())
	assert.Equal(t, "IPv4", LinkProtocolIPv4.String())

	other := LinkProtocol(0x86DD)
	assert.False(t, other.IsIPv4())
	assert.Equal(t, "Other(0x86dd)", other.String())
}

func TestHeaderBytes(t *testing.T) {
	s := IPv4Summary{HeaderLength: 15}
	assert.Equal(t, 60, s.HeaderBytes())
}

// Test sentinel errors
func TestSentinelErrors(t *testing.T) {
	t.Run("ErrorMessages", func(t *testing.T) {
		tests := []struct {
			err     error
			message string
		}{
			{ErrHeaderLengthInvalid, "tundecode: header length invalid"},
			{ErrTotalLengthInvalid, "tundecode: total length invalid"},
			{ErrFrameTruncated, "tundecode: frame truncated"},
			{ErrVersionMismatch, "tundecode: ip version mismatch"},
			{ErrConfigInvalid, "tundecode: invalid configuration"},
		}

		for _, tt := range tests {
			if tt.err.Error() != tt.message {
				t.Errorf("expected error message %q, got %q", tt.message, tt.err.Error())
			}
		}
	})

	t.Run("ErrorKind", func(t *testing.T) {
		tests := []struct {
			err  error
			kind string
		}{
			{nil, ""},
			{fmt.Errorf("%w: ihl=3", ErrHeaderLengthInvalid), "header_length_invalid"},
			{fmt.Errorf("%w: total=10", ErrTotalLengthInvalid), "total_length_invalid"},
			{fmt.Errorf("%w: have 3 bytes", ErrFrameTruncated), "frame_truncated"},
			{fmt.Errorf("%w: version=6", ErrVersionMismatch), "version_mismatch"},
			{errors.New("boom"), "other"},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.kind, ErrorKind(tt.err))
		}
	})
}
