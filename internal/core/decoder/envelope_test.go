package decoder

import (
	"errors"
	"testing"

	"firestige.xyz/tundecode/internal/core"
)

func TestParseEnvelopeIPv4(t *testing.T) {
	data := []byte{
		0x00, 0x00, // Flags
		0x08, 0x00, // Proto: IPv4
		0x45, 0x00, // Payload (start of IP header)
	}

	env, payload, err := ParseEnvelope(data)
	if err != nil {
		t.Fatalf("ParseEnvelope failed: %v", err)
	}

	if !env.Protocol.IsIPv4() {
		t.Errorf("Expected IPv4 link protocol, got %v", env.Protocol)
	}
	if len(payload) != 2 {
		t.Errorf("Expected payload length 2, got %d", len(payload))
	}
	if payload[0] != 0x45 {
		t.Errorf("Expected payload to start at the IP header, got 0x%02x", payload[0])
	}
}

func TestParseEnvelopeOther(t *testing.T) {
	data := []byte{
		0x12, 0x34, // Flags
		0x86, 0xDD, // Proto: IPv6
		0x60, 0x00,
	}

	env, _, err := ParseEnvelope(data)
	if err != nil {
		t.Fatalf("ParseEnvelope failed: %v", err)
	}

	if env.Protocol.IsIPv4() {
		t.Error("Expected non-IPv4 link protocol")
	}
	if env.Protocol != core.LinkProtocol(0x86DD) {
		t.Errorf("Expected link protocol 0x86DD, got 0x%04x", uint16(env.Protocol))
	}
	if env.Protocol.String() != "Other(0x86dd)" {
		t.Errorf("Expected Other(0x86dd), got %s", env.Protocol)
	}
	// Flags are opaque but preserved
	if env.Flags != 0x1234 {
		t.Errorf("Expected flags 0x1234, got 0x%04x", env.Flags)
	}
}

func TestParseEnvelopeTooShort(t *testing.T) {
	data := []byte{0x00, 0x00, 0x08} // Too short

	_, _, err := ParseEnvelope(data)
	if !errors.Is(err, core.ErrFrameTruncated) {
		t.Errorf("Expected ErrFrameTruncated, got %v", err)
	}
}

func BenchmarkParseEnvelope(b *testing.B) {
	data := []byte{
		0x00, 0x00, 0x08, 0x00,
		0x45, 0x00,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := ParseEnvelope(data)
		if err != nil {
			b.Fatal(err)
		}
	}
}
