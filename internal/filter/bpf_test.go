package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"

	"firestige.xyz/tundecode/internal/core"
)

// tcpDDD is `tcpdump -y RAW -ddd 'ip proto 6'` style: ldb [9]; jeq #6; ret.
const tcpDDD = `4
48 0 0 9
21 0 1 6
6 0 0 65535
6 0 0 0
`

func datagram(protocol byte) []byte {
	b := make([]byte, 20)
	b[0] = 0x45
	b[9] = protocol
	return b
}

func TestParseDDD(t *testing.T) {
	raw, err := ParseDDD(tcpDDD)
	require.NoError(t, err)
	require.Len(t, raw, 4)
	assert.Equal(t, bpf.RawInstruction{Op: 48, Jt: 0, Jf: 0, K: 9}, raw[0])
	assert.Equal(t, bpf.RawInstruction{Op: 21, Jt: 0, Jf: 1, K: 6}, raw[1])

	commas, err := ParseDDD("4,48 0 0 9,21 0 1 6,6 0 0 65535,6 0 0 0")
	require.NoError(t, err)
	assert.Equal(t, raw, commas)
}

func TestParseDDDErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", "  \n"},
		{"no count", "48 0 0 9\n6 0 0 0"},
		{"bad count", "x\n6 0 0 0"},
		{"count mismatch", "3\n6 0 0 0"},
		{"short instruction", "1\n6 0 0"},
		{"overflow", "1\n6 0 256 0"},
		{"not a number", "1\n6 0 0 k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDDD(tt.text)
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
		})
	}
}

func TestBPFFilterMatch(t *testing.T) {
	f, err := CompileDDD(tcpDDD)
	require.NoError(t, err)

	assert.True(t, f.Match(datagram(6)))
	assert.False(t, f.Match(datagram(17)))
	// Load beyond the end rejects.
	assert.False(t, f.Match([]byte{0x45}))
}

func TestNewBPFFilterInvalid(t *testing.T) {
	// Jump past the end of the program.
	_, err := NewBPFFilter([]bpf.RawInstruction{{Op: 0x05, K: 10}})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestChain(t *testing.T) {
	tcp, err := CompileDDD(tcpDDD)
	require.NoError(t, err)

	assert.True(t, Chain{}.Match(datagram(17)))
	assert.True(t, Chain{tcp}.Match(datagram(6)))
	assert.False(t, Chain{tcp}.Match(datagram(1)))
}
