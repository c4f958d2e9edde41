package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"firestige.xyz/tundecode/internal/core"
)

var frameTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ipv4Frame() *core.DecodedFrame {
	return &core.DecodedFrame{
		Timestamp:  frameTime,
		Envelope:   core.Envelope{Protocol: core.LinkProtocolIPv4},
		CaptureLen: 28,
		OrigLen:    28,
		IPv4: &core.IPv4Summary{
			Version:          4,
			HeaderLength:     6,
			DSCP:             46,
			ECN:              1,
			TotalLength:      24,
			Identification:   0xbeef,
			MoreFragments:    true,
			FragmentOffset:   0x123,
			TTL:              32,
			Protocol:         core.ProtocolTCP,
			SrcIP:            netip.MustParseAddr("192.168.1.1"),
			DstIP:            netip.MustParseAddr("192.168.1.2"),
			Checksum:         0xb861,
			ComputedChecksum: 0x26d7,
			ChecksumValid:    false,
			Options:          []byte{0x01, 0x01, 0x01, 0x00},
		},
	}
}

func otherFrame() *core.DecodedFrame {
	return &core.DecodedFrame{
		Timestamp:  frameTime,
		Envelope:   core.Envelope{Flags: 0x0001, Protocol: core.LinkProtocol(0x86dd)},
		CaptureLen: 44,
		OrigLen:    44,
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", FormatText, FormatJSON, FormatYAML} {
		r, err := New(format, &bytes.Buffer{})
		require.NoError(t, err, format)
		assert.NotEmpty(t, r.Name())
	}

	_, err := New("csv", &bytes.Buffer{})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestTextReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextReporter(&buf)
	ctx := context.Background()

	require.NoError(t, r.Report(ctx, ipv4Frame()))
	require.NoError(t, r.Report(ctx, otherFrame()))
	assert.Empty(t, buf.String(), "output is buffered until Flush")
	require.NoError(t, r.Flush(ctx))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"[12:00:00.000] 192.168.1.1 -> 192.168.1.2 TCP v=4 ihl=6 dscp=46 ecn=1 len=24 id=0xbeef df=false mf=true off=291 ttl=32 csum=0xb861 computed=0x26d7 ok=false opts=01010100",
		lines[0])
	assert.Equal(t, "[12:00:00.000] link=Other(0x86dd) flags=0x0001 len=44", lines[1])
	assert.Equal(t, uint64(2), r.Reported())

	assert.Error(t, r.Report(ctx, nil))
}

func TestTextReporterUnknownProtocol(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextReporter(&buf)

	f := ipv4Frame()
	f.IPv4.Protocol = core.ClassifyProtocol(253)
	f.IPv4.ReservedFlag = true
	f.IPv4.Options = nil

	require.NoError(t, r.Report(context.Background(), f))
	require.NoError(t, r.Flush(context.Background()))

	out := buf.String()
	assert.Contains(t, out, " Unknown(253) ")
	assert.Contains(t, out, " reserved=true")
	assert.NotContains(t, out, "opts=")
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(&buf)
	ctx := context.Background()

	require.NoError(t, r.Report(ctx, ipv4Frame()))
	require.NoError(t, r.Report(ctx, otherFrame()))
	require.NoError(t, r.Flush(ctx))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "2024-03-01T12:00:00.000000Z", rec.Timestamp)
	assert.Equal(t, "IPv4", rec.Link)
	require.NotNil(t, rec.IPv4)
	assert.Equal(t, "TCP", rec.IPv4.Protocol)
	assert.Equal(t, uint8(6), rec.IPv4.ProtocolNumber)
	assert.Equal(t, "0xb861", rec.IPv4.Checksum)
	assert.Equal(t, "0x26d7", rec.IPv4.ComputedChecksum)
	assert.False(t, rec.IPv4.ChecksumValid)
	assert.Equal(t, "01010100", rec.IPv4.Options)
	assert.Equal(t, uint16(0x123), rec.IPv4.FragmentOffset)

	assert.NotContains(t, lines[1], `"ipv4"`)
	assert.Contains(t, lines[1], `"link":"Other(0x86dd)"`)
	assert.Contains(t, lines[1], `"flags":1`)
}

func TestYAMLReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewYAMLReporter(&buf)
	ctx := context.Background()

	require.NoError(t, r.Report(ctx, ipv4Frame()))
	require.NoError(t, r.Report(ctx, otherFrame()))
	require.NoError(t, r.Flush(ctx))

	dec := yaml.NewDecoder(&buf)
	var recs []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			break
		}
		recs = append(recs, rec)
	}
	require.Len(t, recs, 2)

	require.NotNil(t, recs[0].IPv4)
	assert.Equal(t, "192.168.1.1", recs[0].IPv4.Src)
	assert.Equal(t, "192.168.1.2", recs[0].IPv4.Dst)
	assert.True(t, recs[0].IPv4.MoreFragments)
	assert.Equal(t, uint8(32), recs[0].IPv4.TTL)
	assert.Nil(t, recs[1].IPv4)
	assert.Equal(t, uint32(44), recs[1].CaptureLen)
}

func TestNewRecordDoesNotBorrowOptions(t *testing.T) {
	f := ipv4Frame()
	rec := NewRecord(f)
	f.IPv4.Options[0] = 0xff
	assert.Equal(t, "01010100", rec.IPv4.Options)
}

func TestOpenOutput(t *testing.T) {
	w, err := OpenOutput("-")
	require.NoError(t, err)
	assert.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "frames.jsonl")
	w, err = OpenOutput(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("x\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(data))

	_, err = OpenOutput(filepath.Join(t.TempDir(), "missing", "dir", "out"))
	assert.Error(t, err)
}
