// Package report renders decoded frames for human or machine consumption.
package report

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"firestige.xyz/tundecode/internal/core"
)

// Reporter consumes decoded frames.
type Reporter interface {
	Name() string
	Report(ctx context.Context, frame *core.DecodedFrame) error
	Flush(ctx context.Context) error
}

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// New creates a reporter for format writing to w.
func New(format string, w io.Writer) (Reporter, error) {
	switch format {
	case FormatText, "":
		return NewTextReporter(w), nil
	case FormatJSON:
		return NewJSONReporter(w), nil
	case FormatYAML:
		return NewYAMLReporter(w), nil
	default:
		return nil, fmt.Errorf("%w: invalid report format %q, must be text, json or yaml", core.ErrConfigInvalid, format)
	}
}

// OpenOutput opens the report destination. "-" and "" select stdout, which
// is never closed.
func OpenOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open report output %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Record is the serialized form of a decoded frame.
type Record struct {
	Timestamp  string      `json:"timestamp" yaml:"timestamp"`
	Link       string      `json:"link" yaml:"link"`
	Flags      uint16      `json:"flags" yaml:"flags"`
	CaptureLen uint32      `json:"capture_len" yaml:"capture_len"`
	OrigLen    uint32      `json:"orig_len" yaml:"orig_len"`
	IPv4       *IPv4Record `json:"ipv4,omitempty" yaml:"ipv4,omitempty"`
}

// IPv4Record is the serialized form of an IPv4 header summary.
type IPv4Record struct {
	Version          uint8  `json:"version" yaml:"version"`
	IHL              uint8  `json:"ihl" yaml:"ihl"`
	DSCP             uint8  `json:"dscp" yaml:"dscp"`
	ECN              uint8  `json:"ecn" yaml:"ecn"`
	TotalLength      uint16 `json:"total_length" yaml:"total_length"`
	Identification   uint16 `json:"identification" yaml:"identification"`
	ReservedFlag     bool   `json:"reserved_flag" yaml:"reserved_flag"`
	DontFragment     bool   `json:"dont_fragment" yaml:"dont_fragment"`
	MoreFragments    bool   `json:"more_fragments" yaml:"more_fragments"`
	FragmentOffset   uint16 `json:"fragment_offset" yaml:"fragment_offset"`
	TTL              uint8  `json:"ttl" yaml:"ttl"`
	Protocol         string `json:"protocol" yaml:"protocol"`
	ProtocolNumber   uint8  `json:"protocol_number" yaml:"protocol_number"`
	Src              string `json:"src" yaml:"src"`
	Dst              string `json:"dst" yaml:"dst"`
	Checksum         string `json:"checksum" yaml:"checksum"`
	ComputedChecksum string `json:"computed_checksum" yaml:"computed_checksum"`
	ChecksumValid    bool   `json:"checksum_valid" yaml:"checksum_valid"`
	Options          string `json:"options,omitempty" yaml:"options,omitempty"`
}

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// NewRecord converts a decoded frame. Options are hex encoded, so the
// record does not borrow from the frame buffer.
func NewRecord(frame *core.DecodedFrame) Record {
	rec := Record{
		Link:       frame.Envelope.Protocol.String(),
		Flags:      frame.Envelope.Flags,
		CaptureLen: frame.CaptureLen,
		OrigLen:    frame.OrigLen,
	}
	if !frame.Timestamp.IsZero() {
		rec.Timestamp = frame.Timestamp.UTC().Format(timestampLayout)
	}

	if s := frame.IPv4; s != nil {
		rec.IPv4 = &IPv4Record{
			Version:          s.Version,
			IHL:              s.HeaderLength,
			DSCP:             s.DSCP,
			ECN:              s.ECN,
			TotalLength:      s.TotalLength,
			Identification:   s.Identification,
			ReservedFlag:     s.ReservedFlag,
			DontFragment:     s.DontFragment,
			MoreFragments:    s.MoreFragments,
			FragmentOffset:   s.FragmentOffset,
			TTL:              s.TTL,
			Protocol:         s.Protocol.String(),
			ProtocolNumber:   s.Protocol.Number(),
			Src:              s.SrcIP.String(),
			Dst:              s.DstIP.String(),
			Checksum:         fmt.Sprintf("0x%04x", s.Checksum),
			ComputedChecksum: fmt.Sprintf("0x%04x", s.ComputedChecksum),
			ChecksumValid:    s.ChecksumValid,
			Options:          hex.EncodeToString(s.Options),
		}
	}
	return rec
}
