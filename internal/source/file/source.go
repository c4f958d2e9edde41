// Package file implements a frame source replaying pcap and pcapng capture
// files.
package file

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/tundecode/internal/core"
	"firestige.xyz/tundecode/internal/source"
)

// Capture file formats.
const (
	FormatAuto   = "auto"
	FormatPcap   = "pcap"
	FormatPcapng = "pcapng"
)

// Frame layouts.
const (
	FramingAuto     = "auto"
	FramingEnvelope = "envelope"
	FramingRaw      = "raw"
)

// StdinPath makes the source read the capture from standard input.
const StdinPath = "-"

// pcapng files start with a section header block.
var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// Config configures a FileSource.
type Config struct {
	Path    string
	Format  string // auto | pcap | pcapng
	Framing string // auto | envelope | raw
}

// packetReader is implemented by both pcapgo.Reader and pcapgo.NgReader.
type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// FileSource replays frames from a capture file.
type FileSource struct {
	name    string
	format  string
	framing string

	closer    io.Closer
	reader    packetReader
	enveloped bool

	framesRead atomic.Uint64
	bytesRead  atomic.Uint64
}

var _ source.Source = (*FileSource)(nil)

// Open opens the capture file named by cfg.Path ("-" for stdin) and reads
// its file header.
func Open(cfg Config) (*FileSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: source path is required", core.ErrConfigInvalid)
	}

	if cfg.Path == StdinPath {
		return NewFromReader("stdin", io.NopCloser(os.Stdin), cfg)
	}

	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file %s: %w", cfg.Path, err)
	}
	s, err := NewFromReader(filepath.Base(cfg.Path), f, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// NewFromReader creates a source reading a capture from r. The source owns
// r and closes it on Close.
func NewFromReader(name string, r io.ReadCloser, cfg Config) (*FileSource, error) {
	format := cfg.Format
	if format == "" {
		format = FormatAuto
	}
	framing := cfg.Framing
	if framing == "" {
		framing = FramingAuto
	}

	br := bufio.NewReader(r)
	if format == FormatAuto {
		magic, err := br.Peek(len(pcapngMagic))
		if err != nil {
			return nil, fmt.Errorf("failed to read capture header: %w", err)
		}
		format = FormatPcap
		if bytes.Equal(magic, pcapngMagic) {
			format = FormatPcapng
		}
	}

	var (
		reader packetReader
		err    error
	)
	switch format {
	case FormatPcap:
		reader, err = pcapgo.NewReader(br)
	case FormatPcapng:
		reader, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	default:
		return nil, fmt.Errorf("%w: unknown capture format %q", core.ErrConfigInvalid, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", format, err)
	}

	enveloped, err := resolveFraming(framing, reader.LinkType())
	if err != nil {
		return nil, err
	}

	slog.Debug("capture file opened",
		"source", name,
		"format", format,
		"link_type", reader.LinkType().String(),
		"enveloped", enveloped)

	return &FileSource{
		name:      name,
		format:    format,
		framing:   framing,
		closer:    r,
		reader:    reader,
		enveloped: enveloped,
	}, nil
}

// resolveFraming decides whether frames carry the 4-byte envelope. Raw-IP
// link types carry bare datagrams; anything else is taken to be a TUN
// capture with the envelope kept.
func resolveFraming(framing string, lt layers.LinkType) (bool, error) {
	switch framing {
	case FramingEnvelope:
		return true, nil
	case FramingRaw:
		return false, nil
	case FramingAuto:
		return !isRawIP(lt), nil
	default:
		return false, fmt.Errorf("%w: unknown framing %q", core.ErrConfigInvalid, framing)
	}
}

func isRawIP(lt layers.LinkType) bool {
	return lt == layers.LinkTypeRaw || lt == layers.LinkTypeIPv4
}

// Name returns the source name.
func (s *FileSource) Name() string {
	return s.name
}

// Format returns the resolved capture format.
func (s *FileSource) Format() string {
	return s.format
}

// LinkType returns the link type from the capture file header.
func (s *FileSource) LinkType() layers.LinkType {
	return s.reader.LinkType()
}

// Enveloped reports whether frames are passed on as enveloped.
func (s *FileSource) Enveloped() bool {
	return s.enveloped
}

// Capture replays every frame of the file into output.
func (s *FileSource) Capture(ctx context.Context, output chan<- core.RawFrame) error {
	if s.reader == nil {
		return core.ErrSourceClosed
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// ReadPacketData returns a fresh slice per frame, so frames can be
		// queued without copying.
		data, ci, err := s.reader.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read frame %d: %w", s.framesRead.Load()+1, err)
		}

		s.framesRead.Add(1)
		s.bytesRead.Add(uint64(len(data)))

		frame := core.RawFrame{
			Data:       data,
			Timestamp:  ci.Timestamp,
			CaptureLen: uint32(ci.CaptureLength),
			OrigLen:    uint32(ci.Length),
			Enveloped:  s.enveloped,
		}

		select {
		case output <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stats returns source statistics.
func (s *FileSource) Stats() source.Stats {
	return source.Stats{
		FramesRead: s.framesRead.Load(),
		BytesRead:  s.bytesRead.Load(),
	}
}

// Close releases the underlying file.
func (s *FileSource) Close() error {
	if s.reader == nil {
		return nil
	}
	s.reader = nil
	return s.closer.Close()
}
