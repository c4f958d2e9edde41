package report

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sync/atomic"

	"firestige.xyz/tundecode/internal/core"
)

// TextReporter writes one human-readable line per frame.
type TextReporter struct {
	w             *bufio.Writer
	reportedCount atomic.Uint64
}

// NewTextReporter creates a text reporter writing to w.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: bufio.NewWriter(w)}
}

// Name returns the reporter name.
func (r *TextReporter) Name() string {
	return "text"
}

// Report writes a frame line, e.g.
//
//	[12:00:00.000] 192.168.1.1 -> 192.168.1.2 TCP v=4 ihl=5 dscp=46 ecn=1 len=20 id=0xbeef df=false mf=true off=291 ttl=32 csum=0x26d7 computed=0x26d7 ok=true
func (r *TextReporter) Report(ctx context.Context, frame *core.DecodedFrame) error {
	if frame == nil {
		return fmt.Errorf("nil frame")
	}
	r.reportedCount.Add(1)

	ts := frame.Timestamp.Format("15:04:05.000")
	s := frame.IPv4
	if s == nil {
		_, err := fmt.Fprintf(r.w, "[%s] link=%s flags=0x%04x len=%d\n",
			ts, frame.Envelope.Protocol, frame.Envelope.Flags, frame.CaptureLen)
		return err
	}

	fmt.Fprintf(r.w, "[%s] %s -> %s %s v=%d ihl=%d dscp=%d ecn=%d len=%d id=0x%04x df=%t mf=%t off=%d ttl=%d csum=0x%04x computed=0x%04x ok=%t",
		ts,
		s.SrcIP, s.DstIP,
		s.Protocol,
		s.Version, s.HeaderLength, s.DSCP, s.ECN,
		s.TotalLength, s.Identification,
		s.DontFragment, s.MoreFragments, s.FragmentOffset,
		s.TTL,
		s.Checksum, s.ComputedChecksum, s.ChecksumValid,
	)
	if s.ReservedFlag {
		fmt.Fprint(r.w, " reserved=true")
	}
	if len(s.Options) > 0 {
		fmt.Fprintf(r.w, " opts=%s", hex.EncodeToString(s.Options))
	}
	_, err := fmt.Fprintln(r.w)
	return err
}

// Reported returns the number of frames written.
func (r *TextReporter) Reported() uint64 {
	return r.reportedCount.Load()
}

// Flush writes buffered lines out.
func (r *TextReporter) Flush(ctx context.Context) error {
	return r.w.Flush()
}
