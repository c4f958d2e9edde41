package report

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"firestige.xyz/tundecode/internal/core"
)

// JSONReporter writes one JSON object per line.
type JSONReporter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONReporter creates a JSON lines reporter writing to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	bw := bufio.NewWriter(w)
	return &JSONReporter{w: bw, enc: json.NewEncoder(bw)}
}

// Name returns the reporter name.
func (r *JSONReporter) Name() string {
	return "json"
}

// Report encodes the frame as a single line.
func (r *JSONReporter) Report(ctx context.Context, frame *core.DecodedFrame) error {
	if frame == nil {
		return fmt.Errorf("nil frame")
	}
	if err := r.enc.Encode(NewRecord(frame)); err != nil {
		return fmt.Errorf("json encode failed: %w", err)
	}
	return nil
}

// Flush writes buffered lines out.
func (r *JSONReporter) Flush(ctx context.Context) error {
	return r.w.Flush()
}
