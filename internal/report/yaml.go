package report

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"firestige.xyz/tundecode/internal/core"
)

// YAMLReporter writes one YAML document per frame.
type YAMLReporter struct {
	w *bufio.Writer
}

// NewYAMLReporter creates a YAML reporter writing to w.
func NewYAMLReporter(w io.Writer) *YAMLReporter {
	return &YAMLReporter{w: bufio.NewWriter(w)}
}

// Name returns the reporter name.
func (r *YAMLReporter) Name() string {
	return "yaml"
}

// Report writes the frame as a "---" separated document.
func (r *YAMLReporter) Report(ctx context.Context, frame *core.DecodedFrame) error {
	if frame == nil {
		return fmt.Errorf("nil frame")
	}
	doc, err := yaml.Marshal(NewRecord(frame))
	if err != nil {
		return fmt.Errorf("yaml marshal failed: %w", err)
	}
	if _, err := r.w.WriteString("---\n"); err != nil {
		return err
	}
	_, err = r.w.Write(doc)
	return err
}

// Flush writes buffered documents out.
func (r *YAMLReporter) Flush(ctx context.Context) error {
	return r.w.Flush()
}
