// Package source defines frame sources feeding the decode pipeline.
package source

import (
	"context"

	"firestige.xyz/tundecode/internal/core"
)

// Source produces raw frames.
type Source interface {
	// Name identifies the source in logs and metric labels.
	Name() string
	// Capture sends frames to output until the source is exhausted (nil),
	// ctx is cancelled (ctx.Err()) or reading fails. It never closes output.
	Capture(ctx context.Context, output chan<- core.RawFrame) error
	Stats() Stats
	Close() error
}

// Stats represents source statistics.
type Stats struct {
	FramesRead uint64
	BytesRead  uint64
}
