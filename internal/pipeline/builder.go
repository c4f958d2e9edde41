// Package pipeline implements pipeline construction.
package pipeline

import (
	"fmt"

	"firestige.xyz/tundecode/internal/config"
	"firestige.xyz/tundecode/internal/core"
	"firestige.xyz/tundecode/internal/core/decoder"
	"firestige.xyz/tundecode/internal/filter"
	"firestige.xyz/tundecode/internal/report"
	"firestige.xyz/tundecode/internal/source"
)

// Builder provides a fluent interface for building pipelines.
// This is an alternative to using Config directly.
type Builder struct {
	config Config
}

// NewBuilder creates a new pipeline builder.
func NewBuilder() *Builder {
	return &Builder{
		config: Config{
			BufferSize:     1024, // default
			ChecksumPolicy: config.ChecksumPolicyLog,
		},
	}
}

// WithSource sets the frame source.
func (b *Builder) WithSource(s source.Source) *Builder {
	b.config.Source = s
	return b
}

// WithDecoder sets the decoder.
func (b *Builder) WithDecoder(d decoder.Decoder) *Builder {
	b.config.Decoder = d
	return b
}

// WithReporter sets the reporter.
func (b *Builder) WithReporter(r report.Reporter) *Builder {
	b.config.Reporter = r
	return b
}

// WithFilter sets the frame filter.
func (b *Builder) WithFilter(f filter.Filter) *Builder {
	b.config.Filter = f
	return b
}

// WithLimiter sets the diagnostic limiter.
func (b *Builder) WithLimiter(l *decoder.DiagnosticLimiter) *Builder {
	b.config.Limiter = l
	return b
}

// WithChecksumPolicy sets what happens to frames with a bad header checksum.
func (b *Builder) WithChecksumPolicy(policy string) *Builder {
	b.config.ChecksumPolicy = policy
	return b
}

// WithShowSkipped makes the pipeline report non-IPv4 frames.
func (b *Builder) WithShowSkipped(show bool) *Builder {
	b.config.ShowSkipped = show
	return b
}

// WithBufferSize sets the raw frame channel buffer size.
func (b *Builder) WithBufferSize(size int) *Builder {
	b.config.BufferSize = size
	return b
}

// FromConfig applies the decoder, report, diagnostics and source.bpf
// settings. The source, decoder and reporter themselves are still set
// separately.
func (b *Builder) FromConfig(cfg *config.GlobalConfig) (*Builder, error) {
	if cfg.Source.BPF != "" {
		f, err := filter.CompileDDD(cfg.Source.BPF)
		if err != nil {
			return nil, fmt.Errorf("source.bpf: %w", err)
		}
		b.config.Filter = filter.Chain{f}
	}
	b.config.ChecksumPolicy = cfg.Decoder.ChecksumPolicy
	b.config.ShowSkipped = cfg.Report.ShowSkipped
	b.config.Limiter = decoder.NewDiagnosticLimiter(decoder.DiagnosticLimiterConfig{
		MaxPerSource: cfg.Diagnostics.MaxPerSource,
		Window:       cfg.Diagnostics.Window,
	})
	return b, nil
}

// Build creates the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if b.config.Source == nil {
		return nil, fmt.Errorf("%w: source is required", core.ErrConfigInvalid)
	}
	if b.config.Decoder == nil {
		return nil, fmt.Errorf("%w: decoder is required", core.ErrConfigInvalid)
	}
	if b.config.Reporter == nil {
		return nil, fmt.Errorf("%w: reporter is required", core.ErrConfigInvalid)
	}
	switch b.config.ChecksumPolicy {
	case config.ChecksumPolicyLog, config.ChecksumPolicyDrop, config.ChecksumPolicyPass:
	default:
		return nil, fmt.Errorf("%w: invalid checksum policy %q", core.ErrConfigInvalid, b.config.ChecksumPolicy)
	}
	return New(b.config), nil
}
