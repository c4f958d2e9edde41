// Package pipeline implements the frame processing pipeline engine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"firestige.xyz/tundecode/internal/config"
	"firestige.xyz/tundecode/internal/core"
	"firestige.xyz/tundecode/internal/core/decoder"
	"firestige.xyz/tundecode/internal/filter"
	"firestige.xyz/tundecode/internal/metrics"
	"firestige.xyz/tundecode/internal/report"
	"firestige.xyz/tundecode/internal/source"
)

// Pipeline represents a single-threaded frame processing chain:
// source -> decoder -> reporter.
type Pipeline struct {
	source         source.Source
	decoder        decoder.Decoder
	reporter       report.Reporter
	filter         filter.Filter
	limiter        *decoder.DiagnosticLimiter
	checksumPolicy string
	showSkipped    bool
	bufferSize     int
	metrics        *Metrics
}

// Config contains pipeline configuration.
type Config struct {
	Source         source.Source
	Decoder        decoder.Decoder
	Reporter       report.Reporter
	Filter         filter.Filter              // nil = every IPv4 datagram passes
	Limiter        *decoder.DiagnosticLimiter // nil = unlimited diagnostics
	ChecksumPolicy string                     // log | drop | pass, default log
	ShowSkipped    bool                       // Report non-IPv4 frames too
	BufferSize     int                        // Raw frame channel buffer size
}

// New creates a new pipeline.
func New(cfg Config) *Pipeline {
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 1024 // Default buffer size
	}
	if cfg.ChecksumPolicy == "" {
		cfg.ChecksumPolicy = config.ChecksumPolicyLog
	}

	return &Pipeline{
		source:         cfg.Source,
		decoder:        cfg.Decoder,
		reporter:       cfg.Reporter,
		filter:         cfg.Filter,
		limiter:        cfg.Limiter,
		checksumPolicy: cfg.ChecksumPolicy,
		showSkipped:    cfg.ShowSkipped,
		bufferSize:     cfg.BufferSize,
		metrics:        NewMetrics(cfg.Source.Name()),
	}
}

// Run replays the source through the pipeline until the source is exhausted
// or ctx is cancelled, then flushes the reporter. Cancellation is not an
// error; frames already read are still processed.
func (p *Pipeline) Run(ctx context.Context) error {
	name := p.source.Name()
	slog.Info("pipeline starting", "source", name, "checksum_policy", p.checksumPolicy)

	frames := make(chan core.RawFrame, p.bufferSize)
	captureErr := make(chan error, 1)

	// Capture goroutine; closing the channel ends the process loop.
	go func() {
		err := p.source.Capture(ctx, frames)
		close(frames)
		captureErr <- err
	}()

	for raw := range frames {
		p.metrics.Received.Add(1)
		p.processFrame(ctx, raw)
	}

	err := <-captureErr
	if flushErr := p.reporter.Flush(context.Background()); flushErr != nil {
		slog.Error("reporter flush failed", "reporter", p.reporter.Name(), "error", flushErr)
		if err == nil {
			err = fmt.Errorf("reporter flush failed: %w", flushErr)
		}
	}

	stats := p.Stats()
	slog.Info("pipeline stopped",
		"source", name,
		"received", stats.Received,
		"decoded", stats.Decoded,
		"filtered", stats.Filtered,
		"skipped", stats.Skipped,
		"decode_errors", stats.DecodeErrors,
		"checksum_invalid", stats.ChecksumInvalid,
		"dropped", stats.Dropped,
		"reported", stats.Reported,
		"diagnostics_suppressed", p.limiter.Suppressed())

	if err != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}
	return nil
}

// processFrame processes a single frame through the entire pipeline.
func (p *Pipeline) processFrame(ctx context.Context, raw core.RawFrame) {
	name := p.source.Name()

	// Step 1: Decode envelope and IPv4 header
	start := time.Now()
	decoded, err := p.decoder.Decode(raw)
	metrics.DecodeLatencySeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())

	link := metrics.LinkOther
	if decoded.Envelope.Protocol.IsIPv4() {
		link = metrics.LinkIPv4
	}
	metrics.FramesTotal.WithLabelValues(name, link).Inc()

	if err != nil {
		kind := core.ErrorKind(err)
		p.metrics.DecodeErrors.Add(1)
		p.metrics.Dropped.Add(1)
		metrics.DecodeErrorsTotal.WithLabelValues(name, kind).Inc()
		metrics.FramesDroppedTotal.WithLabelValues(name, metrics.DropReasonError).Inc()
		p.diagnose(datagramOf(raw), "dropping malformed frame",
			"kind", kind, "error", err, "capture_len", raw.CaptureLen)
		return
	}

	// Step 2: Skip anything that is not IPv4
	if !decoded.IsIPv4() {
		p.metrics.Skipped.Add(1)
		slog.Debug("skipping non-IPv4 frame", "link", decoded.Envelope.Protocol.String())
		if p.showSkipped {
			p.report(ctx, &decoded)
		}
		return
	}

	// Step 3: Filter IPv4 datagrams
	if p.filter != nil && !p.filter.Match(datagramOf(raw)) {
		p.metrics.Filtered.Add(1)
		metrics.FramesDroppedTotal.WithLabelValues(name, metrics.DropReasonFiltered).Inc()
		return
	}
	p.metrics.Decoded.Add(1)

	s := decoded.IPv4
	if s.Protocol.Known() {
		metrics.ProtocolTotal.WithLabelValues(name, s.Protocol.String()).Inc()
	} else {
		p.metrics.UnknownProtocol.Add(1)
		metrics.ProtocolTotal.WithLabelValues(name, "unknown").Inc()
		slog.Debug("unknown protocol", "protocol", s.Protocol.Number(), "src", s.SrcIP)
	}

	// Step 4: Apply checksum policy
	if s.ChecksumValid {
		metrics.ChecksumTotal.WithLabelValues(name, metrics.ChecksumValid).Inc()
	} else {
		p.metrics.ChecksumInvalid.Add(1)
		metrics.ChecksumTotal.WithLabelValues(name, metrics.ChecksumInvalid).Inc()

		switch p.checksumPolicy {
		case config.ChecksumPolicyDrop:
			p.metrics.Dropped.Add(1)
			metrics.FramesDroppedTotal.WithLabelValues(name, metrics.DropReasonChecksum).Inc()
			return
		case config.ChecksumPolicyLog:
			p.diagnose(datagramOf(raw), "header checksum mismatch",
				"src", s.SrcIP,
				"dst", s.DstIP,
				"received", fmt.Sprintf("0x%04x", s.Checksum),
				"computed", fmt.Sprintf("0x%04x", s.ComputedChecksum))
		}
	}

	// Step 5: Report
	p.report(ctx, &decoded)
}

func (p *Pipeline) report(ctx context.Context, decoded *core.DecodedFrame) {
	if err := p.reporter.Report(ctx, decoded); err != nil {
		p.metrics.ReportErrors.Add(1)
		slog.Error("reporter failed", "reporter", p.reporter.Name(), "error", err)
		return
	}
	p.metrics.Reported.Add(1)
}

// diagnose emits a warning about the datagram's source unless that source
// has exhausted its diagnostic budget for the current window.
func (p *Pipeline) diagnose(datagram []byte, msg string, args ...any) {
	name := p.source.Name()
	if !p.limiter.Allow(decoder.SourceKey(datagram), time.Now()) {
		metrics.DiagnosticsSuppressedTotal.WithLabelValues(name).Inc()
		return
	}
	metrics.DiagnosticActiveSources.Set(float64(p.limiter.ActiveSources()))
	slog.Warn(msg, append([]any{"source", name}, args...)...)
}

// datagramOf returns the part of the frame where an IPv4 header would start.
func datagramOf(raw core.RawFrame) []byte {
	if !raw.Enveloped {
		return raw.Data
	}
	if len(raw.Data) < 4 {
		return nil
	}
	return raw.Data[4:]
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Received:        p.metrics.Received.Load(),
		Decoded:         p.metrics.Decoded.Load(),
		Filtered:        p.metrics.Filtered.Load(),
		Skipped:         p.metrics.Skipped.Load(),
		DecodeErrors:    p.metrics.DecodeErrors.Load(),
		UnknownProtocol: p.metrics.UnknownProtocol.Load(),
		ChecksumInvalid: p.metrics.ChecksumInvalid.Load(),
		Dropped:         p.metrics.Dropped.Load(),
		Reported:        p.metrics.Reported.Load(),
		ReportErrors:    p.metrics.ReportErrors.Load(),
	}
}

// Stats represents pipeline statistics.
type Stats struct {
	Received        uint64
	Decoded         uint64
	Filtered        uint64
	Skipped         uint64
	DecodeErrors    uint64
	UnknownProtocol uint64
	ChecksumInvalid uint64
	Dropped         uint64
	Reported        uint64
	ReportErrors    uint64
}
