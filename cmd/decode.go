// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/tundecode/internal/config"
	"firestige.xyz/tundecode/internal/core/decoder"
	"firestige.xyz/tundecode/internal/log"
	"firestige.xyz/tundecode/internal/metrics"
	"firestige.xyz/tundecode/internal/pipeline"
	"firestige.xyz/tundecode/internal/report"
	"firestige.xyz/tundecode/internal/source/file"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode every frame of a capture file",
	Long: `Replay a pcap or pcapng capture through the decoder and print one
record per IPv4 frame.

Frames whose envelope announces another link protocol are skipped. Frames
with a malformed header are dropped with a (rate limited) warning. What
happens to frames with a bad header checksum depends on
decoder.checksum_policy: log, drop or pass.

Examples:
  tundecode decode -f tun0.pcapng
  tundecode decode -f raw.pcap --framing raw --report-format json
  tundecode decode -f tun0.pcap --bpf-file <(tcpdump -y RAW -ddd tcp)
  tcpdump -i tun0 -w - | tundecode decode -f -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyDecodeFlags(cmd, cfg); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runDecode(ctx, cfg, cmd.OutOrStdout())
	},
}

var (
	decodeFile           string
	decodeFormat         string
	decodeFraming        string
	decodeReportFormat   string
	decodeOutput         string
	decodeChecksumPolicy string
	decodeBPFFile        string
)

func init() {
	decodeCmd.Flags().StringVarP(&decodeFile, "file", "f", "",
		"capture file to decode, - for stdin (overrides source.path)")
	decodeCmd.Flags().StringVar(&decodeFormat, "format", "",
		"capture format: auto, pcap or pcapng (overrides source.format)")
	decodeCmd.Flags().StringVar(&decodeFraming, "framing", "",
		"frame layout: auto, envelope or raw (overrides source.framing)")
	decodeCmd.Flags().StringVar(&decodeReportFormat, "report-format", "",
		"report format: text, json or yaml (overrides report.format)")
	decodeCmd.Flags().StringVarP(&decodeOutput, "output", "o", "",
		"report output file, - for stdout (overrides report.output)")
	decodeCmd.Flags().StringVar(&decodeChecksumPolicy, "checksum-policy", "",
		"bad checksum handling: log, drop or pass (overrides decoder.checksum_policy)")
	decodeCmd.Flags().StringVar(&decodeBPFFile, "bpf-file", "",
		"file holding a `tcpdump -y RAW -ddd` program (overrides source.bpf)")
}

// applyDecodeFlags overlays explicitly set flags on the loaded configuration.
func applyDecodeFlags(cmd *cobra.Command, cfg *config.GlobalConfig) error {
	flags := cmd.Flags()
	if flags.Changed("file") {
		cfg.Source.Path = decodeFile
	}
	if flags.Changed("format") {
		cfg.Source.Format = decodeFormat
	}
	if flags.Changed("framing") {
		cfg.Source.Framing = decodeFraming
	}
	if flags.Changed("report-format") {
		cfg.Report.Format = decodeReportFormat
	}
	if flags.Changed("output") {
		cfg.Report.Output = decodeOutput
	}
	if flags.Changed("checksum-policy") {
		cfg.Decoder.ChecksumPolicy = decodeChecksumPolicy
	}
	if flags.Changed("bpf-file") {
		data, err := os.ReadFile(decodeBPFFile)
		if err != nil {
			return fmt.Errorf("failed to read bpf program: %w", err)
		}
		cfg.Source.BPF = string(data)
	}
	return cfg.ValidateAndApplyDefaults()
}

// runDecode wires source, decoder, reporter and metrics and runs the
// pipeline to completion. Reports go to stdout unless report.output names
// a file.
func runDecode(ctx context.Context, cfg *config.GlobalConfig, stdout io.Writer) error {
	// 1. Initialize logging system
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	// 2. Start metrics server
	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				slog.Error("error stopping metrics server", "error", err)
			}
		}()
	}

	// 3. Open the capture
	src, err := file.Open(file.Config{
		Path:    cfg.Source.Path,
		Format:  cfg.Source.Format,
		Framing: cfg.Source.Framing,
	})
	if err != nil {
		return err
	}
	defer src.Close()

	// 4. Open the report output
	out := stdout
	if cfg.Report.Output != "-" {
		w, err := report.OpenOutput(cfg.Report.Output)
		if err != nil {
			return err
		}
		defer w.Close()
		out = w
	}
	rep, err := report.New(cfg.Report.Format, out)
	if err != nil {
		return err
	}

	// 5. Build and run the pipeline
	b, err := pipeline.NewBuilder().FromConfig(cfg)
	if err != nil {
		return err
	}
	p, err := b.
		WithSource(src).
		WithDecoder(decoder.NewStandardDecoder(decoder.Config{
			AllowAnyVersion: cfg.Decoder.AllowAnyVersion,
		})).
		WithReporter(rep).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	return p.Run(ctx)
}
