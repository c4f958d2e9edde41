// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/tundecode/internal/core"
	"firestige.xyz/tundecode/internal/core/decoder"
	"firestige.xyz/tundecode/internal/report"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <hex>...",
	Short: "Decode a single frame given as hex",
	Long: `Decode one frame given as hexadecimal bytes. Arguments are joined, and
whitespace, ':' and '-' separators are ignored.

By default the bytes start with the 4-byte TUN envelope; --raw takes them
to start directly at the IPv4 header.

Examples:
  tundecode inspect 00000800 45000014beef0000400638a1c0a80101c0a80102
  tundecode inspect --raw --report-format yaml "45 00 00 14 ..."`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd.Context(), args, inspectOptions{
			raw:             inspectRaw,
			format:          inspectFormat,
			allowAnyVersion: inspectAnyVersion,
		}, cmd.OutOrStdout())
	},
}

var (
	inspectRaw        bool
	inspectFormat     string
	inspectAnyVersion bool
)

func init() {
	inspectCmd.Flags().BoolVar(&inspectRaw, "raw", false,
		"input starts at the IPv4 header (no envelope)")
	inspectCmd.Flags().StringVar(&inspectFormat, "report-format", report.FormatText,
		"report format: text, json or yaml")
	inspectCmd.Flags().BoolVar(&inspectAnyVersion, "any-version", false,
		"decode even if the version nibble is not 4")
}

type inspectOptions struct {
	raw             bool
	format          string
	allowAnyVersion bool
}

func runInspect(ctx context.Context, args []string, opts inspectOptions, out io.Writer) error {
	data, err := parseHex(args)
	if err != nil {
		return err
	}

	rep, err := report.New(opts.format, out)
	if err != nil {
		return err
	}

	dec := decoder.NewStandardDecoder(decoder.Config{AllowAnyVersion: opts.allowAnyVersion})
	frame, err := dec.Decode(core.RawFrame{
		Data:       data,
		CaptureLen: uint32(len(data)),
		OrigLen:    uint32(len(data)),
		Enveloped:  !opts.raw,
	})
	if err != nil {
		return fmt.Errorf("decode failed (%s): %w", core.ErrorKind(err), err)
	}

	if err := rep.Report(ctx, &frame); err != nil {
		return err
	}
	return rep.Flush(ctx)
}

// parseHex joins args and decodes them, ignoring common byte separators.
func parseHex(args []string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':', '-':
			return -1
		}
		return r
	}, strings.Join(args, ""))
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")

	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}
