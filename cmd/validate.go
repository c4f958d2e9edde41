// Package cmd implements CLI commands.
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/tundecode/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without decoding anything.

Unknown keys and mistyped values are reported, then the values themselves
are checked the same way decode checks them.

Examples:
  tundecode validate -c /etc/tundecode/config.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(configFile, cmd.OutOrStdout())
	},
}

func runValidate(path string, out io.Writer) error {
	if path == "" {
		return fmt.Errorf("no configuration file given, use --config")
	}

	if err := config.CheckFile(path); err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}

	fmt.Fprintf(out, "VALID: source=%q format=%s framing=%s checksum_policy=%s report=%s metrics=%t\n",
		cfg.Source.Path,
		cfg.Source.Format,
		cfg.Source.Framing,
		cfg.Decoder.ChecksumPolicy,
		cfg.Report.Format,
		cfg.Metrics.Enabled,
	)
	return nil
}
