// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/tundecode/internal/core"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `tundecode:` root key in YAML.
type GlobalConfig struct {
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Source      SourceConfig      `mapstructure:"source" yaml:"source"`
	Decoder     DecoderConfig     `mapstructure:"decoder" yaml:"decoder"`
	Report      ReportConfig      `mapstructure:"report" yaml:"report"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
}

// ─── Source ───

// SourceConfig selects where frames come from.
type SourceConfig struct {
	Path    string `mapstructure:"path" yaml:"path"`       // Capture file, "-" = stdin
	Format  string `mapstructure:"format" yaml:"format"`   // auto | pcap | pcapng
	Framing string `mapstructure:"framing" yaml:"framing"` // auto | envelope | raw
	BPF     string `mapstructure:"bpf" yaml:"bpf"`         // `tcpdump -y RAW -ddd` listing, empty = no filter
}

// ─── Decoder ───

// Checksum policies applied to frames whose header checksum does not verify.
const (
	ChecksumPolicyLog  = "log"  // Report the frame and log a warning
	ChecksumPolicyDrop = "drop" // Drop the frame
	ChecksumPolicyPass = "pass" // Report the frame silently
)

// DecoderConfig configures header decoding.
type DecoderConfig struct {
	ChecksumPolicy  string `mapstructure:"checksum_policy" yaml:"checksum_policy"`
	AllowAnyVersion bool   `mapstructure:"allow_any_version" yaml:"allow_any_version"`
}

// ─── Report ───

// ReportConfig configures decoded frame output.
type ReportConfig struct {
	Format      string `mapstructure:"format" yaml:"format"` // text | json | yaml
	Output      string `mapstructure:"output" yaml:"output"` // File path, "-" = stdout
	ShowSkipped bool   `mapstructure:"show_skipped" yaml:"show_skipped"`
}

// ─── Diagnostics ───

// DiagnosticsConfig throttles per-source warnings about malformed frames.
type DiagnosticsConfig struct {
	MaxPerSource int           `mapstructure:"max_per_source" yaml:"max_per_source"` // 0 = unlimited
	Window       time.Duration `mapstructure:"window" yaml:"window"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`     // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"`   // json / text / pattern
	Pattern string           `mapstructure:"pattern" yaml:"pattern"` // Used by the pattern format
	Time    string           `mapstructure:"time" yaml:"time"`       // Time layout for the pattern format
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains log output destinations besides stdout.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `tundecode: ...`.
type configRoot struct {
	Tundecode GlobalConfig `mapstructure:"tundecode" yaml:"tundecode"`
}

// Load loads configuration from file. An empty path yields the defaults
// plus environment overrides. Env vars use the TUNDECODE_ prefix
// (e.g., TUNDECODE_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `tundecode.` key prefix maps to `TUNDECODE_` via the replacer
	// (key "tundecode.log.level" → env "TUNDECODE_LOG_LEVEL").
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Tundecode

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *GlobalConfig {
	cfg, err := Load("")
	if err != nil {
		// Defaults are static and always valid.
		panic(err)
	}
	return cfg
}

// setDefaults sets default values for configuration.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("tundecode.log.level", "info")
	v.SetDefault("tundecode.log.format", "text")
	v.SetDefault("tundecode.log.pattern", "%time [%level] %msg %field\n")
	v.SetDefault("tundecode.log.time", "2006-01-02 15:04:05.000")
	v.SetDefault("tundecode.log.outputs.file.enabled", false)
	v.SetDefault("tundecode.log.outputs.file.path", "/var/log/tundecode/tundecode.log")
	v.SetDefault("tundecode.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("tundecode.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("tundecode.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("tundecode.log.outputs.file.rotation.compress", true)

	// Metrics defaults
	v.SetDefault("tundecode.metrics.enabled", false)
	v.SetDefault("tundecode.metrics.listen", ":9091")
	v.SetDefault("tundecode.metrics.path", "/metrics")

	// Source defaults
	v.SetDefault("tundecode.source.path", "")
	v.SetDefault("tundecode.source.format", "auto")
	v.SetDefault("tundecode.source.framing", "auto")
	v.SetDefault("tundecode.source.bpf", "")

	// Decoder defaults
	v.SetDefault("tundecode.decoder.checksum_policy", ChecksumPolicyLog)
	v.SetDefault("tundecode.decoder.allow_any_version", false)

	// Report defaults
	v.SetDefault("tundecode.report.format", "text")
	v.SetDefault("tundecode.report.output", "-")
	v.SetDefault("tundecode.report.show_skipped", false)

	// Diagnostics defaults
	v.SetDefault("tundecode.diagnostics.max_per_source", 10)
	v.SetDefault("tundecode.diagnostics.window", "10s")
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text", "pattern":
	default:
		return fmt.Errorf("%w: invalid log format: %s (must be json/text/pattern)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", core.ErrConfigInvalid)
	}

	// ── Source validation ──
	switch cfg.Source.Format {
	case "auto", "pcap", "pcapng":
	default:
		return fmt.Errorf("%w: invalid source format: %s (must be auto/pcap/pcapng)", core.ErrConfigInvalid, cfg.Source.Format)
	}
	switch cfg.Source.Framing {
	case "auto", "envelope", "raw":
	default:
		return fmt.Errorf("%w: invalid source framing: %s (must be auto/envelope/raw)", core.ErrConfigInvalid, cfg.Source.Framing)
	}

	// ── Decoder validation ──
	switch cfg.Decoder.ChecksumPolicy {
	case ChecksumPolicyLog, ChecksumPolicyDrop, ChecksumPolicyPass:
	default:
		return fmt.Errorf("%w: invalid checksum policy: %s (must be log/drop/pass)", core.ErrConfigInvalid, cfg.Decoder.ChecksumPolicy)
	}

	// ── Report validation ──
	switch cfg.Report.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("%w: invalid report format: %s (must be text/json/yaml)", core.ErrConfigInvalid, cfg.Report.Format)
	}
	if cfg.Report.Output == "" {
		cfg.Report.Output = "-"
	}

	// ── Diagnostics ──
	if cfg.Diagnostics.MaxPerSource < 0 {
		return fmt.Errorf("%w: diagnostics.max_per_source must not be negative", core.ErrConfigInvalid)
	}
	if cfg.Diagnostics.Window <= 0 {
		cfg.Diagnostics.Window = 10 * time.Second
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics are enabled", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}
