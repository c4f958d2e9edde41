package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/tundecode/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
tundecode:
  log:
    level: "debug"
    format: "json"
  metrics:
    enabled: true
    listen: "0.0.0.0:9090"
    path: "/metrics"
  source:
    path: "/tmp/tun0.pcapng"
    format: "pcapng"
    framing: "envelope"
  decoder:
    checksum_policy: "drop"
  report:
    format: "yaml"
    output: "/tmp/out.yaml"
  diagnostics:
    max_per_source: 3
    window: "30s"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Expected log format json, got %s", cfg.Log.Format)
	}
	if cfg.Metrics.Enabled != true {
		t.Errorf("Expected metrics enabled true, got %v", cfg.Metrics.Enabled)
	}
	assert.Equal(t, "/tmp/tun0.pcapng", cfg.Source.Path)
	assert.Equal(t, "pcapng", cfg.Source.Format)
	assert.Equal(t, "envelope", cfg.Source.Framing)
	assert.Equal(t, ChecksumPolicyDrop, cfg.Decoder.ChecksumPolicy)
	assert.Equal(t, "yaml", cfg.Report.Format)
	assert.Equal(t, "/tmp/out.yaml", cfg.Report.Output)
	assert.Equal(t, 3, cfg.Diagnostics.MaxPerSource)
	assert.Equal(t, 30*time.Second, cfg.Diagnostics.Window)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"log level", "tundecode:\n  log:\n    level: \"invalid\"\n"},
		{"log format", "tundecode:\n  log:\n    format: \"xml\"\n"},
		{"source format", "tundecode:\n  source:\n    format: \"erf\"\n"},
		{"source framing", "tundecode:\n  source:\n    framing: \"ethernet\"\n"},
		{"checksum policy", "tundecode:\n  decoder:\n    checksum_policy: \"fix\"\n"},
		{"report format", "tundecode:\n  report:\n    format: \"csv\"\n"},
		{"negative max", "tundecode:\n  diagnostics:\n    max_per_source: -1\n"},
		{"file output without path", "tundecode:\n  log:\n    outputs:\n      file:\n        enabled: true\n        path: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrConfigInvalid), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestLoadEnvOverride(t *testing.T) {
	configPath := writeConfig(t, `
tundecode:
  log:
    level: "info"
`)

	t.Setenv("TUNDECODE_LOG_LEVEL", "error")
	t.Setenv("TUNDECODE_DECODER_CHECKSUM_POLICY", "pass")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "error" {
		t.Errorf("Expected log level error (from env), got %s", cfg.Log.Level)
	}
	assert.Equal(t, ChecksumPolicyPass, cfg.Decoder.ChecksumPolicy)
}

func TestLoadDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Log.Outputs.File.Enabled)
	assert.Equal(t, 100, cfg.Log.Outputs.File.Rotation.MaxSizeMB)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "auto", cfg.Source.Format)
	assert.Equal(t, "auto", cfg.Source.Framing)
	assert.Equal(t, ChecksumPolicyLog, cfg.Decoder.ChecksumPolicy)
	assert.False(t, cfg.Decoder.AllowAnyVersion)
	assert.Equal(t, "text", cfg.Report.Format)
	assert.Equal(t, "-", cfg.Report.Output)
	assert.Equal(t, 10, cfg.Diagnostics.MaxPerSource)
	assert.Equal(t, 10*time.Second, cfg.Diagnostics.Window)
}

func TestCheckYAML(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		err := CheckYAML([]byte("tundecode:\n  report:\n    format: json\n  diagnostics:\n    window: 5s\n"))
		assert.NoError(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		assert.NoError(t, CheckYAML(nil))
	})

	t.Run("unknown key", func(t *testing.T) {
		err := CheckYAML([]byte("tundecode:\n  report:\n    colour: red\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "colour")
	})

	t.Run("wrong type", func(t *testing.T) {
		err := CheckYAML([]byte("tundecode:\n  diagnostics:\n    max_per_source: many\n"))
		assert.Error(t, err)
	})

	t.Run("file", func(t *testing.T) {
		assert.NoError(t, CheckFile(writeConfig(t, "tundecode:\n  log:\n    level: warn\n")))
		assert.Error(t, CheckFile(filepath.Join(t.TempDir(), "nope.yml")))
	})
}

func TestExampleConfig(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "tundecode.yml")
	require.NoError(t, CheckFile(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
