package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// CheckFile parses a configuration file strictly: unknown keys and type
// mismatches are reported, which viper silently ignores. It is used by the
// validate command before Load.
func CheckFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return CheckYAML(data)
}

// CheckYAML strictly parses YAML configuration data.
func CheckYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var root configRoot
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty document: everything defaults.
			return nil
		}
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}
