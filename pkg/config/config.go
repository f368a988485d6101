// Package config provides configuration loading from YAML files with
// environment variable expansion, or from Syd settings files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/synamic/internal/syd"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load loads configuration into target. Files ending in .syd are parsed as
// Syd, which has its own ${name} interpolation, and are not env-expanded;
// anything else is YAML with environment variable expansion. Both decode
// through the target's yaml tags.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if strings.EqualFold(filepath.Ext(filename), ".syd") {
		data, err = sydToYAML(string(data))
		if err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", filename, err)
		}
	} else {
		data = []byte(os.ExpandEnv(string(data)))
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// sydToYAML re-encodes a Syd document as YAML so that it decodes with the
// same struct tags.
func sydToYAML(text string) ([]byte, error) {
	tree, err := syd.Parse(text)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(tree.ToMap())
}

// LoadWithDefaults loads configuration with fallback to a default file.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			return Load(defaultFile, target)
		}
		return fmt.Errorf("config file not found: %s", filename)
	}
	return Load(filename, target)
}

// MustLoad loads configuration and panics on failure.
func MustLoad[T any](filename string, target *T) {
	if err := Load(filename, target); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
}
