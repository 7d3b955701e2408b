package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// rawConfig mirrors the YAML document. Absent fields stay zero and receive
// defaults in the effective step.
type rawConfig struct {
	PollInterval     string            `yaml:"poll_interval,omitempty"`
	Target           string            `yaml:"target,omitempty"`
	Agents           map[string]string `yaml:"agents,omitempty"`
	Layout           LayoutConfig      `yaml:"layout,omitempty"`
	DefaultAutopilot *bool             `yaml:"default_autopilot,omitempty"`
	Logging          LoggingConfig     `yaml:"logging,omitempty"`
}

// DefaultConfigPath returns ~/.config/gridmux/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "gridmux", "config.yaml"), nil
}

// Load reads the configuration from the standard location. A missing file is
// not an error; defaults apply.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from path, applies defaults, and
// validates the result.
func LoadFromPath(path string) (*Config, error) {
	raw := rawConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decodeStrictYAML(data, &raw); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}

	cfg, err := effective(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// effective fills the zero-valued fields of raw with defaults.
func effective(raw rawConfig) (*Config, error) {
	cfg := &Config{
		PollInterval: DefaultPollInterval,
		Target:       DefaultTarget,
		Agents:       raw.Agents,
		Layout:       raw.Layout,
		Logging:      raw.Logging,
	}

	if raw.PollInterval != "" {
		interval, err := time.ParseDuration(raw.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("poll_interval: %w", err)
		}
		cfg.PollInterval = interval
	}
	if raw.Target != "" {
		cfg.Target = raw.Target
	}
	if raw.DefaultAutopilot != nil {
		cfg.DefaultAutopilot = *raw.DefaultAutopilot
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Agents == nil {
		cfg.Agents = map[string]string{}
	}
	return cfg, nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to parse yaml: %w", err)
	}
	return nil
}
