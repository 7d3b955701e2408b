package config

import (
	"fmt"
	"time"

	"github.com/gridmux/gridmux/internal/layout"
)

// LayoutConfig overrides the grid thresholds. Zero values fall back to the
// built-in defaults.
type LayoutConfig struct {
	MinPaneWidth  int `yaml:"min_pane_width,omitempty"`
	MinPaneHeight int `yaml:"min_pane_height,omitempty"`
	MaxPaneWidth  int `yaml:"max_pane_width,omitempty"`
	SidebarWidth  int `yaml:"sidebar_width,omitempty"`
}

// LoggingConfig controls daemon logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty"`
	// File is the log file path; empty means stderr.
	File string `yaml:"file,omitempty"`
}

// Config is the effective configuration after defaults are applied.
type Config struct {
	// PollInterval is how often the daemon reconciles panes against tmux.
	PollInterval time.Duration
	// Target is the tmux window the engine manages, e.g. "main".
	Target string
	// Agents maps agent names to the shell command that launches them.
	Agents map[string]string
	Layout LayoutConfig
	// DefaultAutopilot is applied to new panes when the caller does not say.
	DefaultAutopilot bool
	Logging          LoggingConfig
}

const (
	DefaultPollInterval = 5 * time.Second
	DefaultTarget       = "main"
	DefaultLogLevel     = "info"
)

// Thresholds converts the layout overrides into calculator thresholds,
// filling gaps from the defaults.
func (c *Config) Thresholds() layout.Thresholds {
	th := layout.DefaultThresholds()
	if c.Layout.MinPaneWidth > 0 {
		th.MinPaneWidth = c.Layout.MinPaneWidth
	}
	if c.Layout.MinPaneHeight > 0 {
		th.MinPaneHeight = c.Layout.MinPaneHeight
	}
	if c.Layout.MaxPaneWidth > 0 {
		th.MaxPaneWidth = c.Layout.MaxPaneWidth
	}
	if c.Layout.SidebarWidth > 0 {
		th.SidebarWidth = c.Layout.SidebarWidth
	}
	return th
}

// Validate rejects configs that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.PollInterval < time.Second {
		return fmt.Errorf("poll_interval: %s is below the 1s minimum", c.PollInterval)
	}
	if c.Target == "" {
		return fmt.Errorf("target: must not be empty")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	for name, command := range c.Agents {
		if name == "" {
			return fmt.Errorf("agents: agent name must not be empty")
		}
		if command == "" {
			return fmt.Errorf("agents.%s: command must not be empty", name)
		}
	}
	if c.Layout.MinPaneWidth < 0 || c.Layout.MinPaneHeight < 0 ||
		c.Layout.MaxPaneWidth < 0 || c.Layout.SidebarWidth < 0 {
		return fmt.Errorf("layout: threshold overrides must not be negative")
	}
	if c.Layout.MaxPaneWidth > 0 && c.Layout.MinPaneWidth > c.Layout.MaxPaneWidth {
		return fmt.Errorf("layout: min_pane_width %d exceeds max_pane_width %d",
			c.Layout.MinPaneWidth, c.Layout.MaxPaneWidth)
	}
	return nil
}
