package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Fatalf("PollInterval = %s, want %s", cfg.PollInterval, DefaultPollInterval)
	}
	if cfg.Target != DefaultTarget {
		t.Fatalf("Target = %q, want %q", cfg.Target, DefaultTarget)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Fatalf("Logging.Level = %q, want %q", cfg.Logging.Level, DefaultLogLevel)
	}
	if cfg.Agents == nil {
		t.Fatal("Agents map should never be nil")
	}
}

func TestLoad_OverridesApplied(t *testing.T) {
	path := writeConfig(t, `
poll_interval: 10s
target: work
default_autopilot: true
agents:
  claude: claude
  aider: aider --yes
layout:
  min_pane_width: 70
  sidebar_width: 50
logging:
  level: debug
`)
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("PollInterval = %s, want 10s", cfg.PollInterval)
	}
	if cfg.Target != "work" {
		t.Fatalf("Target = %q, want %q", cfg.Target, "work")
	}
	if !cfg.DefaultAutopilot {
		t.Fatal("DefaultAutopilot not applied")
	}
	if got := cfg.Agents["aider"]; got != "aider --yes" {
		t.Fatalf("Agents[aider] = %q", got)
	}

	th := cfg.Thresholds()
	if th.MinPaneWidth != 70 || th.SidebarWidth != 50 {
		t.Fatalf("thresholds not overridden: %+v", th)
	}
	if th.MaxPaneWidth != 120 {
		t.Fatalf("unset threshold should keep default, got %d", th.MaxPaneWidth)
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "pole_interval: 10s\n")
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoad_BadDurationRejected(t *testing.T) {
	path := writeConfig(t, "poll_interval: fast\n")
	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatal("expected error for unparseable duration")
	}
	if !strings.Contains(err.Error(), "poll_interval") {
		t.Fatalf("error should name the field: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(c *Config) {}, false},
		{"sub-second poll", func(c *Config) { c.PollInterval = 200 * time.Millisecond }, true},
		{"empty target", func(c *Config) { c.Target = "" }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"empty agent command", func(c *Config) { c.Agents = map[string]string{"claude": ""} }, true},
		{"negative threshold", func(c *Config) { c.Layout.MinPaneWidth = -1 }, true},
		{"min above max", func(c *Config) {
			c.Layout.MinPaneWidth = 130
			c.Layout.MaxPaneWidth = 120
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := effective(rawConfig{})
			if err != nil {
				t.Fatalf("effective: %v", err)
			}
			tc.mutate(cfg)
			err = cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
