package tmux

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// paneFormat is the list-panes format consumed by ListPanes.
const paneFormat = "#{pane_id}\t#{pane_title}\t#{pane_width}\t#{pane_height}\t#{pane_left}\t#{pane_top}\t#{pane_active}"

// queryRetries is how many extra attempts a read-only query gets before its
// failure is surfaced. Mutations are never retried; callers treat their
// failure as "target presumed already gone".
const queryRetries = 2

const retryDelay = 100 * time.Millisecond

// Tmux implements the Multiplexer interface over the tmux CLI.
type Tmux struct {
	run     CmdRunner
	timeout time.Duration
}

// Option configures a Tmux instance.
type Option func(*Tmux)

// WithRunner overrides command execution, primarily for tests.
func WithRunner(r CmdRunner) Option {
	return func(t *Tmux) { t.run = r }
}

// WithTimeout overrides the per-invocation timeout.
func WithTimeout(d time.Duration) Option {
	return func(t *Tmux) { t.timeout = d }
}

// New creates a tmux-backed multiplexer.
func New(opts ...Option) *Tmux {
	t := &Tmux{run: ExecRunner{}, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Available returns true if tmux is installed.
func (t *Tmux) Available() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}

func (t *Tmux) exec(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	return t.run.Run(ctx, "tmux", args...)
}

// query runs a read-only tmux command with bounded retries.
func (t *Tmux) query(args ...string) (string, error) {
	out, err := t.exec(args...)
	for attempt := 0; err != nil && attempt < queryRetries; attempt++ {
		// Exit code 1 means "nothing to list", not a transient failure.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		time.Sleep(retryDelay)
		out, err = t.exec(args...)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
	}
	return out, err
}

// ListPanes returns every pane in the target window.
func (t *Tmux) ListPanes(target string) ([]PaneInfo, error) {
	args := []string{"list-panes", "-F", paneFormat}
	if target != "" {
		args = append(args, "-t", target)
	}
	out, err := t.query(args...)
	if err != nil {
		return nil, fmt.Errorf("tmux list-panes failed: %w", err)
	}

	var panes []PaneInfo
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		width, _ := strconv.Atoi(fields[2])
		height, _ := strconv.Atoi(fields[3])
		x, _ := strconv.Atoi(fields[4])
		y, _ := strconv.Atoi(fields[5])
		panes = append(panes, PaneInfo{
			ID:     fields[0],
			Title:  fields[1],
			Width:  width,
			Height: height,
			X:      x,
			Y:      y,
			Active: fields[6] == "1",
		})
	}
	return panes, nil
}

// WindowSize returns the target window's dimensions.
func (t *Tmux) WindowSize(target string) (int, int, error) {
	args := []string{"display-message", "-p", "#{window_width}x#{window_height}"}
	if target != "" {
		args = append(args, "-t", target)
	}
	out, err := t.query(args...)
	if err != nil {
		return 0, 0, fmt.Errorf("tmux display-message failed: %w", err)
	}
	parts := strings.SplitN(strings.TrimSpace(out), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected window size %q", out)
	}
	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected window width %q", parts[0])
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected window height %q", parts[1])
	}
	return width, height, nil
}

// SplitPane splits from the given pane and returns the new pane's handle.
func (t *Tmux) SplitPane(from, startDir string, horizontal bool) (string, error) {
	args := []string{"split-window", "-P", "-F", "#{pane_id}"}
	if from != "" {
		args = append(args, "-t", from)
	}
	if horizontal {
		args = append(args, "-h")
	} else {
		args = append(args, "-v")
	}
	if startDir != "" {
		args = append(args, "-c", startDir)
	}
	out, err := t.exec(args...)
	if err != nil {
		return "", fmt.Errorf("tmux split-window failed: %s: %w", out, err)
	}
	id := strings.TrimSpace(out)
	if !strings.HasPrefix(id, "%") {
		return "", fmt.Errorf("unexpected split-window output %q", out)
	}
	return id, nil
}

// KillPane destroys a pane by handle.
func (t *Tmux) KillPane(id string) error {
	if out, err := t.exec("kill-pane", "-t", id); err != nil {
		return fmt.Errorf("tmux kill-pane failed: %s: %w", out, err)
	}
	return nil
}

// SetPaneTitle sets a pane's title.
func (t *Tmux) SetPaneTitle(id, title string) error {
	if out, err := t.exec("select-pane", "-t", id, "-T", title); err != nil {
		return fmt.Errorf("tmux select-pane -T failed: %s: %w", out, err)
	}
	return nil
}

// ResizePane sets a pane's width in columns.
func (t *Tmux) ResizePane(id string, width int) error {
	if out, err := t.exec("resize-pane", "-t", id, "-x", strconv.Itoa(width)); err != nil {
		return fmt.Errorf("tmux resize-pane failed: %s: %w", out, err)
	}
	return nil
}

// ResizeWindow sets the window's dimensions.
func (t *Tmux) ResizeWindow(target string, width, height int) error {
	args := []string{"resize-window", "-x", strconv.Itoa(width), "-y", strconv.Itoa(height)}
	if target != "" {
		args = append(args, "-t", target)
	}
	if out, err := t.exec(args...); err != nil {
		return fmt.Errorf("tmux resize-window failed: %s: %w", out, err)
	}
	return nil
}

// SelectLayout applies a full layout descriptor to the target window.
func (t *Tmux) SelectLayout(target, descriptor string) error {
	args := []string{"select-layout"}
	if target != "" {
		args = append(args, "-t", target)
	}
	args = append(args, descriptor)
	if out, err := t.exec(args...); err != nil {
		return fmt.Errorf("tmux select-layout failed: %s: %w", out, err)
	}
	return nil
}

// SetGlobalOption sets a server-wide option.
func (t *Tmux) SetGlobalOption(name, value string) error {
	if out, err := t.exec("set-option", "-g", name, value); err != nil {
		return fmt.Errorf("tmux set-option failed: %s: %w", out, err)
	}
	return nil
}

// RefreshClient forces attached clients to repaint.
func (t *Tmux) RefreshClient() error {
	if out, err := t.exec("refresh-client"); err != nil {
		return fmt.Errorf("tmux refresh-client failed: %s: %w", out, err)
	}
	return nil
}

// SendKeys sends text followed by Enter to a pane. Enter goes separately so
// the receiving program sees a settled paste.
func (t *Tmux) SendKeys(id, text string) error {
	if out, err := t.exec("send-keys", "-t", id, text); err != nil {
		return fmt.Errorf("tmux send-keys failed: %s: %w", out, err)
	}
	// Delay scales with text length: long pastes take time to register.
	delay := 50 * time.Millisecond
	if len(text) > 500 {
		delay += time.Duration(len(text)/100) * time.Millisecond
		if delay > 500*time.Millisecond {
			delay = 500 * time.Millisecond
		}
	}
	time.Sleep(delay)
	if out, err := t.exec("send-keys", "-t", id, "Enter"); err != nil {
		return fmt.Errorf("tmux send-keys (Enter) failed: %s: %w", out, err)
	}
	return nil
}
