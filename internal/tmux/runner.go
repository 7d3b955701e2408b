package tmux

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds every multiplexer invocation. A timed-out call is a
// definitive failure, never an indefinite hang.
const DefaultTimeout = 5 * time.Second

// CmdRunner abstracts command execution for testability.
type CmdRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner implements CmdRunner using os/exec.
type ExecRunner struct{}

// Run executes a command and returns its trimmed combined output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
