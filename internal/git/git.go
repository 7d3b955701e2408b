// Package git shells out to the version-control CLI for pane provisioning
// and teardown. No repository content is inspected here.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds every git invocation.
const DefaultTimeout = 30 * time.Second

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

// Git wraps worktree and branch operations for a single repository.
type Git struct {
	root    string
	run     CmdRunner
	timeout time.Duration
}

// Option configures a Git instance.
type Option func(*Git)

// WithRunner overrides command execution, primarily for tests.
func WithRunner(r CmdRunner) Option {
	return func(g *Git) { g.run = r }
}

// WithTimeout overrides the per-invocation timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Git) { g.timeout = d }
}

// New creates a Git bound to the repository at root.
func New(root string, opts ...Option) *Git {
	g := &Git{root: root, run: ExecRunner{}, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Git) exec(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	full := append([]string{"-C", g.root}, args...)
	return g.run.Run(ctx, "git", full...)
}

// RepoRoot resolves the top-level directory of the repository containing dir.
func RepoRoot(dir string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	out, err := ExecRunner{}.Run(ctx, "git", "-C", dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not inside a git repository: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// WorktreeAdd creates a worktree at path on a new branch.
func (g *Git) WorktreeAdd(path, branch string) error {
	if out, err := g.exec("worktree", "add", "-b", branch, path); err != nil {
		return fmt.Errorf("git worktree add failed: %s: %w", out, err)
	}
	return nil
}

// WorktreeRemove removes the worktree at path.
func (g *Git) WorktreeRemove(path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	if out, err := g.exec(args...); err != nil {
		return fmt.Errorf("git worktree remove failed: %s: %w", out, err)
	}
	return nil
}

// BranchDelete force-deletes a branch.
func (g *Git) BranchDelete(name string) error {
	if out, err := g.exec("branch", "-D", name); err != nil {
		return fmt.Errorf("git branch -D failed: %s: %w", out, err)
	}
	return nil
}
