package tmux

import "errors"

// ErrTmuxNotAvailable is returned when tmux is not installed.
var ErrTmuxNotAvailable = errors.New("tmux is not available in PATH")

// PaneInfo is a snapshot of one live physical pane.
type PaneInfo struct {
	ID     string // multiplexer handle, e.g. "%3"; not stable across restarts
	Title  string
	Width  int
	Height int
	X      int
	Y      int
	Active bool
}

// Multiplexer defines the pane-level operations the orchestrator consumes.
// The abstraction keeps the lifecycle manager testable against a fake.
type Multiplexer interface {
	// Available returns true if the multiplexer is installed and usable.
	Available() bool

	// ListPanes returns every pane in the target window.
	ListPanes(target string) ([]PaneInfo, error)

	// WindowSize returns the target window's dimensions.
	WindowSize(target string) (width, height int, err error)

	// SplitPane splits from the given pane and returns the new pane's
	// handle. startDir may be empty.
	SplitPane(from, startDir string, horizontal bool) (string, error)

	// KillPane destroys a pane by handle.
	KillPane(id string) error

	// SetPaneTitle sets a pane's title. Titles are the rebind key, so
	// callers keep them equal to the pane's slug.
	SetPaneTitle(id, title string) error

	// ResizePane sets a pane's width in columns.
	ResizePane(id string, width int) error

	// ResizeWindow sets the window's dimensions.
	ResizeWindow(target string, width, height int) error

	// SelectLayout applies a full checksum-prefixed layout descriptor.
	SelectLayout(target, descriptor string) error

	// SetGlobalOption sets a server-wide option.
	SetGlobalOption(name, value string) error

	// RefreshClient forces attached clients to repaint.
	RefreshClient() error

	// SendKeys sends text followed by Enter to a pane.
	SendKeys(id, text string) error
}
