package panes

import (
	"fmt"
	"sync"

	"github.com/gridmux/gridmux/internal/tmux"
)

// fakeMux simulates a tmux window in memory.
type fakeMux struct {
	mu     sync.Mutex
	panes  []tmux.PaneInfo
	nextID int
	width  int
	height int

	killed  []string
	splits  []string
	layouts []string
	sent    map[string][]string
	listErr error
}

func newFakeMux(width, height int) *fakeMux {
	return &fakeMux{nextID: 1, width: width, height: height, sent: make(map[string][]string)}
}

func (f *fakeMux) addPane(id, title string, x, w int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panes = append(f.panes, tmux.PaneInfo{ID: id, Title: title, X: x, Width: w, Height: f.height})
}

func (f *fakeMux) Available() bool { return true }

func (f *fakeMux) ListPanes(string) ([]tmux.PaneInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]tmux.PaneInfo, len(f.panes))
	copy(out, f.panes)
	return out, nil
}

func (f *fakeMux) WindowSize(string) (int, int, error) {
	return f.width, f.height, nil
}

func (f *fakeMux) SplitPane(from, startDir string, _ bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("%%%d", f.nextID)
	f.panes = append(f.panes, tmux.PaneInfo{ID: id, X: 41, Width: 79, Height: f.height})
	f.splits = append(f.splits, from+":"+startDir)
	return id, nil
}

func (f *fakeMux) KillPane(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, id)
	for i := range f.panes {
		if f.panes[i].ID == id {
			f.panes = append(f.panes[:i], f.panes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no such pane %s", id)
}

func (f *fakeMux) SetPaneTitle(id, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.panes {
		if f.panes[i].ID == id {
			f.panes[i].Title = title
			return nil
		}
	}
	return fmt.Errorf("no such pane %s", id)
}

func (f *fakeMux) ResizePane(string, int) error        { return nil }
func (f *fakeMux) ResizeWindow(string, int, int) error { return nil }

func (f *fakeMux) SelectLayout(_, descriptor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.layouts = append(f.layouts, descriptor)
	return nil
}

func (f *fakeMux) SetGlobalOption(string, string) error { return nil }
func (f *fakeMux) RefreshClient() error                 { return nil }

func (f *fakeMux) SendKeys(id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[id] = append(f.sent[id], text)
	return nil
}

func (f *fakeMux) titles() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for _, p := range f.panes {
		out[p.ID] = p.Title
	}
	return out
}

// fakePauser records watcher pause/resume pairing.
type fakePauser struct {
	mu      sync.Mutex
	depth   int
	pauses  int
	resumes int
}

func (f *fakePauser) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.depth++
	f.pauses++
}

func (f *fakePauser) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.depth--
	f.resumes++
}

// fakeGit records provisioning calls.
type fakeGit struct {
	mu        sync.Mutex
	added     []string
	removed   []string
	deleted   []string
	addErr    error
	removeErr error
}

func (f *fakeGit) WorktreeAdd(path, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, path+":"+branch)
	return nil
}

func (f *fakeGit) WorktreeRemove(path string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeGit) BranchDelete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}
