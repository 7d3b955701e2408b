package tmux

import (
	"context"
	"strings"
	"testing"
)

// fakeRunner records exec calls for testing without real tmux.
type fakeRunner struct {
	calls  [][]string
	output map[string]string
	errs   map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		output: make(map[string]string),
		errs:   make(map[string]error),
	}
}

func key(name string, args ...string) string {
	return name + " " + strings.Join(args, " ")
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	k := key(name, args...)
	return f.output[k], f.errs[k]
}

// findCall returns the first call matching the given tmux subcommand, or nil.
func findCall(calls [][]string, subcmd string) []string {
	for _, call := range calls {
		if len(call) >= 2 && call[0] == "tmux" && call[1] == subcmd {
			return call
		}
	}
	return nil
}

func TestListPanes_ParsesFormatFields(t *testing.T) {
	fake := newFakeRunner()
	fake.output[key("tmux", "list-panes", "-F", paneFormat, "-t", "main")] =
		"%0\tgridmux\t40\t50\t0\t0\t1\n%3\tfix-auth\t79\t50\t41\t0\t0"

	mux := New(WithRunner(fake))
	panes, err := mux.ListPanes("main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(panes) != 2 {
		t.Fatalf("expected 2 panes, got %d", len(panes))
	}
	if panes[0].ID != "%0" || !panes[0].Active {
		t.Fatalf("unexpected first pane: %+v", panes[0])
	}
	if panes[1].Title != "fix-auth" || panes[1].X != 41 {
		t.Fatalf("unexpected second pane: %+v", panes[1])
	}
}

func TestSplitPane_ReturnsHandle(t *testing.T) {
	fake := newFakeRunner()
	fake.output[key("tmux", "split-window", "-P", "-F", "#{pane_id}", "-t", "%2", "-h", "-c", "/work/tree")] = "%7"

	mux := New(WithRunner(fake))
	id, err := mux.SplitPane("%2", "/work/tree", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "%7" {
		t.Fatalf("expected %%7, got %q", id)
	}
}

func TestSplitPane_RejectsGarbageOutput(t *testing.T) {
	fake := newFakeRunner()
	fake.output[key("tmux", "split-window", "-P", "-F", "#{pane_id}", "-t", "%2", "-v")] = "no pane"

	mux := New(WithRunner(fake))
	if _, err := mux.SplitPane("%2", "", false); err == nil {
		t.Fatalf("expected error for non-handle output")
	}
}

func TestSelectLayout_PassesDescriptorVerbatim(t *testing.T) {
	fake := newFakeRunner()
	mux := New(WithRunner(fake))

	descriptor := "ef3d,120x40,0,0{40x40,0,0,0,79x40,41,0,1}"
	if err := mux.SelectLayout("main", descriptor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := findCall(fake.calls, "select-layout")
	if call == nil {
		t.Fatalf("select-layout was never invoked")
	}
	if call[len(call)-1] != descriptor {
		t.Fatalf("descriptor mangled: %v", call)
	}
}

func TestWindowSize_ParsesDimensions(t *testing.T) {
	fake := newFakeRunner()
	fake.output[key("tmux", "display-message", "-p", "#{window_width}x#{window_height}", "-t", "main")] = "200x50"

	mux := New(WithRunner(fake))
	w, h, err := mux.WindowSize("main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 200 || h != 50 {
		t.Fatalf("expected 200x50, got %dx%d", w, h)
	}
}

func TestResizePane_UsesColumns(t *testing.T) {
	fake := newFakeRunner()
	mux := New(WithRunner(fake))

	if err := mux.ResizePane("%0", 40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := findCall(fake.calls, "resize-pane")
	want := []string{"tmux", "resize-pane", "-t", "%0", "-x", "40"}
	if len(call) != len(want) {
		t.Fatalf("unexpected argv: %v", call)
	}
	for i := range want {
		if call[i] != want[i] {
			t.Fatalf("unexpected argv: %v", call)
		}
	}
}
