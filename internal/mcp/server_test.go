package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gridmux/gridmux/internal/panes"
	"github.com/gridmux/gridmux/internal/registry"
)

type fakeEngine struct {
	created     []panes.CreateOptions
	agentsSeen  []string
	closed      []string
	invalidated int
	reconciles  int
	createErr   error
	closeErr    error
}

func (f *fakeEngine) CreatePane(opts panes.CreateOptions, availableAgents []string) (panes.CreateResult, error) {
	f.created = append(f.created, opts)
	f.agentsSeen = availableAgents
	if f.createErr != nil {
		return panes.CreateResult{}, f.createErr
	}
	kind := opts.Kind
	if kind == "" {
		kind = registry.KindWorktree
	}
	return panes.CreateResult{Pane: registry.LogicalPane{
		ID:     "id-1",
		Slug:   opts.Slug,
		PaneID: "%7",
		Kind:   kind,
	}}, nil
}

func (f *fakeEngine) ClosePane(id string) error {
	f.closed = append(f.closed, id)
	return f.closeErr
}

func (f *fakeEngine) LoadAndProcessPanes() (*registry.Registry, error) {
	f.reconciles++
	return &registry.Registry{Panes: []registry.LogicalPane{{ID: "id-1"}}}, nil
}

func (f *fakeEngine) InvalidateLayout() {
	f.invalidated++
}

func newTestServer(t *testing.T) (*Server, *fakeEngine, *registry.Store) {
	t.Helper()
	store := registry.NewStore(filepath.Join(t.TempDir(), "registry.json"))
	engine := &fakeEngine{}
	s := NewServer(engine, store, map[string]string{"claude": "claude", "aider": "aider"})
	return s, engine, store
}

func TestCreatePane_PassesSortedAgents(t *testing.T) {
	s, engine, _ := newTestServer(t)

	_, out, err := s.handleCreatePane(context.Background(), nil, CreatePaneInput{Slug: "fix-auth", Prompt: "fix it"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Slug != "fix-auth" || out.PaneID != "%7" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(engine.agentsSeen) != 2 || engine.agentsSeen[0] != "aider" || engine.agentsSeen[1] != "claude" {
		t.Fatalf("agents not sorted: %v", engine.agentsSeen)
	}
}

func TestCreatePane_RejectsUnknownKindAndAgent(t *testing.T) {
	s, engine, _ := newTestServer(t)

	if _, _, err := s.handleCreatePane(context.Background(), nil, CreatePaneInput{Slug: "x", Kind: "tab"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, _, err := s.handleCreatePane(context.Background(), nil, CreatePaneInput{Slug: "x", Agent: "gpt"}); err == nil {
		t.Fatal("expected error for unknown agent")
	}
	if len(engine.created) != 0 {
		t.Fatalf("engine should not be reached on validation failure: %v", engine.created)
	}
}

func TestClosePane_ResolvesSlugToID(t *testing.T) {
	s, engine, store := newTestServer(t)
	if _, err := store.Update(func(r *registry.Registry) error {
		r.Panes = append(r.Panes, registry.LogicalPane{ID: "id-42", Slug: "fix-auth"})
		return nil
	}); err != nil {
		t.Fatalf("seed registry: %v", err)
	}

	_, out, err := s.handleClosePane(context.Background(), nil, ClosePaneInput{ID: "fix-auth"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Closed {
		t.Fatal("expected closed=true")
	}
	if len(engine.closed) != 1 || engine.closed[0] != "id-42" {
		t.Fatalf("slug not resolved to id: %v", engine.closed)
	}
}

func TestClosePane_PropagatesLockError(t *testing.T) {
	s, engine, _ := newTestServer(t)
	engine.closeErr = panes.ErrPaneLocked

	_, _, err := s.handleClosePane(context.Background(), nil, ClosePaneInput{ID: "id-9"})
	if !errors.Is(err, panes.ErrPaneLocked) {
		t.Fatalf("expected ErrPaneLocked, got %v", err)
	}
}

func TestListPanes_ReadsStore(t *testing.T) {
	s, _, store := newTestServer(t)
	if _, err := store.Update(func(r *registry.Registry) error {
		r.ProjectName = "demo"
		r.Panes = append(r.Panes, registry.LogicalPane{
			ID: "id-1", Slug: "fix-auth", PaneID: "%3", WorktreePath: "/repo/.gridmux/worktrees/fix-auth",
		})
		return nil
	}); err != nil {
		t.Fatalf("seed registry: %v", err)
	}

	_, out, err := s.handleListPanes(context.Background(), nil, ListPanesInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ProjectName != "demo" || len(out.Panes) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.Panes[0].Kind != string(registry.KindWorktree) {
		t.Fatalf("kind not backfilled from worktree path: %+v", out.Panes[0])
	}
}

func TestApplyLayout_InvalidatesThenReconciles(t *testing.T) {
	s, engine, _ := newTestServer(t)

	_, out, err := s.handleApplyLayout(context.Background(), nil, ApplyLayoutInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.invalidated != 1 || engine.reconciles != 1 {
		t.Fatalf("invalidated=%d reconciles=%d, want 1/1", engine.invalidated, engine.reconciles)
	}
	if out.PaneCount != 1 {
		t.Fatalf("PaneCount = %d, want 1", out.PaneCount)
	}
}
