package daemon

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gridmux/gridmux/internal/registry"
)

type countingReconciler struct {
	passes atomic.Int64
	panic  bool
}

func (c *countingReconciler) LoadAndProcessPanes() (*registry.Registry, error) {
	c.passes.Add(1)
	if c.panic {
		panic("tmux exploded")
	}
	return &registry.Registry{}, nil
}

func TestPoller_TickerDrivesPasses(t *testing.T) {
	rec := &countingReconciler{}
	p := NewPoller(PollerConfig{Interval: 10 * time.Millisecond, Logger: slog.Default()}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for rec.passes.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d passes before deadline", rec.passes.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestPoller_ReloadSignalTriggersPass(t *testing.T) {
	rec := &countingReconciler{}
	reloads := make(chan struct{}, 1)
	p := NewPoller(PollerConfig{Interval: time.Hour, Logger: slog.Default(), Reloads: reloads}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	// Run performs one pass up front; wait for it so the reload pass is
	// distinguishable.
	waitFor(t, func() bool { return rec.passes.Load() == 1 })

	reloads <- struct{}{}
	waitFor(t, func() bool { return rec.passes.Load() == 2 })
}

func TestPoller_PanicDoesNotKillLoop(t *testing.T) {
	rec := &countingReconciler{panic: true}
	p := NewPoller(PollerConfig{Interval: time.Hour, Logger: slog.Default()}, rec)

	p.PollNow()
	p.PollNow()

	if got := rec.passes.Load(); got != 2 {
		t.Fatalf("passes = %d, want 2", got)
	}
}

// persistingReconciler saves through the store on every pass the way the
// real manager does: under a watcher pause, re-asserting the same state.
type persistingReconciler struct {
	store   *registry.Store
	watcher *registry.Watcher
	passes  atomic.Int64
}

func (c *persistingReconciler) LoadAndProcessPanes() (*registry.Registry, error) {
	c.passes.Add(1)
	c.watcher.Pause()
	defer c.watcher.Resume()
	return c.store.Update(func(r *registry.Registry) error {
		if r.FindByID("a") == nil {
			r.Panes = append(r.Panes, registry.LogicalPane{ID: "a", Slug: "fix-auth", Kind: registry.KindShell})
		}
		return nil
	})
}

// The daemon's own saves must not feed back through the watcher into extra
// passes: with an hour-long interval the pass count stays put instead of
// climbing at the watcher's debounce rate — while an external edit to the
// registry file still triggers a pass.
func TestPoller_OwnSavesDoNotFeedBack(t *testing.T) {
	store := registry.NewStore(filepath.Join(t.TempDir(), "registry.json"))
	watcher, err := registry.NewWatcher(store, slog.Default())
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	rec := &persistingReconciler{store: store, watcher: watcher}
	p := NewPoller(PollerConfig{Interval: time.Hour, Logger: slog.Default(), Reloads: watcher.Events()}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)
	go p.Run(ctx)

	waitFor(t, func() bool { return rec.passes.Load() >= 1 })

	// Several debounce windows pass; a feedback loop would add a pass per
	// window.
	time.Sleep(500 * time.Millisecond)
	settled := rec.passes.Load()
	if settled > 2 {
		t.Fatalf("daemon chased its own saves: %d passes with an hour-long interval", settled)
	}

	if err := os.WriteFile(store.Path(), []byte(`{"projectName":"edited"}`+"\n"), 0644); err != nil {
		t.Fatalf("external edit: %v", err)
	}
	waitFor(t, func() bool { return rec.passes.Load() > settled })

	time.Sleep(500 * time.Millisecond)
	if got := rec.passes.Load(); got > settled+2 {
		t.Fatalf("external edit cascaded into %d passes", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not reached before deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
