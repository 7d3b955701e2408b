package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the write-then-rename event burst a single
// registry save produces into one reload notification.
const debounceWindow = 100 * time.Millisecond

// Watcher reloads the registry when the file changes on disk. Multi-step
// mutations pause it so a reload cannot resurrect state mid-teardown; the
// pause is reference-counted because close and merge-cleanup flows nest.
type Watcher struct {
	store  *Store
	fw     *fsnotify.Watcher
	events chan struct{}
	logger *slog.Logger

	mu         sync.Mutex
	pauseDepth int
}

// NewWatcher creates a watcher for the store's registry file. The parent
// directory is watched because atomic saves replace the file by rename.
func NewWatcher(store *Store, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(store.Path())); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch registry directory: %w", err)
	}
	return &Watcher{
		store:  store,
		fw:     fw,
		events: make(chan struct{}, 1),
		logger: logger,
	}, nil
}

// Events signals after the registry file changed on disk. Notifications
// are coalesced; receivers re-read via the store.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Pause suppresses reload notifications until a matching Resume. Nested
// pauses stack.
func (w *Watcher) Pause() {
	w.mu.Lock()
	w.pauseDepth++
	w.mu.Unlock()
}

// Resume undoes one Pause. Callers pair it unconditionally with Pause,
// symmetric to lock release.
func (w *Watcher) Resume() {
	w.mu.Lock()
	if w.pauseDepth > 0 {
		w.pauseDepth--
	}
	w.mu.Unlock()
}

func (w *Watcher) paused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pauseDepth > 0
}

// Run processes file events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fw.Close()

	target := filepath.Clean(w.store.Path())
	var debounce *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if w.paused() {
				// Dropped, not deferred: the mutation in progress will
				// trigger its own reconciliation when it completes.
				continue
			}
			if debounce == nil {
				debounce = time.AfterFunc(debounceWindow, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				debounce.Reset(debounceWindow)
			}
		case <-fire:
			debounce = nil
			if w.paused() {
				continue
			}
			select {
			case w.events <- struct{}{}:
			default:
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("registry watcher error", "error", err)
		}
	}
}
