package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/gridmux/gridmux/internal/registry"
)

// Reconciler runs one reconciliation pass against tmux. Satisfied by
// *panes.Manager.
type Reconciler interface {
	LoadAndProcessPanes() (*registry.Registry, error)
}

// PollerConfig holds configuration for the poll loop.
type PollerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
	// Reloads signals that the registry changed on disk outside a poll;
	// each signal triggers an extra pass. Optional.
	Reloads <-chan struct{}
}

// Poller periodically reconciles the pane registry against live tmux state.
type Poller struct {
	interval time.Duration
	manager  Reconciler
	reloads  <-chan struct{}
	logger   *slog.Logger
}

// NewPoller creates a poller with the given configuration.
func NewPoller(cfg PollerConfig, manager Reconciler) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		interval: interval,
		manager:  manager,
		reloads:  cfg.Reloads,
		logger:   logger,
	}
}

// Run starts the poll loop. Blocks until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("poller started", "interval", p.interval)

	// Initial pass before the first tick so a restart repairs drift
	// immediately.
	p.poll()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			p.poll()
		case _, ok := <-p.reloads:
			if !ok {
				p.reloads = nil
				continue
			}
			p.logger.Debug("registry changed on disk, reconciling")
			p.poll()
		}
	}
}

// PollNow triggers an immediate pass.
func (p *Poller) PollNow() {
	p.poll()
}

// poll performs a single pass. Panics are contained so one bad pass cannot
// take down the daemon.
func (p *Poller) poll() {
	defer func() {
		if err := recover(); err != nil {
			p.logger.Error("poll panic recovered", "error", err)
		}
	}()

	if _, err := p.manager.LoadAndProcessPanes(); err != nil {
		p.logger.Error("reconciliation pass failed", "error", err)
	}
}
