package panes

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gridmux/gridmux/internal/layout"
	"github.com/gridmux/gridmux/internal/registry"
	"github.com/gridmux/gridmux/internal/tmux"
)

// ErrPaneLocked is returned when an operation targets a pane another
// operation is already tearing down. Callers treat it as a no-op; nothing
// ever blocks waiting for a lifecycle lock.
var ErrPaneLocked = errors.New("pane is locked by another operation")

// ErrSlugExists is returned when a create collides with an existing slug.
// Slugs double as pane titles and branch names, so they must be unique.
var ErrSlugExists = errors.New("a pane with this slug already exists")

// Provisioner is the slice of the version-control layer the manager needs
// for pane provisioning and teardown.
type Provisioner interface {
	WorktreeAdd(path, branch string) error
	WorktreeRemove(path string, force bool) error
	BranchDelete(name string) error
}

// Pauser suspends the registry file watcher around multi-step mutations.
type Pauser interface {
	Pause()
	Resume()
}

// Pass selects the reconciliation policy.
type Pass int

const (
	// PassInitial runs at process start: missing worktree panes are
	// recreated inline and missing ephemeral panes are hard-deleted
	// before the pass returns.
	PassInitial Pass = iota
	// PassPoll runs on the periodic interval: ephemeral panes are still
	// hard-deleted, worktree panes are queued and recreated in the
	// follow-up step, and the lock table is always consulted first.
	PassPoll
)

// appliedLayout is the no-op cache for layout application.
type appliedLayout struct {
	width, height, paneCount int
	valid                    bool
}

// ManagerConfig wires a Manager's collaborators. Everything is injected;
// there are no package-level singletons.
type ManagerConfig struct {
	Store       *registry.Store
	Mux         tmux.Multiplexer
	Git         Provisioner
	Watcher     Pauser // optional
	Locks       *LockTable
	Logger      *slog.Logger
	Thresholds  layout.Thresholds
	Target      string // multiplexer window target
	ProjectRoot string
	Agents      map[string]string // agent designation -> launch command
}

// Manager owns the pane registry and is the sole decision-maker for
// rebind, recreation and discard. All collaborators mutate panes through
// it.
type Manager struct {
	store   *registry.Store
	mux     tmux.Multiplexer
	git     Provisioner
	watcher Pauser
	locks   *LockTable
	logger  *slog.Logger
	th      layout.Thresholds
	target  string
	root    string
	agents  map[string]string

	mu             sync.Mutex
	firstPassDone  bool
	recreateQueued map[string]bool
	lastApplied    appliedLayout
}

// NewManager creates a manager from its wired collaborators.
func NewManager(cfg ManagerConfig) *Manager {
	locks := cfg.Locks
	if locks == nil {
		locks = NewLockTable()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:          cfg.Store,
		mux:            cfg.Mux,
		git:            cfg.Git,
		watcher:        cfg.Watcher,
		locks:          locks,
		logger:         logger,
		th:             cfg.Thresholds,
		target:         cfg.Target,
		root:           cfg.ProjectRoot,
		agents:         cfg.Agents,
		recreateQueued: make(map[string]bool),
	}
}

// Locks exposes the lifecycle lock primitives to the close and
// merge-cleanup flows.
func (m *Manager) Locks() *LockTable {
	return m.locks
}

// WorktreePath returns where a pane's worktree lives for the given slug.
func (m *Manager) WorktreePath(slug string) string {
	return filepath.Join(m.root, ".gridmux", "worktrees", slug)
}

// CreateOptions describes a pane to create.
type CreateOptions struct {
	Slug      string
	Prompt    string
	Kind      registry.PaneKind
	Agent     string
	Autopilot bool
}

// CreateResult reports the created pane and whether the caller must still
// prompt the user to choose an agent.
type CreateResult struct {
	Pane             registry.LogicalPane
	NeedsAgentChoice bool
}

// CreatePane provisions a worktree if required, spawns the physical pane,
// records it in the registry and recomputes the layout. When no agent was
// chosen and several are available the pane is created without one and the
// caller is told to ask.
func (m *Manager) CreatePane(opts CreateOptions, availableAgents []string) (CreateResult, error) {
	slug := strings.TrimSpace(opts.Slug)
	if slug == "" {
		return CreateResult{}, fmt.Errorf("pane slug is required")
	}
	kind := opts.Kind
	if kind == "" {
		kind = registry.KindShell
	}

	reg, err := m.store.Load()
	if err != nil {
		return CreateResult{}, err
	}
	if reg.FindBySlug(slug) != nil {
		return CreateResult{}, fmt.Errorf("%w: %q", ErrSlugExists, slug)
	}

	agent := opts.Agent
	needsChoice := false
	if agent == "" {
		switch len(availableAgents) {
		case 0:
			// Bare shell pane.
		case 1:
			agent = availableAgents[0]
		default:
			needsChoice = true
		}
	}

	var worktreePath string
	if kind == registry.KindWorktree {
		worktreePath = m.WorktreePath(slug)
		if err := m.git.WorktreeAdd(worktreePath, slug); err != nil {
			return CreateResult{}, fmt.Errorf("failed to provision worktree for %q: %w", slug, err)
		}
	}

	startDir := worktreePath
	if startDir == "" {
		startDir = m.root
	}

	base := m.splitBase(reg)
	paneID, err := m.mux.SplitPane(base, startDir, true)
	if err != nil {
		return CreateResult{}, fmt.Errorf("failed to spawn pane for %q: %w", slug, err)
	}
	if err := m.mux.SetPaneTitle(paneID, slug); err != nil {
		m.logger.Warn("failed to title pane", "slug", slug, "error", err)
	}

	// Launch failures stay inside the pane as a diagnostic so the user can
	// inspect and retry; they never abort creation.
	if agent != "" && !needsChoice {
		m.launchAgent(paneID, agent, opts.Prompt)
	}

	pane := registry.LogicalPane{
		ID:           uuid.NewString(),
		Slug:         slug,
		Prompt:       opts.Prompt,
		PaneID:       paneID,
		Kind:         kind,
		WorktreePath: worktreePath,
		Agent:        agent,
		Autopilot:    opts.Autopilot,
	}
	var welcomeToKill string
	updated, err := m.store.Update(func(r *registry.Registry) error {
		if r.FindBySlug(slug) != nil {
			return fmt.Errorf("%w: %q", ErrSlugExists, slug)
		}
		if len(r.Panes) == 0 && r.WelcomePaneID != "" {
			welcomeToKill = r.WelcomePaneID
			r.WelcomePaneID = ""
		}
		r.Panes = append(r.Panes, pane)
		return nil
	})
	if err != nil {
		// The physical pane exists but the record does not; tear it down
		// rather than leak an untracked pane.
		if killErr := m.mux.KillPane(paneID); killErr != nil {
			m.logger.Warn("failed to kill unrecorded pane", "pane", paneID, "error", killErr)
		}
		return CreateResult{}, err
	}

	// Zero-to-one transition tears down the placeholder.
	if welcomeToKill != "" {
		if err := m.mux.KillPane(welcomeToKill); err != nil {
			m.logger.Debug("welcome pane already gone", "pane", welcomeToKill, "error", err)
		}
		m.InvalidateLayout()
	}

	m.relayout(updated)
	return CreateResult{Pane: pane, NeedsAgentChoice: needsChoice}, nil
}

// ClosePane tears down a pane: registry first, physical pane and worktree
// after, layout last. The lifecycle lock is held for the whole operation
// and released in a guaranteed-cleanup block.
func (m *Manager) ClosePane(id string) error {
	reg, err := m.store.Load()
	if err != nil {
		return err
	}
	pane := reg.FindByID(id)
	if pane == nil {
		return fmt.Errorf("unknown pane %q", id)
	}

	if !m.locks.Acquire(pane.ID, pane.PaneID) {
		return fmt.Errorf("%w: %s", ErrPaneLocked, pane.Slug)
	}
	defer m.locks.Release(pane.ID, pane.PaneID)

	if m.watcher != nil {
		m.watcher.Pause()
		defer m.watcher.Resume()
	}

	// Registry before the destructive external calls: an interleaved poll
	// must observe the already-updated state, not stale state it would
	// try to repair.
	updated, err := m.store.Update(func(r *registry.Registry) error {
		if !r.RemoveByID(id) {
			return fmt.Errorf("pane %q vanished from registry", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if pane.PaneID != "" {
		if err := m.mux.KillPane(pane.PaneID); err != nil {
			// Presumed already gone.
			m.logger.Debug("pane kill failed", "pane", pane.PaneID, "error", err)
		}
	}
	if pane.EffectiveKind() == registry.KindWorktree && pane.WorktreePath != "" {
		if err := m.git.WorktreeRemove(pane.WorktreePath, true); err != nil {
			m.logger.Warn("worktree removal failed", "slug", pane.Slug, "error", err)
		}
		if err := m.git.BranchDelete(pane.Slug); err != nil {
			m.logger.Debug("branch delete failed", "slug", pane.Slug, "error", err)
		}
	}

	// One-to-zero transition recreates the placeholder and forces a fresh
	// layout application.
	if len(updated.Panes) == 0 {
		m.ensureWelcomePane(updated)
		m.InvalidateLayout()
	}

	m.relayout(updated)
	return nil
}

// LoadAndProcessPanes runs a full reconciliation pass and returns the
// resulting registry snapshot. The first call after process start uses the
// aggressive initial-load policy.
func (m *Manager) LoadAndProcessPanes() (*registry.Registry, error) {
	m.mu.Lock()
	pass := PassPoll
	if !m.firstPassDone {
		pass = PassInitial
	}
	m.mu.Unlock()

	reg, err := m.Reconcile(pass)
	if err != nil {
		return reg, err
	}

	m.mu.Lock()
	m.firstPassDone = true
	m.mu.Unlock()
	return reg, nil
}

// Reconcile aligns the registry with live multiplexer state: rebind by
// title, then apply the orphan policy, persist, and recompute layout if
// the effective pane set changed.
func (m *Manager) Reconcile(pass Pass) (*registry.Registry, error) {
	if pass == PassInitial {
		// Process-local queues reset on restart.
		m.mu.Lock()
		m.recreateQueued = make(map[string]bool)
		m.mu.Unlock()
	}

	// The pass's own saves must not come back through the watcher as
	// external edits; that would re-trigger reconciliation and pin the
	// daemon to the debounce rate instead of the poll interval.
	if m.watcher != nil {
		m.watcher.Pause()
		defer m.watcher.Resume()
	}

	live, err := m.mux.ListPanes(m.target)
	if err != nil {
		// Transient: leave state untouched rather than guessing.
		m.logger.Warn("reconcile skipped, live pane query failed", "error", err)
		return m.store.Load()
	}

	liveByID := make(map[string]tmux.PaneInfo, len(live))
	titleToID := make(map[string]string, len(live))
	for _, p := range live {
		liveByID[p.ID] = p
		// First title wins. Duplicate titles are a documented gap: the
		// slug is the sole rebind key.
		if _, seen := titleToID[p.Title]; !seen {
			titleToID[p.Title] = p.ID
		}
	}

	var toRecreate []registry.LogicalPane
	updated, err := m.store.Update(func(r *registry.Registry) error {
		m.ensureControlPane(r, live)

		kept := r.Panes[:0]
		for _, p := range r.Panes {
			// Intentionally-closing panes are dropped from this pass's
			// view: the close operation owns them.
			if m.locks.IsLocked(p.ID) || (p.PaneID != "" && m.locks.IsLocked(p.PaneID)) {
				kept = append(kept, p)
				continue
			}

			if p.PaneID != "" {
				if _, alive := liveByID[p.PaneID]; alive {
					m.clearRecreateQueue(p.ID)
					kept = append(kept, p)
					continue
				}
			}

			// Stale handle: rediscover by title. The pane already exists,
			// it is only rebound, never created here.
			if liveID, found := titleToID[p.Slug]; found {
				p.PaneID = liveID
				m.clearRecreateQueue(p.ID)
				m.logger.Info("rebound pane by title", "slug", p.Slug, "pane", liveID)
				kept = append(kept, p)
				continue
			}

			// Orphaned. Policy is asymmetric by kind.
			switch p.EffectiveKind() {
			case registry.KindWorktree:
				if m.queueRecreate(p.ID) {
					toRecreate = append(toRecreate, p)
				}
				kept = append(kept, p)
			case registry.KindShell, registry.KindConflict:
				// Never recreatable, and a stale handle hangs every
				// downstream operation. Deleted on any pass.
				m.logger.Info("removing orphaned ephemeral pane", "slug", p.Slug, "kind", p.EffectiveKind())
			}
		}
		r.Panes = kept
		return nil
	})
	if err != nil {
		return nil, err
	}

	// PassInitial recreates inline; PassPoll reaches the same step as its
	// follow-up after the registry has been persisted.
	if len(toRecreate) > 0 {
		updated = m.recreatePanes(updated, toRecreate)
	}

	m.reconcileWelcomePane(updated, liveByID)
	m.relayout(updated)
	return updated, nil
}

// queueRecreate marks a pane for recreation; reports false when it is
// already queued so one missing occurrence triggers at most one attempt.
func (m *Manager) queueRecreate(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recreateQueued[id] {
		return false
	}
	m.recreateQueued[id] = true
	return true
}

func (m *Manager) clearRecreateQueue(id string) {
	m.mu.Lock()
	delete(m.recreateQueued, id)
	m.mu.Unlock()
}

// recreatePanes spawns fresh physical panes for orphaned worktree panes,
// writes a restoration notice into each, and persists the new handles.
func (m *Manager) recreatePanes(reg *registry.Registry, panes []registry.LogicalPane) *registry.Registry {
	newHandles := make(map[string]string, len(panes))
	for _, p := range panes {
		if m.locks.IsLocked(p.ID) {
			continue
		}
		base := m.splitBase(reg)
		paneID, err := m.mux.SplitPane(base, p.WorktreePath, true)
		if err != nil {
			m.logger.Warn("pane recreation failed", "slug", p.Slug, "error", err)
			continue
		}
		if err := m.mux.SetPaneTitle(paneID, p.Slug); err != nil {
			m.logger.Warn("failed to title recreated pane", "slug", p.Slug, "error", err)
		}
		notice := fmt.Sprintf("echo 'gridmux restored pane %s: %s'", p.Slug, shellSafe(p.Prompt))
		if err := m.mux.SendKeys(paneID, notice); err != nil {
			m.logger.Debug("restoration notice failed", "slug", p.Slug, "error", err)
		}
		newHandles[p.ID] = paneID
	}
	if len(newHandles) == 0 {
		return reg
	}

	updated, err := m.store.Update(func(r *registry.Registry) error {
		for id, handle := range newHandles {
			if p := r.FindByID(id); p != nil {
				p.PaneID = handle
			}
		}
		return nil
	})
	if err != nil {
		m.logger.Error("failed to persist recreated handles", "error", err)
		return reg
	}
	for id := range newHandles {
		m.clearRecreateQueue(id)
	}
	return updated
}

// launchAgent sends the configured launch command for the agent into the
// pane, or a diagnostic when the designation has no command.
func (m *Manager) launchAgent(paneID, agent, prompt string) {
	cmd, ok := m.agents[agent]
	if !ok {
		diag := fmt.Sprintf("echo 'gridmux: no command configured for agent %s'", shellSafe(agent))
		if err := m.mux.SendKeys(paneID, diag); err != nil {
			m.logger.Warn("failed to write agent diagnostic", "pane", paneID, "error", err)
		}
		return
	}
	if prompt != "" {
		cmd = cmd + " " + quoteArg(prompt)
	}
	if err := m.mux.SendKeys(paneID, cmd); err != nil {
		m.logger.Warn("failed to launch agent", "agent", agent, "pane", paneID, "error", err)
	}
}

// splitBase picks the pane to split new panes from: the control pane when
// known, the last tracked pane otherwise.
func (m *Manager) splitBase(reg *registry.Registry) string {
	if reg.ControlPaneID != "" {
		return reg.ControlPaneID
	}
	for i := len(reg.Panes) - 1; i >= 0; i-- {
		if reg.Panes[i].PaneID != "" {
			return reg.Panes[i].PaneID
		}
	}
	return ""
}

// ensureControlPane verifies the recorded control handle still resolves;
// when stale, the narrowest pane at the left edge is adopted.
func (m *Manager) ensureControlPane(r *registry.Registry, live []tmux.PaneInfo) {
	if r.ControlPaneID != "" {
		for _, p := range live {
			if p.ID == r.ControlPaneID {
				return
			}
		}
	}
	var leftEdge []tmux.PaneInfo
	for _, p := range live {
		if p.X == 0 {
			leftEdge = append(leftEdge, p)
		}
	}
	if len(leftEdge) == 0 {
		return
	}
	sort.Slice(leftEdge, func(i, j int) bool { return leftEdge[i].Width < leftEdge[j].Width })
	if r.ControlPaneID != leftEdge[0].ID {
		m.logger.Info("adopted control pane", "pane", leftEdge[0].ID, "width", leftEdge[0].Width)
		r.ControlPaneID = leftEdge[0].ID
	}
}

// reconcileWelcomePane enforces the placeholder transitions: present while
// zero content panes exist, gone otherwise.
func (m *Manager) reconcileWelcomePane(reg *registry.Registry, liveByID map[string]tmux.PaneInfo) {
	welcomeAlive := false
	if reg.WelcomePaneID != "" {
		_, welcomeAlive = liveByID[reg.WelcomePaneID]
	}

	if len(reg.Panes) == 0 {
		if !welcomeAlive {
			m.ensureWelcomePane(reg)
			m.InvalidateLayout()
		}
		return
	}
	if reg.WelcomePaneID != "" {
		if welcomeAlive {
			if err := m.mux.KillPane(reg.WelcomePaneID); err != nil {
				m.logger.Debug("welcome pane already gone", "error", err)
			}
		}
		if _, err := m.store.Update(func(r *registry.Registry) error {
			r.WelcomePaneID = ""
			return nil
		}); err != nil {
			m.logger.Warn("failed to clear welcome pane handle", "error", err)
		}
		reg.WelcomePaneID = ""
		m.InvalidateLayout()
	}
}

// ensureWelcomePane spawns the placeholder pane and records its handle.
func (m *Manager) ensureWelcomePane(reg *registry.Registry) {
	base := reg.ControlPaneID
	paneID, err := m.mux.SplitPane(base, m.root, true)
	if err != nil {
		m.logger.Warn("failed to create welcome pane", "error", err)
		return
	}
	if err := m.mux.SetPaneTitle(paneID, WelcomeTitle); err != nil {
		m.logger.Debug("failed to title welcome pane", "error", err)
	}
	if _, err := m.store.Update(func(r *registry.Registry) error {
		r.WelcomePaneID = paneID
		return nil
	}); err != nil {
		m.logger.Warn("failed to record welcome pane", "error", err)
	}
	reg.WelcomePaneID = paneID
}

// relayout recomputes and applies geometry for the registry's current pane
// set. Failures are logged and swallowed; the previous geometry stays in
// place rather than being left half-applied.
func (m *Manager) relayout(reg *registry.Registry) {
	control := reg.ControlPaneID
	if control == "" {
		return
	}
	var content []string
	for _, p := range reg.Panes {
		if p.PaneID != "" {
			content = append(content, p.PaneID)
		}
	}
	if len(content) == 0 && reg.WelcomePaneID != "" {
		content = []string{reg.WelcomePaneID}
	}
	if len(content) == 0 {
		return
	}

	width, height, err := m.mux.WindowSize(m.target)
	if err != nil {
		m.logger.Warn("layout skipped, window size query failed", "error", err)
		return
	}
	if err := m.RecalculateAndApplyLayout(control, content, width, height); err != nil {
		m.logger.Warn("layout application failed", "error", err)
	}
}

// RecalculateAndApplyLayout computes grid geometry for the content panes
// and applies it atomically. Idempotent: an identical (width, height,
// paneCount) triple since the last successful application is a no-op,
// avoiding spacer churn on unrelated re-renders.
func (m *Manager) RecalculateAndApplyLayout(control string, content []string, width, height int) error {
	m.mu.Lock()
	cached := m.lastApplied
	m.mu.Unlock()
	if cached.valid && cached.width == width && cached.height == height && cached.paneCount == len(content) {
		return nil
	}
	if len(content) == 0 {
		return nil
	}

	live, err := m.mux.ListPanes(m.target)
	if err != nil {
		return fmt.Errorf("live pane query failed: %w", err)
	}
	// The spacer decision is recomputed every time, never cached; any
	// existing spacer dies first so a fresh one gets exact coordinates.
	m.destroySpacers(live)

	cfg := layout.Calculate(len(content), width, height, m.th)
	ids := content
	if cfg.NeedsSpacer {
		spacer, err := m.createSpacer(ids[len(ids)-1])
		if err != nil {
			m.logger.Warn("spacer creation failed, laying out without it", "error", err)
		} else {
			ids = append(append([]string{}, ids...), spacer)
		}
	}

	descriptor, err := layout.Descriptor(cfg, width, height, control, ids, m.th)
	if err != nil {
		return fmt.Errorf("descriptor synthesis failed: %w", err)
	}

	// Fixed order: sidebar width settles first, then the window, then the
	// layout string. Out of order, the multiplexer redistributes width
	// into the sidebar.
	if err := m.mux.ResizePane(control, m.th.SidebarWidth); err != nil {
		return fmt.Errorf("sidebar resize failed: %w", err)
	}
	if err := m.mux.ResizeWindow(m.target, width, height); err != nil {
		return fmt.Errorf("window resize failed: %w", err)
	}
	if err := m.mux.SelectLayout(m.target, descriptor); err != nil {
		return fmt.Errorf("layout apply failed: %w", err)
	}
	if err := m.mux.RefreshClient(); err != nil {
		m.logger.Debug("client refresh failed", "error", err)
	}

	m.mu.Lock()
	m.lastApplied = appliedLayout{width: width, height: height, paneCount: len(content), valid: true}
	m.mu.Unlock()
	return nil
}

// InvalidateLayout drops the no-op cache so the next application always
// runs, used on welcome-pane transitions.
func (m *Manager) InvalidateLayout() {
	m.mu.Lock()
	m.lastApplied = appliedLayout{}
	m.mu.Unlock()
}

// shellSafe strips quote characters so a notice can be embedded in a
// single-quoted echo.
func shellSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\'' || r == '\n' {
			return ' '
		}
		return r
	}, s)
}

// quoteArg single-quotes an argument for the shell.
func quoteArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
