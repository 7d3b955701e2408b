package registry

import "time"

// PaneKind tags the variant of a tracked pane. The orphan policy and
// recreation logic switch exhaustively on it.
type PaneKind string

const (
	// KindWorktree panes are rooted in a version-control worktree and are
	// recreated when their physical pane disappears.
	KindWorktree PaneKind = "worktree"
	// KindShell panes are plain shells with no worktree. They are never
	// recreated; a stale handle would hang downstream operations.
	KindShell PaneKind = "shell"
	// KindConflict panes host a merge-conflict resolution session. They
	// behave like shell panes for orphan handling.
	KindConflict PaneKind = "conflict"
)

// LogicalPane is the orchestrator's unit of tracking.
type LogicalPane struct {
	ID           string   `json:"id"`             // stable, assigned at creation, never reused
	Slug         string   `json:"slug"`           // unique; doubles as pane title and branch name
	Prompt       string   `json:"prompt"`         // original task description
	PaneID       string   `json:"paneId"`         // physical handle; not stable across restarts
	Kind         PaneKind `json:"kind"`
	WorktreePath string   `json:"worktreePath,omitempty"`
	Agent        string   `json:"agent,omitempty"`
	Autopilot    bool     `json:"autopilot,omitempty"`
	TestStatus   string   `json:"testStatus,omitempty"`
	DevStatus    string   `json:"devStatus,omitempty"`
}

// Registry is the persisted document.
type Registry struct {
	ProjectName   string            `json:"projectName"`
	ProjectRoot   string            `json:"projectRoot"`
	Panes         []LogicalPane     `json:"panes"`
	Settings      map[string]string `json:"settings,omitempty"`
	ControlPaneID string            `json:"controlPaneId,omitempty"`
	WelcomePaneID string            `json:"welcomePaneId,omitempty"`
	LastUpdated   time.Time         `json:"lastUpdated"`
}

// FindBySlug returns the pane with the given slug, or nil.
func (r *Registry) FindBySlug(slug string) *LogicalPane {
	for i := range r.Panes {
		if r.Panes[i].Slug == slug {
			return &r.Panes[i]
		}
	}
	return nil
}

// FindByID returns the pane with the given logical id, or nil.
func (r *Registry) FindByID(id string) *LogicalPane {
	for i := range r.Panes {
		if r.Panes[i].ID == id {
			return &r.Panes[i]
		}
	}
	return nil
}

// RemoveByID drops the pane with the given logical id. Reports whether a
// pane was removed.
func (r *Registry) RemoveByID(id string) bool {
	for i := range r.Panes {
		if r.Panes[i].ID == id {
			r.Panes = append(r.Panes[:i], r.Panes[i+1:]...)
			return true
		}
	}
	return false
}

// EffectiveKind normalizes panes persisted before the kind tag existed:
// a worktree path implies a worktree pane, everything else is a shell.
func (p *LogicalPane) EffectiveKind() PaneKind {
	if p.Kind != "" {
		return p.Kind
	}
	if p.WorktreePath != "" {
		return KindWorktree
	}
	return KindShell
}
