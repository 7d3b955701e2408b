package panes

import (
	"fmt"

	"github.com/gridmux/gridmux/internal/tmux"
)

// SpacerTitle is the reserved title marking the synthetic filler pane.
const SpacerTitle = "gridmux-spacer"

// WelcomeTitle is the reserved title of the placeholder pane shown while no
// content panes exist.
const WelcomeTitle = "gridmux-welcome"

// destroySpacers kills every pane carrying the reserved spacer title. Run
// before every layout application: spacers are never resized in place, so
// a surviving one would carry stale absolute coordinates into the next
// descriptor.
func (m *Manager) destroySpacers(live []tmux.PaneInfo) {
	for _, p := range live {
		if p.Title != SpacerTitle {
			continue
		}
		if err := m.mux.KillPane(p.ID); err != nil {
			// Presumed already gone.
			m.logger.Debug("spacer kill failed", "pane", p.ID, "error", err)
		}
	}
}

// createSpacer splits a fresh filler pane from the last content pane so it
// receives correctly computed coordinates, and orders it last by creation.
func (m *Manager) createSpacer(lastContent string) (string, error) {
	id, err := m.mux.SplitPane(lastContent, "", true)
	if err != nil {
		return "", fmt.Errorf("failed to create spacer pane: %w", err)
	}
	if err := m.mux.SetPaneTitle(id, SpacerTitle); err != nil {
		return "", fmt.Errorf("failed to title spacer pane: %w", err)
	}
	return id, nil
}
