package layout

// Thresholds carries the comfort limits used to pick a grid.
type Thresholds struct {
	MinPaneWidth  int // narrowest acceptable content pane
	MinPaneHeight int // shortest acceptable content pane
	MaxPaneWidth  int // widest comfortable content pane
	SidebarWidth  int // fixed width of the control pane
}

// DefaultThresholds returns the limits used when the config does not
// override them.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPaneWidth:  60,
		MinPaneHeight: 20,
		MaxPaneWidth:  120,
		SidebarWidth:  40,
	}
}

// Config describes a computed pane grid. Derived data only, never persisted.
type Config struct {
	Columns     int
	Rows        int
	PaneWidth   int
	PaneHeight  int
	WindowWidth int
	NeedsSpacer bool
}

// fallbackWidthFactor relaxes MinPaneWidth when no candidate clears the
// comfortable minimums.
const fallbackWidthFactor = 0.8

// Calculate picks the grid for paneCount content panes inside a window of
// the given dimensions. Pure and deterministic.
//
// Candidate column counts 1..paneCount are scored; candidates whose pane
// width or height falls below the minimums are rejected. Ties keep the
// smaller column count. If nothing clears the minimums, the widest column
// count whose pane width still reaches 80% of MinPaneWidth wins, so a
// result always exists for paneCount >= 1.
func Calculate(paneCount, width, height int, th Thresholds) Config {
	if paneCount <= 0 {
		return Config{WindowWidth: width}
	}

	contentWidth := width - th.SidebarWidth - 1 // 1 col border after the sidebar
	contentHeight := height

	best := Config{}
	bestScore := -1.0
	for cols := 1; cols <= paneCount; cols++ {
		rows := (paneCount + cols - 1) / cols
		paneWidth := (contentWidth - (cols - 1)) / cols
		paneHeight := (contentHeight - (rows - 1)) / rows

		if paneWidth < th.MinPaneWidth || paneHeight < th.MinPaneHeight {
			continue
		}

		widthScore := 1.0
		if paneWidth > th.MaxPaneWidth {
			widthScore = 0.5
		}
		heightScore := 1.0
		if float64(paneHeight) < 1.5*float64(th.MinPaneHeight) {
			heightScore = 0.7
		}

		if score := widthScore * heightScore; score > bestScore {
			bestScore = score
			best = Config{
				Columns:     cols,
				Rows:        rows,
				PaneWidth:   paneWidth,
				PaneHeight:  paneHeight,
				WindowWidth: width,
			}
		}
	}

	if bestScore < 0 {
		best = fallback(paneCount, contentWidth, contentHeight, width, th)
	}

	// A lone pane never stretches past the comfortable maximum; it shares
	// its row with a spacer instead.
	if paneCount == 1 && best.PaneWidth > th.MaxPaneWidth {
		best.Columns = 2
		best.PaneWidth = (contentWidth - 1) / 2
		best.NeedsSpacer = true
		return best
	}

	best.NeedsSpacer = best.Columns*best.Rows > paneCount
	return best
}

// fallback scans column counts descending from paneCount and keeps the first
// whose pane width reaches fallbackWidthFactor of the minimum. When even a
// single column cannot, one column is used regardless.
func fallback(paneCount, contentWidth, contentHeight, windowWidth int, th Thresholds) Config {
	relaxed := fallbackWidthFactor * float64(th.MinPaneWidth)
	for cols := paneCount; cols >= 1; cols-- {
		paneWidth := (contentWidth - (cols - 1)) / cols
		if float64(paneWidth) < relaxed {
			continue
		}
		rows := (paneCount + cols - 1) / cols
		return Config{
			Columns:     cols,
			Rows:        rows,
			PaneWidth:   paneWidth,
			PaneHeight:  (contentHeight - (rows - 1)) / rows,
			WindowWidth: windowWidth,
		}
	}
	return Config{
		Columns:     1,
		Rows:        paneCount,
		PaneWidth:   contentWidth,
		PaneHeight:  (contentHeight - (paneCount - 1)) / paneCount,
		WindowWidth: windowWidth,
	}
}
