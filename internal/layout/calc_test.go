package layout

import "testing"

func TestCalculate_SinglePaneNarrowTerminal(t *testing.T) {
	cfg := Calculate(1, 120, 40, DefaultThresholds())

	if cfg.Columns != 1 || cfg.Rows != 1 {
		t.Fatalf("expected 1x1 grid, got %dx%d", cfg.Columns, cfg.Rows)
	}
	// 120 - 40 sidebar - 1 border = 79
	if cfg.PaneWidth != 79 {
		t.Fatalf("expected pane width 79, got %d", cfg.PaneWidth)
	}
	if cfg.NeedsSpacer {
		t.Fatalf("expected no spacer for a 79-wide pane")
	}
}

func TestCalculate_FivePanesExercisesFallback(t *testing.T) {
	cfg := Calculate(5, 200, 50, DefaultThresholds())

	// contentWidth=159: no column count clears both comfort minimums
	// (2 cols gives 16-tall rows, 3 cols gives 52-wide panes), so the
	// 0.8x-relaxed fallback picks the widest fitting column count.
	if cfg.Columns != 3 || cfg.Rows != 2 {
		t.Fatalf("expected 3x2 grid, got %dx%d", cfg.Columns, cfg.Rows)
	}
	if !cfg.NeedsSpacer {
		t.Fatalf("expected spacer: 5 panes do not tile a 3x2 grid")
	}
}

func TestCalculate_LonePaneSplitsRatherThanStretching(t *testing.T) {
	cfg := Calculate(1, 300, 50, DefaultThresholds())

	if !cfg.NeedsSpacer {
		t.Fatalf("expected spacer for a lone pane on a 300-wide terminal")
	}
	if cfg.Columns != 2 {
		t.Fatalf("expected 2 columns, got %d", cfg.Columns)
	}
	// (259 - 1 border) / 2
	if cfg.PaneWidth != 129 {
		t.Fatalf("expected pane width 129, got %d", cfg.PaneWidth)
	}
}

func TestCalculate_TiePrefersFewerColumns(t *testing.T) {
	th := Thresholds{MinPaneWidth: 10, MinPaneHeight: 5, MaxPaneWidth: 500, SidebarWidth: 40}
	// Generous space: several candidates score 1.0; the first (smallest
	// column count) must win.
	cfg := Calculate(4, 400, 100, th)
	if cfg.Columns != 1 {
		t.Fatalf("expected tie to keep 1 column, got %d", cfg.Columns)
	}
}

func TestCalculate_ZeroPanes(t *testing.T) {
	cfg := Calculate(0, 120, 40, DefaultThresholds())
	if cfg.Columns != 0 || cfg.Rows != 0 || cfg.NeedsSpacer {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestCalculate_AlwaysReturnsUsableWidth(t *testing.T) {
	th := DefaultThresholds()
	relaxed := int(fallbackWidthFactor * float64(th.MinPaneWidth))

	for count := 1; count <= 20; count++ {
		for width := 100; width <= 400; width += 20 {
			for height := 20; height <= 80; height += 10 {
				cfg := Calculate(count, width, height, th)
				if cfg.Columns < 1 || cfg.Rows < 1 {
					t.Fatalf("count=%d %dx%d: degenerate grid %+v", count, width, height, cfg)
				}
				if cfg.PaneWidth >= th.MinPaneWidth {
					continue
				}
				// Below the comfortable minimum is only legal via the
				// relaxed fallback or the final single-column resort.
				if cfg.PaneWidth < relaxed && cfg.Columns != 1 {
					t.Fatalf("count=%d %dx%d: width %d below fallback floor at %d columns",
						count, width, height, cfg.PaneWidth, cfg.Columns)
				}
				if cfg.PaneWidth <= 0 {
					t.Fatalf("count=%d %dx%d: non-positive pane width %d", count, width, height, cfg.PaneWidth)
				}
			}
		}
	}
}
