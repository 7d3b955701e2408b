package layout

import (
	"fmt"
	"strings"
)

// Descriptor builds the multiplexer's native layout string for a sidebar
// pane plus a content grid, checksum prefix included.
//
// The format is `csum,WxH,X,Y` per node: a leaf appends `,<pane-index>`, a
// horizontal container wraps its children in `{...}`, a vertical container
// in `[...]`. Every node carries absolute coordinates from the window
// origin, containers included; the multiplexer rejects relative ones.
//
// contentIDs are pane handles ("%3") in grid order, row-major. When the
// grid needs a spacer its handle must already be last: geometry is painted
// by pane index order, so a misordered spacer swaps panes on screen.
func Descriptor(cfg Config, windowWidth, windowHeight int, sidebarID string, contentIDs []string, th Thresholds) (string, error) {
	if sidebarID == "" {
		return "", fmt.Errorf("sidebar pane handle is required")
	}
	if len(contentIDs) == 0 {
		return "", fmt.Errorf("no content panes to lay out")
	}
	if cfg.Columns < 1 || cfg.Rows < 1 {
		return "", fmt.Errorf("invalid grid: %dx%d", cfg.Columns, cfg.Rows)
	}

	contentX := th.SidebarWidth + 1
	contentWidth := windowWidth - contentX
	if contentWidth < cfg.Columns {
		return "", fmt.Errorf("window too narrow for %d columns: content width %d", cfg.Columns, contentWidth)
	}

	rows := splitRows(contentIDs, cfg.Columns)
	// Each row needs at least one cell plus the border separating it from
	// the next; anything less makes divideSpan hand out zero-height rows
	// and the multiplexer rejects the result.
	if windowHeight < 2*len(rows)-1 {
		return "", fmt.Errorf("window too short for %d rows: height %d", len(rows), windowHeight)
	}
	rowHeights := divideSpan(windowHeight, len(rows))

	var rowNodes []string
	y := 0
	for i, row := range rows {
		h := rowHeights[i]
		rowNodes = append(rowNodes, rowNode(row, contentX, y, contentWidth, h))
		y += h + 1 // 1-cell border between rows
	}

	var content string
	if len(rowNodes) == 1 {
		content = rowNodes[0]
	} else {
		content = fmt.Sprintf("%dx%d,%d,0[%s]", contentWidth, windowHeight, contentX, strings.Join(rowNodes, ","))
	}

	sidebar := fmt.Sprintf("%dx%d,0,0,%s", th.SidebarWidth, windowHeight, paneIndex(sidebarID))
	body := fmt.Sprintf("%dx%d,0,0{%s,%s}", windowWidth, windowHeight, sidebar, content)
	return fmt.Sprintf("%04x,%s", Checksum(body), body), nil
}

// rowNode emits one grid row: a bare leaf when the row holds a single pane,
// a horizontal container otherwise.
func rowNode(ids []string, x, y, width, height int) string {
	if len(ids) == 1 {
		return fmt.Sprintf("%dx%d,%d,%d,%s", width, height, x, y, paneIndex(ids[0]))
	}

	widths := divideSpan(width, len(ids))
	var leaves []string
	px := x
	for i, id := range ids {
		w := widths[i]
		leaves = append(leaves, fmt.Sprintf("%dx%d,%d,%d,%s", w, height, px, y, paneIndex(id)))
		px += w + 1
	}
	return fmt.Sprintf("%dx%d,%d,%d{%s}", width, height, x, y, strings.Join(leaves, ","))
}

// splitRows chunks handles row-major at the chosen column count.
func splitRows(ids []string, cols int) [][]string {
	var rows [][]string
	for len(ids) > 0 {
		n := cols
		if n > len(ids) {
			n = len(ids)
		}
		rows = append(rows, ids[:n])
		ids = ids[n:]
	}
	return rows
}

// divideSpan splits span cells among n siblings with a 1-cell border
// between each. The integer-division remainder goes to the first sibling,
// matching the multiplexer's own redistribution convention.
func divideSpan(span, n int) []int {
	avail := span - (n - 1)
	base := avail / n
	rem := avail % n
	out := make([]int, n)
	for i := range out {
		out[i] = base
	}
	out[0] += rem
	return out
}

// paneIndex strips the handle prefix: descriptor leaves carry the numeric
// pane index, not the "%"-prefixed handle.
func paneIndex(id string) string {
	return strings.TrimPrefix(id, "%")
}

// Checksum reproduces the multiplexer's 16-bit rolling layout checksum:
// rotate right one bit, add the byte, per character of the descriptor body.
// The multiplexer rejects any layout whose prefix does not match exactly.
func Checksum(body string) uint16 {
	var csum uint16
	for i := 0; i < len(body); i++ {
		csum = (csum >> 1) | ((csum & 1) << 15)
		csum += uint16(body[i])
	}
	return csum
}
