package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/visiwatch/internal/geom"
	"github.com/1broseidon/visiwatch/internal/occlusion"
)

type boxRunes struct {
	h, v, tl, tr, bl, br rune
}

var (
	monitorRunes = boxRunes{'═', '║', '╔', '╗', '╚', '╝'}
	windowRunes  = boxRunes{'─', '│', '┌', '┐', '└', '┘'}
)

// canvas maps desktop coordinates onto a grid of runes.
type canvas struct {
	cells         [][]rune
	width, height int
	desktop       geom.Rect
}

func newCanvas(width, height int, desktop geom.Rect) *canvas {
	cells := make([][]rune, height)
	for i := range cells {
		cells[i] = []rune(strings.Repeat(" ", width))
	}
	return &canvas{cells: cells, width: width, height: height, desktop: desktop}
}

func (c *canvas) project(r geom.Rect) (x1, y1, x2, y2 int) {
	dw, dh := c.desktop.Width(), c.desktop.Height()
	x1 = (r.Left - c.desktop.Left) * (c.width - 1) / dw
	x2 = (r.Right - c.desktop.Left) * (c.width - 1) / dw
	y1 = (r.Top - c.desktop.Top) * (c.height - 1) / dh
	y2 = (r.Bottom - c.desktop.Top) * (c.height - 1) / dh
	return clamp(x1, 0, c.width-1), clamp(y1, 0, c.height-1), clamp(x2, 0, c.width-1), clamp(y2, 0, c.height-1)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// drawBox draws r with the given border. When fill is set the interior is
// cleared first so boxes drawn later hide what is underneath.
func (c *canvas) drawBox(r geom.Rect, b boxRunes, label string, fill bool) {
	x1, y1, x2, y2 := c.project(r)
	if x2 <= x1 || y2 <= y1 {
		if label != "" {
			c.cells[y1][x1] = []rune(label)[0]
		}
		return
	}

	if fill {
		for y := y1 + 1; y < y2; y++ {
			for x := x1 + 1; x < x2; x++ {
				c.cells[y][x] = ' '
			}
		}
	}
	for x := x1; x <= x2; x++ {
		c.cells[y1][x] = b.h
		c.cells[y2][x] = b.h
	}
	for y := y1; y <= y2; y++ {
		c.cells[y][x1] = b.v
		c.cells[y][x2] = b.v
	}
	c.cells[y1][x1] = b.tl
	c.cells[y1][x2] = b.tr
	c.cells[y2][x1] = b.bl
	c.cells[y2][x2] = b.br

	centerY := (y1 + y2) / 2
	centerX := (x1 + x2) / 2
	if label != "" && centerY > y1 && centerY < y2 {
		startX := centerX - len(label)/2
		for i, r := range label {
			if startX+i > x1 && startX+i < x2 {
				c.cells[centerY][startX+i] = r
			}
		}
	}
}

func (c *canvas) lines() []string {
	out := make([]string, c.height)
	for i, row := range c.cells {
		out[i] = string(row)
	}
	return out
}

// desktopBounds is the bounding box of all monitors, or of all windows
// when no monitor is known.
func desktopBounds(snap *occlusion.Snapshot) geom.Rect {
	var r geom.Rect
	for _, m := range snap.Monitors {
		r = geom.UnionBounds(r, m.Bounds)
	}
	if r.Empty() {
		for _, w := range snap.Windows {
			r = geom.UnionBounds(r, w.Rect)
		}
	}
	return r
}

// RenderMap draws monitors with double borders and the visible region of
// every visible window with single borders, labelled with its position in
// Legend. Windows further back are drawn first.
func RenderMap(snap *occlusion.Snapshot, width, height int) []string {
	if snap == nil || width < 5 || height < 3 {
		return emptyCanvas(width, height)
	}
	desktop := desktopBounds(snap)
	if desktop.Empty() {
		return emptyCanvas(width, height)
	}

	c := newCanvas(width, height, desktop)
	for _, m := range snap.Monitors {
		c.drawBox(m.Bounds, monitorRunes, "", false)
	}

	visible := snap.Visible()
	order := make([]int, len(visible))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return visible[order[a]].ZOrder > visible[order[b]].ZOrder
	})
	for _, i := range order {
		c.drawBox(visible[i].Region, windowRunes, fmt.Sprintf("%d", i+1), true)
	}
	return c.lines()
}

// Legend lists the visible windows numbered as in RenderMap.
func Legend(snap *occlusion.Snapshot, width int) []string {
	visible := snap.Visible()
	if len(visible) == 0 {
		return []string{"no visible windows"}
	}
	lines := make([]string, 0, len(visible))
	for i, w := range visible {
		line := fmt.Sprintf("%2d  %-16s %-22s %s", i+1, truncate(w.App, 16), w.Region, w.Title)
		lines = append(lines, truncate(line, width))
	}
	return lines
}

// RenderStatic renders the map above its legend for one-shot output.
func RenderStatic(snap *occlusion.Snapshot, width, height int) string {
	legend := Legend(snap, width)
	mapHeight := height - len(legend) - 1
	if mapHeight < 3 {
		mapHeight = 3
	}
	lines := RenderMap(snap, width, mapHeight)
	lines = append(lines, "")
	lines = append(lines, legend...)
	return strings.Join(lines, "\n") + "\n"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

func emptyCanvas(width, height int) []string {
	if height < 0 {
		height = 0
	}
	lines := make([]string, height)
	empty := strings.Repeat(" ", max(width, 0))
	for i := range lines {
		lines[i] = empty
	}
	return lines
}
