package overlay

import (
	"fmt"

	"github.com/1broseidon/visiwatch/internal/geom"
	"github.com/1broseidon/visiwatch/internal/occlusion"
)

// Border thickness in pixels
const BorderThickness = 3

const (
	labelPaddingX  = 6
	labelPaddingY  = 4
	labelLineH     = 16
	labelCharWidth = 7
	labelMaxChars  = 60
)

// Border colors, cycled per window.
var palette = []uint32{
	0x3498db, // blue
	0x27ae60, // green
	0xe67e22, // orange
	0x9b59b6, // purple
	0xe74c3c, // red
	0x1abc9c, // teal
}

const (
	colorLabelText = 0xf5f7fa
	colorLabelBg   = 0x1f2933
)

// Item is one visible region to outline.
type Item struct {
	Region geom.Rect
	Label  string
	Color  uint32
}

// Items builds one item per visible window of snap, numbered in snapshot
// order.
func Items(snap *occlusion.Snapshot) []Item {
	visible := snap.Visible()
	items := make([]Item, 0, len(visible))
	for i, w := range visible {
		label := fmt.Sprintf("%d %s: %s", i+1, w.App, w.Title)
		if len(label) > labelMaxChars {
			label = label[:labelMaxChars-3] + "..."
		}
		items = append(items, Item{
			Region: w.Region,
			Label:  label,
			Color:  palette[i%len(palette)],
		})
	}
	return items
}

// borderBars splits the outline of r into top, bottom, left and right
// bars of the given thickness. Left and right sit between the other two.
func borderBars(r geom.Rect, t int) [4]geom.Rect {
	x, y, w, h := r.XYWH()
	return [4]geom.Rect{
		geom.FromXYWH(x, y, w, t),
		geom.FromXYWH(x, y+h-t, w, t),
		geom.FromXYWH(x, y+t, t, h-2*t),
		geom.FromXYWH(x+w-t, y+t, t, h-2*t),
	}
}

func labelSize(text string) (width, height int) {
	return len(text)*labelCharWidth + 2*labelPaddingX, labelLineH + 2*labelPaddingY
}

// placeLabel puts a label of the given size inside the top-left corner of
// region, shrinking it to fit. ok is false when the region is too small
// to hold any label.
func placeLabel(region geom.Rect, width, height int) (geom.Rect, bool) {
	inner := geom.Rect{
		Left:   region.Left + BorderThickness,
		Top:    region.Top + BorderThickness,
		Right:  region.Right - BorderThickness,
		Bottom: region.Bottom - BorderThickness,
	}
	if inner.Width() < 2*labelPaddingX+labelCharWidth || inner.Height() < height {
		return geom.Rect{}, false
	}
	width = min(width, inner.Width())
	return geom.FromXYWH(inner.Left, inner.Top, width, height), true
}
