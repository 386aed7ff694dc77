// Package geom implements the integer rectangle algebra used by the
// occlusion engine. Rectangles are half-open: Right and Bottom are not part
// of the covered area.
package geom

import "fmt"

// Rect is an axis-aligned rectangle in screen coordinates.
// A rectangle with Left >= Right or Top >= Bottom covers no area.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// FromXYWH builds a Rect from an origin and a size.
func FromXYWH(x, y, width, height int) Rect {
	return Rect{Left: x, Top: y, Right: x + width, Bottom: y + height}
}

// XYWH returns the origin and size of r.
func (r Rect) XYWH() (x, y, width, height int) {
	return r.Left, r.Top, r.Width(), r.Height()
}

// Empty reports whether r covers no area.
func (r Rect) Empty() bool {
	return r.Left >= r.Right || r.Top >= r.Bottom
}

// Width returns the horizontal extent, or 0 for an empty rectangle.
func (r Rect) Width() int {
	if r.Empty() {
		return 0
	}
	return r.Right - r.Left
}

// Height returns the vertical extent, or 0 for an empty rectangle.
func (r Rect) Height() int {
	if r.Empty() {
		return 0
	}
	return r.Bottom - r.Top
}

// Area returns the number of pixels covered by r.
func (r Rect) Area() int {
	return r.Width() * r.Height()
}

// Canon maps every empty rectangle to the zero Rect.
func (r Rect) Canon() Rect {
	if r.Empty() {
		return Rect{}
	}
	return r
}

func (r Rect) String() string {
	if r.Empty() {
		return "(empty)"
	}
	return fmt.Sprintf("(%d,%d,%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// Equal reports whether a and b cover the same area. All empty rectangles
// are equal to each other regardless of their coordinates.
func Equal(a, b Rect) bool {
	return a.Canon() == b.Canon()
}

// Intersect returns the overlap of a and b, or the zero Rect when they do
// not overlap.
func Intersect(a, b Rect) Rect {
	r := Rect{
		Left:   max(a.Left, b.Left),
		Top:    max(a.Top, b.Top),
		Right:  min(a.Right, b.Right),
		Bottom: min(a.Bottom, b.Bottom),
	}
	return r.Canon()
}

// Overlaps reports whether a and b share any area.
func Overlaps(a, b Rect) bool {
	return !Intersect(a, b).Empty()
}

// UnionBounds returns the bounding box of a and b. This is not a set union:
// the result may cover area belonging to neither input. An empty operand
// contributes nothing.
func UnionBounds(a, b Rect) Rect {
	if a.Empty() {
		return b.Canon()
	}
	if b.Empty() {
		return a
	}
	return Rect{
		Left:   min(a.Left, b.Left),
		Top:    min(a.Top, b.Top),
		Right:  max(a.Right, b.Right),
		Bottom: max(a.Bottom, b.Bottom),
	}
}

// Contains reports whether b lies entirely within a on all four edges.
func Contains(a, b Rect) bool {
	return a.Left <= b.Left && a.Top <= b.Top &&
		a.Right >= b.Right && a.Bottom >= b.Bottom
}

// Bounds returns the bounding box of all non-empty rectangles in rs.
func Bounds(rs []Rect) Rect {
	var out Rect
	for _, r := range rs {
		out = UnionBounds(out, r)
	}
	return out
}

// Subtract returns a∖b as at most four disjoint rectangles: full-width
// bands above and below b, then the left and right slivers beside it.
func Subtract(a, b Rect) []Rect {
	if a.Empty() {
		return nil
	}
	cut := Intersect(a, b)
	if cut.Empty() {
		return []Rect{a}
	}

	out := make([]Rect, 0, 4)
	if cut.Top > a.Top {
		out = append(out, Rect{Left: a.Left, Top: a.Top, Right: a.Right, Bottom: cut.Top})
	}
	if cut.Bottom < a.Bottom {
		out = append(out, Rect{Left: a.Left, Top: cut.Bottom, Right: a.Right, Bottom: a.Bottom})
	}
	if cut.Left > a.Left {
		out = append(out, Rect{Left: a.Left, Top: cut.Top, Right: cut.Left, Bottom: cut.Bottom})
	}
	if cut.Right < a.Right {
		out = append(out, Rect{Left: cut.Right, Top: cut.Top, Right: a.Right, Bottom: cut.Bottom})
	}
	return out
}
