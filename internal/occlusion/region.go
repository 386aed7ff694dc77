package occlusion

import "github.com/1broseidon/visiwatch/internal/geom"

// RegionSet accumulates the screen area already painted by windows closer
// to the front. It is stored as a list of pairwise disjoint rectangles.
type RegionSet struct {
	rects []geom.Rect
}

// NewRegionSet returns a RegionSet that covers nothing.
func NewRegionSet() *RegionSet {
	return &RegionSet{}
}

// Remaining returns the parts of candidate not yet covered, as disjoint
// rectangles. The result is nil when candidate is fully covered.
func (s *RegionSet) Remaining(candidate geom.Rect) []geom.Rect {
	if candidate.Empty() {
		return nil
	}
	pieces := []geom.Rect{candidate}
	for _, covered := range s.rects {
		if len(pieces) == 0 {
			break
		}
		next := make([]geom.Rect, 0, len(pieces))
		for _, p := range pieces {
			next = append(next, geom.Subtract(p, covered)...)
		}
		pieces = next
	}
	if len(pieces) == 0 {
		return nil
	}
	return pieces
}

// Subtract returns the bounding rectangle of the part of candidate that is
// not covered. A multi-part remainder collapses into one rectangle, which
// may re-include covered area.
func (s *RegionSet) Subtract(candidate geom.Rect) geom.Rect {
	return geom.Bounds(s.Remaining(candidate))
}

// IsFullyCovered reports whether nothing of candidate remains uncovered.
func (s *RegionSet) IsFullyCovered(candidate geom.Rect) bool {
	return s.Subtract(candidate).Empty()
}

// Merge adds r to the covered area. Merging an already covered area is a
// no-op.
func (s *RegionSet) Merge(r geom.Rect) {
	s.rects = append(s.rects, s.Remaining(r)...)
}

// Area returns the number of covered pixels.
func (s *RegionSet) Area() int {
	total := 0
	for _, r := range s.rects {
		total += r.Area()
	}
	return total
}

// Rects returns a copy of the disjoint rectangles making up the set.
func (s *RegionSet) Rects() []geom.Rect {
	out := make([]geom.Rect, len(s.rects))
	copy(out, s.rects)
	return out
}
