// Package occlusion computes which windows are visible to the user after
// clipping to monitor work areas and subtracting every window stacked in
// front of them. It is pure: every call works from its arguments alone.
package occlusion

import (
	"fmt"
	"sort"

	"github.com/1broseidon/visiwatch/internal/geom"
)

// ClipToMonitors returns the bounding union of rect intersected with each
// monitor's work area. The result is empty when rect lies outside every
// work area.
func ClipToMonitors(rect geom.Rect, monitors []Monitor) geom.Rect {
	var clipped geom.Rect
	for _, m := range monitors {
		clipped = geom.UnionBounds(clipped, geom.Intersect(rect, m.WorkArea))
	}
	return clipped
}

// ComputeVisibility annotates every window with its visibility. The result
// has one entry per input window, in input order.
func ComputeVisibility(windows []Window, monitors []Monitor) ([]Visibility, error) {
	return sweep(windows, monitors)
}

// ComputeVisibleOnly returns only the windows that are at least partly
// visible, in input order.
func ComputeVisibleOnly(windows []Window, monitors []Monitor) ([]Visibility, error) {
	all, err := sweep(windows, monitors)
	if err != nil {
		return nil, err
	}
	return visibleOf(all), nil
}

// visibleOf builds a new slice holding the visible entries in order.
func visibleOf(all []Visibility) []Visibility {
	visible := make([]Visibility, 0, len(all))
	for _, v := range all {
		if v.Visible {
			visible = append(visible, v)
		}
	}
	return visible
}

func validate(windows []Window) error {
	for i, w := range windows {
		if w.ZOrder < 0 {
			return fmt.Errorf("%w: window %d (handle %d) has negative z_order %d", ErrInvalidInput, i, w.Handle, w.ZOrder)
		}
	}
	return nil
}

// sweep walks the windows front to back. Each window's residual is what
// the accumulated region leaves of its clipped rectangle; the window then
// contributes its whole clipped rectangle to the region, not just the
// residual.
func sweep(windows []Window, monitors []Monitor) ([]Visibility, error) {
	if err := validate(windows); err != nil {
		return nil, err
	}

	out := make([]Visibility, len(windows))
	clipped := make([]geom.Rect, len(windows))
	order := make([]int, 0, len(windows))

	for i, w := range windows {
		out[i] = Visibility{Window: w}
		clipped[i] = ClipToMonitors(w.Rect, monitors)
		if clipped[i].Empty() {
			continue
		}
		order = append(order, i)
	}

	sort.SliceStable(order, func(a, b int) bool {
		return windows[order[a]].ZOrder < windows[order[b]].ZOrder
	})

	covered := NewRegionSet()
	for _, i := range order {
		pieces := covered.Remaining(clipped[i])
		residual := geom.Bounds(pieces)
		if residual.Empty() {
			continue
		}
		out[i].Visible = true
		out[i].Region = residual
		out[i].Fragments = pieces
		covered.Merge(clipped[i])
	}

	return out, nil
}
