package activitylog

import (
	"github.com/1broseidon/visiwatch/internal/geom"
	"github.com/1broseidon/visiwatch/internal/occlusion"
)

// Transition is one change between two consecutive snapshots.
type Transition struct {
	Action Action
	Window occlusion.Visibility
}

// Diff lists the transitions from prev to next. Windows are matched by
// handle; a window seen for the first time counts as shown when visible
// and is otherwise not reported. A nil prev is an empty snapshot.
func Diff(prev, next *occlusion.Snapshot) []Transition {
	before := make(map[uint64]occlusion.Visibility)
	if prev != nil {
		for _, w := range prev.Windows {
			before[w.Handle] = w
		}
	}

	var out []Transition
	seen := make(map[uint64]bool)
	if next != nil {
		for _, w := range next.Windows {
			seen[w.Handle] = true
			old, existed := before[w.Handle]
			switch {
			case w.Visible && (!existed || !old.Visible):
				out = append(out, Transition{Action: ActionShown, Window: w})
			case !w.Visible && existed && old.Visible:
				out = append(out, Transition{Action: ActionHidden, Window: w})
			case w.Visible && !geom.Equal(w.Region, old.Region):
				out = append(out, Transition{Action: ActionResized, Window: w})
			}
		}
	}
	if prev != nil {
		for _, w := range prev.Windows {
			if !seen[w.Handle] && w.Visible {
				out = append(out, Transition{Action: ActionGone, Window: w})
			}
		}
	}
	return out
}

// Record writes the transitions from prev to next.
func (l *Logger) Record(prev, next *occlusion.Snapshot) {
	if !l.Enabled() || next == nil {
		return
	}
	if prev == nil || len(prev.Monitors) != len(next.Monitors) {
		l.Log(ActionMonitors, map[string]any{"count": len(next.Monitors)})
	}
	for _, t := range Diff(prev, next) {
		details := map[string]any{
			"window": t.Window.Handle,
			"app":    t.Window.App,
			"title":  t.Window.Title,
		}
		if t.Window.Visible {
			details["region"] = t.Window.Region.String()
		}
		l.Log(t.Action, details)
	}
}
