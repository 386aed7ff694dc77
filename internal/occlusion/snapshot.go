package occlusion

import "time"

// Snapshot is the visibility of every candidate window at one instant.
// Windows keep the enumeration order of the sample.
type Snapshot struct {
	Taken    time.Time    `json:"taken"`
	Monitors []Monitor    `json:"monitors"`
	Windows  []Visibility `json:"windows"`
}

// NewSnapshot runs the occlusion sweep and wraps the result.
func NewSnapshot(taken time.Time, windows []Window, monitors []Monitor) (*Snapshot, error) {
	vis, err := ComputeVisibility(windows, monitors)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Taken:    taken,
		Monitors: monitors,
		Windows:  vis,
	}, nil
}

// Visible returns the visible windows in snapshot order.
func (s *Snapshot) Visible() []Visibility {
	if s == nil {
		return nil
	}
	return visibleOf(s.Windows)
}

// VisibleCount returns the number of visible windows.
func (s *Snapshot) VisibleCount() int {
	if s == nil {
		return 0
	}
	return len(visibleOf(s.Windows))
}

// Find returns the entry for the given window handle.
func (s *Snapshot) Find(handle uint64) (Visibility, bool) {
	if s == nil {
		return Visibility{}, false
	}
	for _, w := range s.Windows {
		if w.Handle == handle {
			return w, true
		}
	}
	return Visibility{}, false
}
