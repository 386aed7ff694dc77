// Package platform enumerates monitors and candidate windows from the
// window system in the shape the occlusion engine consumes.
package platform

import "github.com/1broseidon/visiwatch/internal/occlusion"

// Backend abstracts window-system enumeration across platforms.
//
// Windows returns the visibility candidates front to back with ZOrder
// assigned accordingly. Filtering of untitled, auxiliary, hidden, owned
// and other-desktop windows happens here, not in the engine.
type Backend interface {
	Monitors() ([]occlusion.Monitor, error)
	Windows() ([]occlusion.Window, error)
}

// Static is a Backend serving fixed data, used for offline computation and
// tests.
type Static struct {
	MonitorList []occlusion.Monitor `json:"monitors"`
	WindowList  []occlusion.Window  `json:"windows"`
	Err         error               `json:"-"`
}

var _ Backend = (*Static)(nil)

func (s *Static) Monitors() ([]occlusion.Monitor, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]occlusion.Monitor(nil), s.MonitorList...), nil
}

func (s *Static) Windows() ([]occlusion.Window, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]occlusion.Window(nil), s.WindowList...), nil
}
