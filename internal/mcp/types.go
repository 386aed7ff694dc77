package mcp

import (
	"github.com/1broseidon/visiwatch/internal/geom"
	"github.com/1broseidon/visiwatch/internal/occlusion"
)

// GetVisibleWindowsInput is the input for the get_visible_windows tool.
type GetVisibleWindowsInput struct {
	IncludeHidden bool `json:"include_hidden,omitempty" jsonschema:"When true, also list candidate windows that are fully covered or off-screen (default: false)"`
}

// GetVisibleWindowsOutput is the output for the get_visible_windows tool.
type GetVisibleWindowsOutput struct {
	Taken        string       `json:"taken"`
	VisibleCount int          `json:"visible_count"`
	Windows      []WindowInfo `json:"windows"`
}

// WindowInfo describes one window of a snapshot. VisibleRegion is the
// bounding rectangle of the uncovered part and is omitted for hidden
// windows.
type WindowInfo struct {
	Handle        uint64      `json:"handle"`
	App           string      `json:"app"`
	Title         string      `json:"title"`
	ZOrder        int         `json:"z_order"`
	Rect          geom.Rect   `json:"rect"`
	Visible       bool        `json:"visible"`
	VisibleRegion *geom.Rect  `json:"visible_region,omitempty"`
	VisibleArea   int         `json:"visible_area"`
	Fragments     []geom.Rect `json:"fragments"`
}

// GetMonitorsInput is the input for the get_monitors tool.
type GetMonitorsInput struct{}

// GetMonitorsOutput is the output for the get_monitors tool.
type GetMonitorsOutput struct {
	Monitors []MonitorInfo `json:"monitors"`
}

// MonitorInfo describes one monitor of a snapshot.
type MonitorInfo struct {
	Name     string    `json:"name"`
	Bounds   geom.Rect `json:"bounds"`
	WorkArea geom.Rect `json:"work_area"`
}

// GetWindowVisibilityInput is the input for the get_window_visibility tool.
// At least one filter must be set; all set filters must match.
type GetWindowVisibilityInput struct {
	Handle uint64 `json:"handle,omitempty" jsonschema:"Window handle as reported by get_visible_windows"`
	App    string `json:"app,omitempty" jsonschema:"Owning application name (exact match, case-insensitive)"`
	Title  string `json:"title,omitempty" jsonschema:"Case-insensitive substring of the window title"`
}

// GetWindowVisibilityOutput is the output for the get_window_visibility tool.
type GetWindowVisibilityOutput struct {
	Taken   string       `json:"taken"`
	Windows []WindowInfo `json:"windows"`
}

func windowInfo(v occlusion.Visibility) WindowInfo {
	info := WindowInfo{
		Handle:    v.Handle,
		App:       v.App,
		Title:     v.Title,
		ZOrder:    v.ZOrder,
		Rect:      v.Rect,
		Visible:   v.Visible,
		Fragments: []geom.Rect{},
	}
	if v.Visible {
		region := v.Region
		info.VisibleRegion = &region
		for _, f := range v.Fragments {
			info.VisibleArea += f.Area()
		}
		info.Fragments = append(info.Fragments, v.Fragments...)
	}
	return info
}

func monitorInfo(m occlusion.Monitor) MonitorInfo {
	return MonitorInfo{Name: m.Name, Bounds: m.Bounds, WorkArea: m.WorkArea}
}
