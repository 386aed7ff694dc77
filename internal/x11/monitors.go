package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/visiwatch/internal/geom"
)

// Monitor is one active CRTC. WorkArea is Bounds minus dock struts.
type Monitor struct {
	ID       int
	Name     string
	Bounds   geom.Rect
	WorkArea geom.Rect
}

// GetMonitors retrieves all active monitors using XRandR and resolves the
// work area of each one. When RandR reports nothing the root window is
// treated as a single monitor.
func (c *Connection) GetMonitors() ([]Monitor, error) {
	monitors, err := c.randrMonitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		root, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to get root geometry: %w", err)
		}
		monitors = []Monitor{{
			Name:   "root",
			Bounds: geom.FromXYWH(0, 0, int(root.Width), int(root.Height)),
		}}
	}

	c.applyWorkAreas(monitors)
	return monitors, nil
}

func (c *Connection) randrMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Disabled CRTC.
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			outputName = string(outputInfo.Name)
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   outputName,
			Bounds: geom.FromXYWH(int(crtcInfo.X), int(crtcInfo.Y), int(crtcInfo.Width), int(crtcInfo.Height)),
		})
	}
	return monitors, nil
}

// applyWorkAreas fills WorkArea for every monitor. Dock struts are applied
// per monitor; when no dock advertises struts the desktop's _NET_WORKAREA
// is intersected with each monitor instead.
func (c *Connection) applyWorkAreas(monitors []Monitor) {
	var rootWidth, rootHeight int
	var struts []*ewmh.WmStrutPartial
	if root, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply(); err == nil {
		rootWidth, rootHeight = int(root.Width), int(root.Height)
		struts = c.dockStruts(rootWidth, rootHeight)
	}

	var desktopArea geom.Rect
	haveDesktopArea := false
	if len(struts) == 0 {
		desktopArea, haveDesktopArea = c.desktopWorkArea()
	}

	for i := range monitors {
		m := &monitors[i]
		m.WorkArea = m.Bounds
		if len(struts) > 0 {
			m.WorkArea = applyStruts(m.Bounds, rootWidth, rootHeight, struts)
			continue
		}
		if haveDesktopArea {
			if wa := geom.Intersect(m.Bounds, desktopArea); !wa.Empty() {
				m.WorkArea = wa
			}
		}
	}
}

func (c *Connection) desktopWorkArea() (geom.Rect, bool) {
	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return geom.Rect{}, false
	}
	desktopIndex := 0
	if currentDesktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil {
		if int(currentDesktop) < len(workArea) {
			desktopIndex = int(currentDesktop)
		}
	}
	wa := workArea[desktopIndex]
	return geom.FromXYWH(wa.X, wa.Y, int(wa.Width), int(wa.Height)), true
}

// dockStruts collects the struts of every dock window, normalising plain
// _NET_WM_STRUT values to full-length partial struts.
func (c *Connection) dockStruts(rootWidth, rootHeight int) []*ewmh.WmStrutPartial {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil
	}

	var out []*ewmh.WmStrutPartial
	for _, windowID := range clients {
		if !c.hasWindowType(windowID, "_NET_WM_WINDOW_TYPE_DOCK") {
			continue
		}
		if sp, err := ewmh.WmStrutPartialGet(c.XUtil, windowID); err == nil {
			out = append(out, sp)
			continue
		}
		// Some docks only set _NET_WM_STRUT (no partial ranges).
		if s, err := ewmh.WmStrutGet(c.XUtil, windowID); err == nil {
			out = append(out, &ewmh.WmStrutPartial{
				Left:       s.Left,
				Right:      s.Right,
				Top:        s.Top,
				Bottom:     s.Bottom,
				LeftEndY:   uint(rootHeight - 1),
				RightEndY:  uint(rootHeight - 1),
				TopEndX:    uint(rootWidth - 1),
				BottomEndX: uint(rootWidth - 1),
			})
		}
	}
	return out
}

// applyStruts shrinks bounds by the largest strut reaching into it on each
// edge. Strut coordinates are relative to the root window edges.
func applyStruts(bounds geom.Rect, rootWidth, rootHeight int, struts []*ewmh.WmStrutPartial) geom.Rect {
	var left, right, top, bottom int
	for _, sp := range struts {
		if sp.Top > 0 {
			band := geom.Rect{Left: int(sp.TopStartX), Top: 0, Right: int(sp.TopEndX) + 1, Bottom: int(sp.Top)}
			top = max(top, geom.Intersect(bounds, band).Height())
		}
		if sp.Bottom > 0 {
			band := geom.Rect{Left: int(sp.BottomStartX), Top: rootHeight - int(sp.Bottom), Right: int(sp.BottomEndX) + 1, Bottom: rootHeight}
			bottom = max(bottom, geom.Intersect(bounds, band).Height())
		}
		if sp.Left > 0 {
			band := geom.Rect{Left: 0, Top: int(sp.LeftStartY), Right: int(sp.Left), Bottom: int(sp.LeftEndY) + 1}
			left = max(left, geom.Intersect(bounds, band).Width())
		}
		if sp.Right > 0 {
			band := geom.Rect{Left: rootWidth - int(sp.Right), Top: int(sp.RightStartY), Right: rootWidth, Bottom: int(sp.RightEndY) + 1}
			right = max(right, geom.Intersect(bounds, band).Width())
		}
	}

	wa := geom.Rect{
		Left:   bounds.Left + left,
		Top:    bounds.Top + top,
		Right:  bounds.Right - right,
		Bottom: bounds.Bottom - bottom,
	}
	if wa.Empty() {
		return geom.Rect{}
	}
	return wa
}
