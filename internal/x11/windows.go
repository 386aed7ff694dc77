package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// Window types that never count as user-facing application windows.
var auxiliaryWindowTypes = map[string]bool{
	"_NET_WM_WINDOW_TYPE_DESKTOP":       true,
	"_NET_WM_WINDOW_TYPE_DOCK":          true,
	"_NET_WM_WINDOW_TYPE_TOOLBAR":       true,
	"_NET_WM_WINDOW_TYPE_MENU":          true,
	"_NET_WM_WINDOW_TYPE_UTILITY":       true,
	"_NET_WM_WINDOW_TYPE_SPLASH":        true,
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU": true,
	"_NET_WM_WINDOW_TYPE_POPUP_MENU":    true,
	"_NET_WM_WINDOW_TYPE_TOOLTIP":       true,
	"_NET_WM_WINDOW_TYPE_NOTIFICATION":  true,
	"_NET_WM_WINDOW_TYPE_COMBO":         true,
	"_NET_WM_WINDOW_TYPE_DND":           true,
}

// StackingOrder returns the managed client windows ordered front to back.
// _NET_CLIENT_LIST_STACKING is bottom to top; when the window manager does
// not provide it, _NET_CLIENT_LIST is used reversed.
func (c *Connection) StackingOrder() ([]xproto.Window, error) {
	stack, err := ewmh.ClientListStackingGet(c.XUtil)
	if err != nil || len(stack) == 0 {
		stack, err = ewmh.ClientListGet(c.XUtil)
		if err != nil {
			return nil, fmt.Errorf("failed to get client list: %w", err)
		}
	}
	out := make([]xproto.Window, len(stack))
	for i, w := range stack {
		out[len(stack)-1-i] = w
	}
	return out, nil
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// Untyped windows are treated as normal.
		return true
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
			return true
		}
		if auxiliaryWindowTypes[t] {
			return false
		}
	}
	return len(types) == 0
}

func (c *Connection) hasWindowType(windowID xproto.Window, want string) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

// IsTransient reports whether the window is owned by another window.
func (c *Connection) IsTransient(windowID xproto.Window) bool {
	owner, err := icccm.WmTransientForGet(c.XUtil, windowID)
	return err == nil && owner != 0 && owner != windowID
}

// IsHidden reports whether the window manager has hidden (minimized) the
// window.
func (c *Connection) IsHidden(windowID xproto.Window) bool {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_HIDDEN" {
			return true
		}
	}
	return false
}

// GetFrameExtents returns the window decoration sizes (if available)
func (c *Connection) GetFrameExtents(windowID xproto.Window) (left, right, top, bottom int) {
	extents, err := ewmh.FrameExtentsGet(c.XUtil, windowID)
	if err != nil {
		return 0, 0, 0, 0
	}
	return int(extents.Left), int(extents.Right), int(extents.Top), int(extents.Bottom)
}
