//go:build linux

package platform

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/1broseidon/visiwatch/internal/geom"
	"github.com/1broseidon/visiwatch/internal/occlusion"
	"github.com/1broseidon/visiwatch/internal/x11"
)

// LinuxBackend wraps an X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection

	// procRoot is where process names are looked up; overridable in tests.
	procRoot string
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn, procRoot: "/proc"}
}

// NewLinuxBackendFromDisplay opens a fresh X11 connection to display, or
// to $DISPLAY when display is empty.
func NewLinuxBackendFromDisplay(display string) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, err
	}
	return NewLinuxBackend(conn), nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// Monitors returns every active monitor with its work area.
func (b *LinuxBackend) Monitors() ([]occlusion.Monitor, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	out := make([]occlusion.Monitor, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, occlusion.Monitor{
			Name:     m.Name,
			Bounds:   m.Bounds,
			WorkArea: m.WorkArea,
		})
	}
	return out, nil
}

// Windows lists the visibility candidates on the current desktop, front to
// back.
func (b *LinuxBackend) Windows() ([]occlusion.Window, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	stack, err := conn.StackingOrder()
	if err != nil {
		return nil, err
	}

	currentDesktop, desktopErr := conn.GetCurrentDesktop()
	hasCurrentDesktop := desktopErr == nil

	windows := make([]occlusion.Window, 0, len(stack))
	for _, windowID := range stack {
		if !conn.IsNormalWindow(windowID) || conn.IsTransient(windowID) || conn.IsHidden(windowID) {
			continue
		}
		if hasCurrentDesktop && !conn.OnDesktop(windowID, currentDesktop) {
			continue
		}

		title := b.windowTitle(windowID)
		if title == "" {
			continue
		}

		rect, ok := b.windowRect(windowID)
		if !ok {
			continue
		}

		windows = append(windows, occlusion.Window{
			Identity: occlusion.Identity{
				Handle: uint64(windowID),
				App:    b.windowApp(windowID),
				Title:  title,
			},
			Rect:   rect,
			ZOrder: len(windows),
		})
	}
	return windows, nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

// windowRect returns the on-screen rectangle of the window including the
// decorations drawn by the window manager.
func (b *LinuxBackend) windowRect(windowID xproto.Window) (geom.Rect, bool) {
	conn := b.conn
	g, err := xproto.GetGeometry(conn.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return geom.Rect{}, false
	}

	translate, err := xproto.TranslateCoordinates(
		conn.XUtil.Conn(),
		windowID,
		conn.Root,
		0, 0,
	).Reply()
	if err != nil {
		return geom.Rect{}, false
	}

	left, right, top, bottom := conn.GetFrameExtents(windowID)
	return geom.Rect{
		Left:   int(translate.DstX) - left,
		Top:    int(translate.DstY) - top,
		Right:  int(translate.DstX) + int(g.Width) + right,
		Bottom: int(translate.DstY) + int(g.Height) + bottom,
	}, true
}

// windowApp names the owning process from /proc, then WM_CLASS, then
// falls back to occlusion.UnknownApp.
func (b *LinuxBackend) windowApp(windowID xproto.Window) string {
	if pid, err := ewmh.WmPidGet(b.conn.XUtil, windowID); err == nil && pid > 0 {
		if name := processName(b.procRoot, int(pid)); name != "" {
			return name
		}
	}
	if wmClass, err := icccm.WmClassGet(b.conn.XUtil, windowID); err == nil {
		if class := strings.TrimSpace(wmClass.Instance); class != "" {
			return class
		}
	}
	return occlusion.UnknownApp
}

func (b *LinuxBackend) windowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(b.conn.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(b.conn.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	return ""
}

// processName resolves the executable name for pid, preferring the
// basename of /proc/<pid>/exe over the truncated comm field.
func processName(procRoot string, pid int) string {
	dir := procRoot + "/" + strconv.Itoa(pid)
	if exe, err := os.Readlink(dir + "/exe"); err == nil {
		exe = strings.TrimSuffix(exe, " (deleted)")
		if i := strings.LastIndexByte(exe, '/'); i >= 0 {
			exe = exe[i+1:]
		}
		if exe != "" {
			return exe
		}
	}
	comm, err := os.ReadFile(dir + "/comm")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(comm))
}
