// Package overlay outlines the visible region of every visible window
// directly on the X11 screen, using override-redirect windows that the
// window manager does not manage.
package overlay

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"

	"github.com/1broseidon/visiwatch/internal/geom"
)

// borderOverlay is a rectangular border made of 4 thin windows.
type borderOverlay struct {
	bars    [4]xproto.Window
	created bool
	mapped  bool
}

// labelOverlay is a small text panel naming the window.
type labelOverlay struct {
	window  xproto.Window
	gc      xproto.Gcontext
	created bool
	mapped  bool
}

// Manager owns the overlay windows and reuses them between renders.
type Manager struct {
	xu   *xgbutil.XUtil
	root xproto.Window

	borders []*borderOverlay
	labels  []*labelOverlay

	font         xproto.Font
	fontReady    bool
	fontDisabled bool
}

func NewManager(xu *xgbutil.XUtil, root xproto.Window) *Manager {
	return &Manager{xu: xu, root: root}
}

// Render outlines every item, hiding overlays left over from a previous
// render with more items. Labels are best effort: without a usable font
// only borders are drawn.
func (m *Manager) Render(items []Item) error {
	for len(m.borders) < len(items) {
		b := &borderOverlay{}
		if err := m.createBorderWindows(b); err != nil {
			return err
		}
		m.borders = append(m.borders, b)
	}
	for i := len(items); i < len(m.borders); i++ {
		m.hideBorder(m.borders[i])
	}
	for i := len(items); i < len(m.labels); i++ {
		m.hideLabel(m.labels[i])
	}

	for i, item := range items {
		if item.Region.Width() <= 2*BorderThickness || item.Region.Height() <= 2*BorderThickness {
			m.hideBorder(m.borders[i])
			continue
		}
		m.showBorder(m.borders[i], item.Region, item.Color)
		m.renderLabel(i, item)
	}
	return nil
}

// HideAll hides all overlays without destroying them.
func (m *Manager) HideAll() {
	for _, b := range m.borders {
		m.hideBorder(b)
	}
	for _, l := range m.labels {
		m.hideLabel(l)
	}
}

// Cleanup destroys all overlay windows
func (m *Manager) Cleanup() {
	conn := m.xu.Conn()
	for _, b := range m.borders {
		for _, w := range b.bars {
			if w != 0 {
				xproto.DestroyWindow(conn, w)
			}
		}
	}
	for _, l := range m.labels {
		if l.gc != 0 {
			xproto.FreeGC(conn, l.gc)
		}
		if l.window != 0 {
			xproto.DestroyWindow(conn, l.window)
		}
	}
	if m.fontReady {
		xproto.CloseFont(conn, m.font)
		m.fontReady = false
	}
	m.borders = nil
	m.labels = nil
}

func (m *Manager) createBorderWindows(b *borderOverlay) error {
	for i := range b.bars {
		w, err := m.createOverrideRedirectWindow()
		if err != nil {
			return err
		}
		b.bars[i] = w
	}
	b.created = true
	return nil
}

func (m *Manager) showBorder(b *borderOverlay, region geom.Rect, color uint32) {
	for i, bar := range borderBars(region, BorderThickness) {
		m.updateWindow(b.bars[i], bar, color)
	}
	for _, w := range b.bars {
		xproto.MapWindow(m.xu.Conn(), w)
	}
	b.mapped = true
}

func (m *Manager) hideBorder(b *borderOverlay) {
	if !b.mapped {
		return
	}
	for _, w := range b.bars {
		xproto.UnmapWindow(m.xu.Conn(), w)
	}
	b.mapped = false
}

func (m *Manager) renderLabel(i int, item Item) {
	for len(m.labels) <= i {
		m.labels = append(m.labels, &labelOverlay{})
	}
	l := m.labels[i]

	width, height := labelSize(item.Label)
	r, ok := placeLabel(item.Region, width, height)
	if !ok || !m.ensureLabel(l) {
		m.hideLabel(l)
		return
	}

	conn := m.xu.Conn()
	m.updateWindow(l.window, r, colorLabelBg)
	text := item.Label
	if maxChars := (r.Width() - 2*labelPaddingX) / labelCharWidth; len(text) > maxChars {
		text = text[:maxChars]
	}
	xproto.ImageText8(
		conn,
		byte(len(text)),
		xproto.Drawable(l.window),
		l.gc,
		int16(labelPaddingX),
		int16(labelPaddingY+labelLineH-4),
		text,
	)
	xproto.MapWindow(conn, l.window)
	l.mapped = true
}

func (m *Manager) hideLabel(l *labelOverlay) {
	if !l.mapped {
		return
	}
	xproto.UnmapWindow(m.xu.Conn(), l.window)
	l.mapped = false
}

func (m *Manager) ensureFont() bool {
	if m.fontReady {
		return true
	}
	if m.fontDisabled {
		return false
	}
	conn := m.xu.Conn()
	font, err := xproto.NewFontId(conn)
	if err != nil {
		m.fontDisabled = true
		return false
	}
	for _, name := range []string{"fixed", "9x15", "8x13", "6x13"} {
		if err := xproto.OpenFontChecked(conn, font, uint16(len(name)), name).Check(); err == nil {
			m.font = font
			m.fontReady = true
			return true
		}
	}
	m.fontDisabled = true
	return false
}

func (m *Manager) ensureLabel(l *labelOverlay) bool {
	if l.created {
		return true
	}
	if !m.ensureFont() {
		return false
	}
	conn := m.xu.Conn()

	w, err := m.createOverrideRedirectWindow()
	if err != nil {
		return false
	}
	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		xproto.DestroyWindow(conn, w)
		return false
	}
	err = xproto.CreateGCChecked(
		conn,
		gc,
		xproto.Drawable(w),
		xproto.GcForeground|xproto.GcBackground|xproto.GcFont|xproto.GcGraphicsExposures,
		[]uint32{colorLabelText, colorLabelBg, uint32(m.font), 0},
	).Check()
	if err != nil {
		xproto.DestroyWindow(conn, w)
		return false
	}

	l.window = w
	l.gc = gc
	l.created = true
	return true
}

func (m *Manager) createOverrideRedirectWindow() (xproto.Window, error) {
	conn := m.xu.Conn()
	screen := m.xu.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}

	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		m.root,
		0, 0,
		1, 1,
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwOverrideRedirect|xproto.CwBackPixel,
		// Values follow mask bit order: CwBackPixel before CwOverrideRedirect.
		[]uint32{0, 1},
	).Check()
	if err != nil {
		return 0, err
	}
	return wid, nil
}

// updateWindow moves, resizes, raises and recolors a window.
func (m *Manager) updateWindow(wid xproto.Window, r geom.Rect, color uint32) {
	conn := m.xu.Conn()
	x, y, width, height := r.XYWH()
	width = max(width, 1)
	height = max(height, 1)

	xproto.ConfigureWindow(
		conn,
		wid,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight|xproto.ConfigWindowStackMode,
		[]uint32{
			uint32(int32(x)),
			uint32(int32(y)),
			uint32(width),
			uint32(height),
			xproto.StackModeAbove,
		},
	)
	xproto.ChangeWindowAttributes(conn, wid, xproto.CwBackPixel, []uint32{color})
	xproto.ClearArea(conn, false, wid, 0, 0, 0, 0)
}
