package occlusion

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/1broseidon/visiwatch/internal/geom"
)

// ErrInvalidInput is returned when a window or monitor record is missing
// geometry or carries an impossible value. An empty rectangle is not
// invalid: it is a window or work area that covers nothing.
var ErrInvalidInput = errors.New("invalid input")

// UnknownApp is substituted by enumerators when a window's owning process
// cannot be resolved. The engine treats it like any other name.
const UnknownApp = "unknown"

// Identity names a window for consumers of a snapshot.
type Identity struct {
	Handle uint64 `json:"handle"`
	App    string `json:"app"`
	Title  string `json:"title"`
}

// Monitor is one display as seen during a single sample.
type Monitor struct {
	Name     string    `json:"name,omitempty"`
	Bounds   geom.Rect `json:"bounds"`
	WorkArea geom.Rect `json:"work_area"`
}

// Window is a visibility candidate. ZOrder 0 is the frontmost window.
type Window struct {
	Identity
	Rect   geom.Rect `json:"rect"`
	ZOrder int       `json:"z_order"`
}

// Visibility is a Window annotated with the result of the occlusion sweep.
// Region is the bounding rectangle of the uncovered part and is the zero
// Rect when Visible is false. Fragments holds the exact uncovered pieces.
type Visibility struct {
	Window
	Visible   bool        `json:"visible"`
	Region    geom.Rect   `json:"-"`
	Fragments []geom.Rect `json:"fragments,omitempty"`
}

type visibilityJSON struct {
	Handle    uint64      `json:"handle"`
	App       string      `json:"app"`
	Title     string      `json:"title"`
	Rect      geom.Rect   `json:"rect"`
	ZOrder    int         `json:"z_order"`
	Visible   bool        `json:"visible"`
	Region    *geom.Rect  `json:"visible_region,omitempty"`
	Fragments []geom.Rect `json:"fragments,omitempty"`
}

// MarshalJSON omits visible_region for invisible windows.
func (v Visibility) MarshalJSON() ([]byte, error) {
	out := visibilityJSON{
		Handle:    v.Handle,
		App:       v.App,
		Title:     v.Title,
		Rect:      v.Rect,
		ZOrder:    v.ZOrder,
		Visible:   v.Visible,
		Fragments: v.Fragments,
	}
	if v.Visible {
		region := v.Region
		out.Region = &region
	}
	return json.Marshal(out)
}

func (v *Visibility) UnmarshalJSON(data []byte) error {
	var in visibilityJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	v.Window = Window{
		Identity: Identity{Handle: in.Handle, App: in.App, Title: in.Title},
		Rect:     in.Rect,
		ZOrder:   in.ZOrder,
	}
	v.Visible = in.Visible
	v.Fragments = in.Fragments
	v.Region = geom.Rect{}
	if in.Region != nil {
		v.Region = *in.Region
	}
	return nil
}

type rectJSON struct {
	Left   *int `json:"left"`
	Top    *int `json:"top"`
	Right  *int `json:"right"`
	Bottom *int `json:"bottom"`
}

// decodeRect decodes a rectangle whose four edges must all be present.
// A misspelled edge is as missing as an absent one.
func decodeRect(raw json.RawMessage, field string) (geom.Rect, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return geom.Rect{}, fmt.Errorf("%w: no %s", ErrInvalidInput, field)
	}
	var in rectJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return geom.Rect{}, fmt.Errorf("%w: %s: %v", ErrInvalidInput, field, err)
	}
	edges := []struct {
		name string
		v    *int
	}{{"left", in.Left}, {"top", in.Top}, {"right", in.Right}, {"bottom", in.Bottom}}
	for _, e := range edges {
		if e.v == nil {
			return geom.Rect{}, fmt.Errorf("%w: %s has no %s", ErrInvalidInput, field, e.name)
		}
	}
	return geom.Rect{Left: *in.Left, Top: *in.Top, Right: *in.Right, Bottom: *in.Bottom}, nil
}

type windowJSON struct {
	Handle uint64          `json:"handle"`
	App    string          `json:"app"`
	Title  string          `json:"title"`
	Rect   json.RawMessage `json:"rect"`
	ZOrder *int            `json:"z_order"`
}

// UnmarshalJSON rejects records without complete geometry or stacking
// position so that a broken enumeration is not mistaken for "nothing
// visible".
func (w *Window) UnmarshalJSON(data []byte) error {
	var in windowJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	rect, err := decodeRect(in.Rect, "rect")
	if err != nil {
		return fmt.Errorf("window %d: %w", in.Handle, err)
	}
	if in.ZOrder == nil {
		return fmt.Errorf("%w: window %d has no z_order", ErrInvalidInput, in.Handle)
	}
	*w = Window{
		Identity: Identity{Handle: in.Handle, App: in.App, Title: in.Title},
		Rect:     rect,
		ZOrder:   *in.ZOrder,
	}
	return nil
}

type monitorJSON struct {
	Name     string          `json:"name,omitempty"`
	Bounds   json.RawMessage `json:"bounds"`
	WorkArea json.RawMessage `json:"work_area"`
}

// UnmarshalJSON requires a work area. A missing bounds rectangle defaults
// to the work area; a present one must be complete.
func (m *Monitor) UnmarshalJSON(data []byte) error {
	var in monitorJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	workArea, err := decodeRect(in.WorkArea, "work_area")
	if err != nil {
		return fmt.Errorf("monitor %q: %w", in.Name, err)
	}
	bounds := workArea
	if len(in.Bounds) > 0 && string(in.Bounds) != "null" {
		if bounds, err = decodeRect(in.Bounds, "bounds"); err != nil {
			return fmt.Errorf("monitor %q: %w", in.Name, err)
		}
	}
	*m = Monitor{Name: in.Name, Bounds: bounds, WorkArea: workArea}
	return nil
}
