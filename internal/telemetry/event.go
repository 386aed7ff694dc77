// Package telemetry turns visibility snapshots into ActivityWatch
// heartbeats and delivers them through a persistent queue.
package telemetry

import (
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/1broseidon/visiwatch/internal/occlusion"
)

// WindowRef is the per-window payload sent upstream.
type WindowRef struct {
	App   string `json:"app"`
	Title string `json:"title"`
}

// Data is the event payload: the visible windows in snapshot order.
type Data struct {
	Windows []WindowRef `json:"windows"`
}

// Equal reports whether two payloads list the same windows in the same
// order.
func (d Data) Equal(o Data) bool {
	if len(d.Windows) != len(o.Windows) {
		return false
	}
	for i := range d.Windows {
		if d.Windows[i] != o.Windows[i] {
			return false
		}
	}
	return true
}

// Event is one ActivityWatch event. Duration is sent as seconds.
type Event struct {
	Timestamp time.Time
	Duration  time.Duration
	Data      Data
}

type eventJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Duration  float64   `json:"duration"`
	Data      Data      `json:"data"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	data := e.Data
	if data.Windows == nil {
		data.Windows = []WindowRef{}
	}
	return json.Marshal(eventJSON{
		Timestamp: e.Timestamp.UTC(),
		Duration:  e.Duration.Seconds(),
		Data:      data,
	})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var in eventJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	e.Timestamp = in.Timestamp
	e.Duration = time.Duration(in.Duration * float64(time.Second))
	e.Data = in.Data
	return nil
}

// EventFromSnapshot projects the visible windows of snap into a zero
// duration event stamped with the snapshot time.
func EventFromSnapshot(snap *occlusion.Snapshot) Event {
	ev := Event{Data: Data{Windows: []WindowRef{}}}
	if snap == nil {
		return ev
	}
	ev.Timestamp = snap.Taken
	for _, w := range snap.Visible() {
		ev.Data.Windows = append(ev.Data.Windows, WindowRef{App: w.App, Title: w.Title})
	}
	return ev
}
