package telemetry

import (
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/visiwatch/internal/geom"
	"github.com/1broseidon/visiwatch/internal/occlusion"
)

func TestEventFromSnapshot_VisibleOnlyInOrder(t *testing.T) {
	monitors := []occlusion.Monitor{{WorkArea: geom.Rect{Right: 1920, Bottom: 1080}}}
	windows := []occlusion.Window{
		{Identity: occlusion.Identity{Handle: 1, App: "firefox", Title: "Docs"}, Rect: geom.Rect{Right: 1000, Bottom: 1000}, ZOrder: 0},
		{Identity: occlusion.Identity{Handle: 2, App: "kitty", Title: "shell"}, Rect: geom.Rect{Left: 100, Top: 100, Right: 200, Bottom: 200}, ZOrder: 1},
		{Identity: occlusion.Identity{Handle: 3, App: "code", Title: "main.go"}, Rect: geom.Rect{Left: 1000, Right: 1900, Bottom: 800}, ZOrder: 2},
	}
	snap, err := occlusion.NewSnapshot(t0, windows, monitors)
	require.NoError(t, err)

	ev := EventFromSnapshot(snap)
	require.Equal(t, t0, ev.Timestamp)
	require.Zero(t, ev.Duration)
	require.Equal(t, []WindowRef{
		{App: "firefox", Title: "Docs"},
		{App: "code", Title: "main.go"},
	}, ev.Data.Windows)
}

func TestEventJSON(t *testing.T) {
	ev := Event{Timestamp: t0, Duration: 1500 * time.Millisecond}

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.JSONEq(t, `{"timestamp":"2024-05-01T09:00:00Z","duration":1.5,"data":{"windows":[]}}`, string(data))

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, ev.Duration, back.Duration)
	require.True(t, ev.Timestamp.Equal(back.Timestamp))
}
