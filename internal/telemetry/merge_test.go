package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func hb(offset time.Duration, titles ...string) Event {
	ev := Event{Timestamp: t0.Add(offset), Data: Data{Windows: []WindowRef{}}}
	for _, title := range titles {
		ev.Data.Windows = append(ev.Data.Windows, WindowRef{App: "app", Title: title})
	}
	return ev
}

func TestMergeHeartbeat(t *testing.T) {
	pulse := 2 * time.Second

	merged, ok := mergeHeartbeat(hb(0, "a"), hb(time.Second, "a"), pulse)
	require.True(t, ok)
	require.Equal(t, time.Second, merged.Duration)
	require.Equal(t, t0, merged.Timestamp)

	_, ok = mergeHeartbeat(hb(0, "a"), hb(time.Second, "b"), pulse)
	require.False(t, ok, "different data must not merge")

	_, ok = mergeHeartbeat(hb(0, "a"), hb(3*time.Second, "a"), pulse)
	require.False(t, ok, "gap longer than pulse must not merge")

	_, ok = mergeHeartbeat(hb(time.Second, "a"), hb(0, "a"), pulse)
	require.False(t, ok, "heartbeat before the last event must not merge")

	_, ok = mergeHeartbeat(hb(0, "a", "b"), hb(time.Second, "b", "a"), pulse)
	require.False(t, ok, "order is part of the data")
}

func TestMerger_CommitsOnChange(t *testing.T) {
	m := NewMerger(2*time.Second, 4*time.Second)

	_, ok := m.Add(hb(0, "a"))
	require.False(t, ok)
	_, ok = m.Add(hb(500*time.Millisecond, "a"))
	require.False(t, ok)
	_, ok = m.Add(hb(time.Second, "a"))
	require.False(t, ok)

	out, ok := m.Add(hb(1500*time.Millisecond, "b"))
	require.True(t, ok)
	require.Equal(t, t0, out.Timestamp)
	require.Equal(t, time.Second, out.Duration)
	require.Equal(t, "a", out.Data.Windows[0].Title)

	out, ok = m.Flush()
	require.True(t, ok)
	require.Equal(t, "b", out.Data.Windows[0].Title)

	_, ok = m.Flush()
	require.False(t, ok)
}

func TestMerger_CommitsLongStretches(t *testing.T) {
	m := NewMerger(2*time.Second, 4*time.Second)

	var committed []Event
	for i := 0; i <= 20; i++ {
		if out, ok := m.Add(hb(time.Duration(i)*500*time.Millisecond, "a")); ok {
			committed = append(committed, out)
		}
	}

	require.NotEmpty(t, committed)
	require.Equal(t, 4*time.Second, committed[0].Duration)
	for _, ev := range committed {
		require.GreaterOrEqual(t, ev.Duration, 4*time.Second)
	}
}

func TestMerger_GapStartsNewEvent(t *testing.T) {
	m := NewMerger(2*time.Second, 4*time.Second)

	m.Add(hb(0, "a"))
	out, ok := m.Add(hb(10*time.Second, "a"))
	require.True(t, ok)
	require.Equal(t, t0, out.Timestamp)
	require.Zero(t, out.Duration)
}
