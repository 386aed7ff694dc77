package telemetry

import "time"

// mergeHeartbeat extends last by hb when both carry the same data and hb
// starts no later than pulse after last ends.
func mergeHeartbeat(last, hb Event, pulse time.Duration) (Event, bool) {
	if !last.Data.Equal(hb.Data) {
		return Event{}, false
	}
	end := last.Timestamp.Add(last.Duration + pulse)
	if hb.Timestamp.Before(last.Timestamp) || hb.Timestamp.After(end) {
		return Event{}, false
	}
	merged := last
	merged.Duration = max(last.Duration, hb.Timestamp.Sub(last.Timestamp)+hb.Duration)
	return merged, true
}

// Merger coalesces consecutive heartbeats on the client side so that only
// one request is queued per unchanged stretch, or per commit interval
// while the stretch lasts.
type Merger struct {
	pulse  time.Duration
	commit time.Duration
	last   *Event
}

func NewMerger(pulse, commit time.Duration) *Merger {
	return &Merger{pulse: pulse, commit: commit}
}

// Add feeds one heartbeat and returns the event to send, if any.
func (m *Merger) Add(hb Event) (Event, bool) {
	if m.last == nil {
		m.last = &hb
		return Event{}, false
	}

	if merged, ok := mergeHeartbeat(*m.last, hb, m.pulse); ok {
		if merged.Duration >= m.commit {
			m.last = &hb
			return merged, true
		}
		m.last = &merged
		return Event{}, false
	}

	out := *m.last
	m.last = &hb
	return out, true
}

// Flush returns the pending event and forgets it.
func (m *Merger) Flush() (Event, bool) {
	if m.last == nil {
		return Event{}, false
	}
	out := *m.last
	m.last = nil
	return out, true
}
