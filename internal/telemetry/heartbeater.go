package telemetry

import (
	"context"
	"time"

	"github.com/1broseidon/visiwatch/internal/occlusion"
)

// Heartbeater turns snapshots into merged heartbeats and hands them to a
// Dispatcher. It is not safe for concurrent use; the sampler owns it.
type Heartbeater struct {
	merger     *Merger
	dispatcher *Dispatcher
	pulse      time.Duration
}

func NewHeartbeater(d *Dispatcher, pulse, commit time.Duration) *Heartbeater {
	return &Heartbeater{
		merger:     NewMerger(pulse, commit),
		dispatcher: d,
		pulse:      pulse,
	}
}

// Emit records one snapshot.
func (h *Heartbeater) Emit(ctx context.Context, snap *occlusion.Snapshot) error {
	ev, ok := h.merger.Add(EventFromSnapshot(snap))
	if !ok {
		return nil
	}
	return h.dispatcher.Enqueue(ctx, ev, h.pulse)
}

// Flush queues the pending merged heartbeat, if any.
func (h *Heartbeater) Flush(ctx context.Context) error {
	ev, ok := h.merger.Flush()
	if !ok {
		return nil
	}
	return h.dispatcher.Enqueue(ctx, ev, h.pulse)
}
