package overlay

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/visiwatch/internal/occlusion"
	"github.com/1broseidon/visiwatch/internal/x11"
)

// SnapshotFunc returns the snapshot to draw.
type SnapshotFunc func() (*occlusion.Snapshot, error)

// Run redraws the overlay from fetch every interval until ctx is done.
// The X event queue is drained on a separate goroutine for the lifetime
// of the overlay.
func Run(ctx context.Context, conn *x11.Connection, fetch SnapshotFunc, interval time.Duration, logger *slog.Logger) error {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := NewManager(conn.XUtil, conn.Root)
	defer m.Cleanup()

	go conn.EventLoop()
	defer conn.Quit()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	draw := func() {
		snap, err := fetch()
		if err != nil {
			logger.Warn("overlay: failed to fetch snapshot", "error", err)
			m.HideAll()
			return
		}
		if err := m.Render(Items(snap)); err != nil {
			logger.Warn("overlay: render failed", "error", err)
		}
		conn.XUtil.Sync()
	}

	draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			draw()
		}
	}
}
