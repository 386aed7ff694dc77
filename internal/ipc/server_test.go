package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/visiwatch/internal/daemon"
	"github.com/1broseidon/visiwatch/internal/geom"
	"github.com/1broseidon/visiwatch/internal/occlusion"
)

type fakeSource struct {
	snap   *occlusion.Snapshot
	status daemon.Status
}

func (f *fakeSource) Latest() *occlusion.Snapshot { return f.snap }
func (f *fakeSource) Status() daemon.Status       { return f.status }

func testSnapshot(t *testing.T) *occlusion.Snapshot {
	t.Helper()
	left := geom.Rect{Right: 1920, Bottom: 1080}
	right := geom.Rect{Left: 1920, Right: 3840, Bottom: 1080}
	monitors := []occlusion.Monitor{
		{Name: "DP-1", Bounds: left, WorkArea: geom.Rect{Top: 32, Right: 1920, Bottom: 1080}},
		{Name: "DP-2", Bounds: right, WorkArea: right},
	}
	windows := []occlusion.Window{
		{Identity: occlusion.Identity{Handle: 10, App: "term", Title: "shell"}, Rect: geom.Rect{Left: 0, Top: 32, Right: 960, Bottom: 1080}, ZOrder: 0},
		{Identity: occlusion.Identity{Handle: 11, App: "term", Title: "logs"}, Rect: geom.Rect{Left: 0, Top: 32, Right: 960, Bottom: 1080}, ZOrder: 1},
		{Identity: occlusion.Identity{Handle: 12, App: "browser", Title: "docs"}, Rect: geom.Rect{Left: 1920, Right: 3840, Bottom: 1080}, ZOrder: 2},
	}
	snap, err := occlusion.NewSnapshot(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), windows, monitors)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snap
}

func startServer(t *testing.T, cfg ServerConfig) *Client {
	t.Helper()
	cfg.SocketPath = filepath.Join(t.TempDir(), "visiwatch.sock")
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return NewClientWithSocket(srv.SocketPath())
}

func TestServer_GetSnapshot(t *testing.T) {
	src := &fakeSource{snap: testSnapshot(t)}
	client := startServer(t, ServerConfig{Source: src})

	snap, err := client.GetSnapshot(false)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if len(snap.Windows) != 3 || len(snap.Monitors) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.Taken.Equal(src.snap.Taken) {
		t.Fatalf("taken = %s", snap.Taken)
	}
	hidden, ok := snap.Find(11)
	if !ok || hidden.Visible || !hidden.Region.Empty() {
		t.Fatalf("window 11 should be hidden: %+v", hidden)
	}
	shown, ok := snap.Find(12)
	if !ok || !shown.Visible || shown.Region != (geom.Rect{Left: 1920, Right: 3840, Bottom: 1080}) {
		t.Fatalf("window 12 should be fully visible: %+v", shown)
	}

	visible, err := client.GetSnapshot(true)
	if err != nil {
		t.Fatalf("GetSnapshot(visible only): %v", err)
	}
	if len(visible.Windows) != 2 {
		t.Fatalf("expected 2 visible windows, got %d", len(visible.Windows))
	}
}

func TestServer_GetMonitors(t *testing.T) {
	client := startServer(t, ServerConfig{Source: &fakeSource{snap: testSnapshot(t)}})

	data, err := client.GetMonitors()
	if err != nil {
		t.Fatalf("GetMonitors: %v", err)
	}
	if len(data.Monitors) != 2 {
		t.Fatalf("expected 2 monitors, got %d", len(data.Monitors))
	}
	m := data.Monitors[0]
	if m.Name != "DP-1" || m.Width != 1920 || m.WorkArea.Y != 32 || m.WorkArea.Height != 1048 {
		t.Fatalf("unexpected monitor %+v", m)
	}
	if data.Monitors[1].X != 1920 || data.Monitors[1].ID != 1 {
		t.Fatalf("unexpected monitor %+v", data.Monitors[1])
	}
}

func TestServer_NoSnapshotYet(t *testing.T) {
	client := startServer(t, ServerConfig{Source: &fakeSource{}})

	if _, err := client.GetSnapshot(false); err == nil || !strings.Contains(err.Error(), "no snapshot") {
		t.Fatalf("expected no snapshot error, got %v", err)
	}
	if _, err := client.GetMonitors(); err == nil {
		t.Fatal("expected error without a snapshot")
	}
}

func TestServer_GetStatus(t *testing.T) {
	src := &fakeSource{status: daemon.Status{Session: "abc", Samples: 7, Visible: 2}}
	client := startServer(t, ServerConfig{
		Source:    src,
		ServerURL: "http://localhost:5600",
		Pending:   func(context.Context) (int, error) { return 4, nil },
	})

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.DaemonRunning || status.Session != "abc" || status.Samples != 7 || status.Visible != 2 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.QueuePending != 4 || status.ServerURL != "http://localhost:5600" {
		t.Fatalf("unexpected status %+v", status)
	}
	if err := client.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestServer_Reload(t *testing.T) {
	var (
		mu        sync.Mutex
		calls     int
		reloadErr error
	)
	client := startServer(t, ServerConfig{
		Source: &fakeSource{},
		Reload: func() error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return reloadErr
		},
	})

	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	mu.Lock()
	reloadErr = errors.New("bad yaml")
	mu.Unlock()
	if err := client.Reload(); err == nil || !strings.Contains(err.Error(), "bad yaml") {
		t.Fatalf("expected reload error, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("reload called %d times", calls)
	}
}

func TestServer_ReloadUnsupported(t *testing.T) {
	client := startServer(t, ServerConfig{Source: &fakeSource{}})
	if err := client.Reload(); err == nil {
		t.Fatal("expected error when reload is not wired")
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	client := startServer(t, ServerConfig{Source: &fakeSource{}})

	_, err := client.roundTrip(Request{Command: "PREVIEW_LAYOUT"})
	if err == nil || !strings.Contains(err.Error(), "unknown command: PREVIEW_LAYOUT") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientWithSocket(filepath.Join(t.TempDir(), "missing.sock"))
	if err := client.Ping(); err == nil || !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestServer_MalformedRequest(t *testing.T) {
	client := startServer(t, ServerConfig{Source: &fakeSource{}})

	conn, err := net.Dial("unix", client.socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := conn.Write([]byte("{not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != statusError || !strings.Contains(resp.Error, "invalid request") {
		t.Fatalf("unexpected response %+v", resp)
	}
}
