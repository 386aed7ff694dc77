package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/visiwatch/internal/geom"
	"github.com/1broseidon/visiwatch/internal/occlusion"
	"github.com/1broseidon/visiwatch/internal/platform"
)

type fakeEmitter struct {
	mu      sync.Mutex
	snaps   []*occlusion.Snapshot
	flushed int
	err     error
}

func (f *fakeEmitter) Emit(_ context.Context, snap *occlusion.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, snap)
	return f.err
}

func (f *fakeEmitter) Flush(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed++
	return nil
}

func (f *fakeEmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snaps)
}

type panickingBackend struct{}

func (panickingBackend) Monitors() ([]occlusion.Monitor, error) { panic("boom") }
func (panickingBackend) Windows() ([]occlusion.Window, error)   { return nil, nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBackend() *platform.Static {
	screen := geom.Rect{Right: 1920, Bottom: 1080}
	return &platform.Static{
		MonitorList: []occlusion.Monitor{{Name: "eDP-1", Bounds: screen, WorkArea: screen}},
		WindowList: []occlusion.Window{
			{Identity: occlusion.Identity{Handle: 1, App: "editor", Title: "main.go"}, Rect: geom.Rect{Right: 1920, Bottom: 1080}, ZOrder: 0},
			{Identity: occlusion.Identity{Handle: 2, App: "browser", Title: "docs"}, Rect: geom.Rect{Left: 100, Top: 100, Right: 900, Bottom: 700}, ZOrder: 1},
		},
	}
}

func TestSampleNow_PublishesAndEmits(t *testing.T) {
	emitter := &fakeEmitter{}
	taken := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s := NewSampler(testBackend(), SamplerConfig{
		Logger:  discardLogger(),
		Emitter: emitter,
		Now:     func() time.Time { return taken },
	})

	if s.Latest() != nil {
		t.Fatal("expected no snapshot before the first sample")
	}

	snap, err := s.SampleNow(context.Background())
	if err != nil {
		t.Fatalf("SampleNow: %v", err)
	}
	if snap.VisibleCount() != 1 {
		t.Fatalf("expected only the front window visible, got %d", snap.VisibleCount())
	}
	if got, ok := snap.Find(2); !ok || got.Visible {
		t.Fatalf("expected window 2 hidden, got %+v", got)
	}
	if s.Latest() != snap {
		t.Fatal("Latest did not return the published snapshot")
	}
	if emitter.count() != 1 {
		t.Fatalf("emitter saw %d snapshots", emitter.count())
	}

	st := s.Status()
	if st.Samples != 1 || st.Visible != 1 || st.Candidates != 2 || st.Monitors != 1 {
		t.Fatalf("unexpected status %+v", st)
	}
	if !st.LastSample.Equal(taken) || st.Session == "" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestSampleNow_BackendErrorKeepsPreviousSnapshot(t *testing.T) {
	backend := testBackend()
	s := NewSampler(backend, SamplerConfig{Logger: discardLogger()})

	first, err := s.SampleNow(context.Background())
	if err != nil {
		t.Fatalf("SampleNow: %v", err)
	}

	backend.Err = errors.New("display gone")
	if _, err := s.SampleNow(context.Background()); err == nil {
		t.Fatal("expected backend error")
	}
	if s.Latest() != first {
		t.Fatal("failed sample replaced the published snapshot")
	}
	st := s.Status()
	if st.Failures != 1 || st.LastError == "" {
		t.Fatalf("failure not recorded: %+v", st)
	}
}

func TestSampleNow_InvalidWindowIsAnError(t *testing.T) {
	backend := testBackend()
	backend.WindowList[0].ZOrder = -1
	s := NewSampler(backend, SamplerConfig{Logger: discardLogger()})

	_, err := s.SampleNow(context.Background())
	if !errors.Is(err, occlusion.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSampleNow_EmitErrorDoesNotFailSample(t *testing.T) {
	emitter := &fakeEmitter{err: errors.New("queue full")}
	s := NewSampler(testBackend(), SamplerConfig{Logger: discardLogger(), Emitter: emitter})

	if _, err := s.SampleNow(context.Background()); err != nil {
		t.Fatalf("emit error leaked: %v", err)
	}
	if s.Latest() == nil {
		t.Fatal("expected snapshot to be published")
	}
}

func TestTick_RecoversPanic(t *testing.T) {
	s := NewSampler(panickingBackend{}, SamplerConfig{Logger: discardLogger()})
	s.tick(context.Background())

	if st := s.Status(); st.Failures != 1 {
		t.Fatalf("expected panic to count as a failure, got %+v", st)
	}
}

func TestRun_SamplesUntilCancelledThenFlushes(t *testing.T) {
	emitter := &fakeEmitter{}
	s := NewSampler(testBackend(), SamplerConfig{
		Interval: 5 * time.Millisecond,
		Logger:   discardLogger(),
		Emitter:  emitter,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for emitter.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("sampler did not tick")
		}
		time.Sleep(time.Millisecond)
	}
	s.SetInterval(time.Millisecond)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	if emitter.flushed != 1 {
		t.Fatalf("expected one flush, got %d", emitter.flushed)
	}
	if s.Interval() != time.Millisecond {
		t.Fatalf("interval = %s", s.Interval())
	}
}
