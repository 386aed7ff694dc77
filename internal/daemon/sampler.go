// Package daemon runs the periodic visibility sampler.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/1broseidon/visiwatch/internal/activitylog"
	"github.com/1broseidon/visiwatch/internal/occlusion"
	"github.com/1broseidon/visiwatch/internal/platform"
)

// Emitter receives every snapshot the sampler produces.
type Emitter interface {
	Emit(ctx context.Context, snap *occlusion.Snapshot) error
	Flush(ctx context.Context) error
}

// SamplerConfig holds configuration for the sampler.
type SamplerConfig struct {
	Interval    time.Duration
	Logger      *slog.Logger
	Emitter     Emitter
	ActivityLog *activitylog.Logger
	Now         func() time.Time
}

// Status describes the sampler for status queries.
type Status struct {
	Session    string        `json:"session"`
	Started    time.Time     `json:"started"`
	Interval   time.Duration `json:"interval"`
	Samples    uint64        `json:"samples"`
	Failures   uint64        `json:"failures"`
	LastSample time.Time     `json:"last_sample"`
	LastError  string        `json:"last_error,omitempty"`
	Visible    int           `json:"visible"`
	Candidates int           `json:"candidates"`
	Monitors   int           `json:"monitors"`
}

// Sampler enumerates windows on every tick, runs the occlusion sweep and
// publishes the resulting snapshot. Each tick runs to completion before
// the next one starts.
type Sampler struct {
	backend  platform.Backend
	emitter  Emitter
	activity *activitylog.Logger
	logger   *slog.Logger
	now      func() time.Time

	intervalCh chan time.Duration
	sampleMu   sync.Mutex

	mu     sync.RWMutex
	latest *occlusion.Snapshot
	status Status
}

func NewSampler(backend platform.Backend, cfg SamplerConfig) *Sampler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Sampler{
		backend:    backend,
		emitter:    cfg.Emitter,
		activity:   cfg.ActivityLog,
		logger:     logger,
		now:        now,
		intervalCh: make(chan time.Duration, 1),
		status: Status{
			Session:  uuid.NewString(),
			Started:  now(),
			Interval: interval,
		},
	}
}

// Run starts the sampling loop. Blocks until ctx is cancelled, then
// flushes the emitter.
func (s *Sampler) Run(ctx context.Context) error {
	interval := s.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("sampler started", "interval", interval, "session", s.status.Session)
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sampler stopped")
			return s.flush()
		case d := <-s.intervalCh:
			ticker.Reset(d)
			s.logger.Info("sample interval changed", "interval", d)
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// SetInterval changes the tick interval of a running sampler.
func (s *Sampler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.status.Interval = d
	s.mu.Unlock()

	select {
	case <-s.intervalCh:
	default:
	}
	s.intervalCh <- d
}

func (s *Sampler) Interval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.Interval
}

// Latest returns the most recent snapshot, or nil before the first
// successful sample. Callers must not modify it.
func (s *Sampler) Latest() *occlusion.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Sampler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// tick performs a single sample and never panics.
func (s *Sampler) tick(ctx context.Context) {
	defer func() {
		if err := recover(); err != nil {
			s.logger.Error("sampler panic recovered", "error", err)
			s.recordFailure(fmt.Errorf("panic: %v", err))
		}
	}()

	if _, err := s.SampleNow(ctx); err != nil {
		s.logger.Error("sampler: sample failed", "error", err)
	}
}

// SampleNow takes a sample immediately, publishes it and hands it to the
// emitter. Emitter errors are logged, not returned.
func (s *Sampler) SampleNow(ctx context.Context) (*occlusion.Snapshot, error) {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	start := time.Now()
	monitors, err := s.backend.Monitors()
	if err != nil {
		instrumentSampleError("monitors")
		err = fmt.Errorf("failed to enumerate monitors: %w", err)
		s.recordFailure(err)
		return nil, err
	}
	windows, err := s.backend.Windows()
	if err != nil {
		instrumentSampleError("windows")
		err = fmt.Errorf("failed to enumerate windows: %w", err)
		s.recordFailure(err)
		return nil, err
	}
	snap, err := occlusion.NewSnapshot(s.now(), windows, monitors)
	if err != nil {
		instrumentSampleError("compute")
		err = fmt.Errorf("failed to compute visibility: %w", err)
		s.recordFailure(err)
		return nil, err
	}
	visible := snap.VisibleCount()
	instrumentSample(start, len(windows), visible, len(monitors))

	s.mu.Lock()
	prev := s.latest
	s.latest = snap
	s.status.Samples++
	s.status.LastSample = snap.Taken
	s.status.LastError = ""
	s.status.Visible = visible
	s.status.Candidates = len(windows)
	s.status.Monitors = len(monitors)
	s.mu.Unlock()

	s.logger.Debug("sample taken", "windows", len(windows), "visible", visible, "monitors", len(monitors))
	s.activity.Record(prev, snap)

	if s.emitter != nil {
		if err := s.emitter.Emit(ctx, snap); err != nil {
			instrumentSampleError("emit")
			s.logger.Warn("sampler: failed to emit snapshot", "error", err)
		}
	}
	return snap, nil
}

func (s *Sampler) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Failures++
	s.status.LastError = err.Error()
}

func (s *Sampler) flush() error {
	if s.emitter == nil {
		return nil
	}
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	// The run context is already done; give the final heartbeat its own.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.emitter.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush heartbeat: %w", err)
	}
	return nil
}
