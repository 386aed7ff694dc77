package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/visiwatch/internal/activitylog"
	"github.com/1broseidon/visiwatch/internal/config"
	"github.com/1broseidon/visiwatch/internal/daemon"
	"github.com/1broseidon/visiwatch/internal/ipc"
	"github.com/1broseidon/visiwatch/internal/metrics"
	"github.com/1broseidon/visiwatch/internal/platform"
	"github.com/1broseidon/visiwatch/internal/telemetry"
)

const shutdownDrainTimeout = 5 * time.Second

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("config", "", "Config file path (default: ~/.config/visiwatch/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: visiwatch daemon [--config PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Sample visible windows in the foreground until interrupted.")
		fmt.Fprintln(os.Stderr, "SIGHUP or editing the config file reloads it.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config
	logger, level := newLogger(cfg.LogLevel, os.Stderr)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "files", res.Files, "interval", cfg.SampleInterval, "server", cfg.ServerURL())

	backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display)
	if err != nil {
		logger.Error("failed to connect to display", "error", err)
		return 1
	}
	defer backend.Disconnect()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open heartbeat queue", "error", err)
		return 1
	}
	defer store.Close()

	dispatcher := telemetry.NewDispatcher(telemetry.NewClient(cfg.ServerURL(), nil), store, telemetry.DispatcherConfig{
		Bucket: telemetry.Bucket{
			ID:       cfg.BucketID(),
			Client:   cfg.Server.ClientName,
			Type:     config.EventType,
			Hostname: cfg.Hostname(),
		},
		RetryInterval: cfg.Queue.RetryInterval,
		Logger:        logger,
	})
	heartbeater := telemetry.NewHeartbeater(dispatcher, cfg.PulseTime, cfg.CommitInterval)

	activity, err := activitylog.NewLogger(activitylog.Config{
		Enabled:   cfg.ActivityLog.Enabled,
		Level:     activitylog.ParseLogLevel(cfg.LogLevel),
		FilePath:  cfg.ActivityLogFile(),
		MaxSizeMB: cfg.ActivityLog.MaxSizeMB,
		MaxFiles:  cfg.ActivityLog.MaxFiles,
	})
	if err != nil {
		logger.Warn("activity log disabled", "error", err)
		activity = nil
	}
	defer activity.Close()

	sampler := daemon.NewSampler(backend, daemon.SamplerConfig{
		Interval:    cfg.SampleInterval,
		Logger:      logger,
		Emitter:     heartbeater,
		ActivityLog: activity,
	})

	r := &reloader{path: *path, sampler: sampler, level: level, logger: logger, current: cfg}

	ipcServer, err := ipc.NewServer(ipc.ServerConfig{
		Source:    sampler,
		Reload:    r.reload,
		Pending:   dispatcher.Pending,
		ServerURL: cfg.ServerURL(),
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to create IPC server", "error", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ipcServer.Serve(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return sampler.Run(gctx) })
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return metrics.ListenAndServe(gctx, metrics.NewServer(cfg.Metrics.Addr), logger)
		})
	}

	changed := make(chan struct{}, 1)
	if watchPath := r.watchPath(); watchPath != "" {
		g.Go(func() error {
			if err := config.Watch(gctx, watchPath, changed, logger); err != nil {
				logger.Warn("config file watching disabled", "error", err)
			}
			return nil
		})
	}
	g.Go(func() error { return r.loop(gctx, changed) })

	logger.Info("visiwatch daemon started", "bucket", cfg.BucketID(), "session", sampler.Status().Session)
	waitErr := g.Wait()

	// The sampler flushed its last heartbeat after the dispatcher stopped.
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownDrainTimeout)
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		logger.Warn("final heartbeat delivery failed", "error", err)
	}
	cancel()

	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		logger.Error("daemon stopped with error", "error", waitErr)
		return 1
	}
	logger.Info("visiwatch daemon stopped")
	return 0
}

func openStore(ctx context.Context, cfg *config.Config) (telemetry.Store, error) {
	if !cfg.Queue.Enabled {
		return telemetry.NewMemoryStore(), nil
	}
	return telemetry.OpenSQLiteStore(ctx, cfg.QueuePath())
}

// reloader re-reads the configuration on SIGHUP, on IPC RELOAD and when
// the file changes. The sample interval and log level apply immediately;
// server, queue and display settings need a restart.
type reloader struct {
	path    string
	sampler *daemon.Sampler
	level   *slog.LevelVar
	logger  *slog.Logger

	mu      sync.Mutex
	current *config.Config
}

func (r *reloader) watchPath() string {
	path := r.path
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return ""
		}
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return ""
	}
	return path
}

func (r *reloader) reload() error {
	res, err := loadConfig(r.path)
	if err != nil {
		r.logger.Warn("config reload failed", "error", err)
		return err
	}
	next := res.Config

	r.mu.Lock()
	prev := r.current
	r.current = next
	r.mu.Unlock()

	r.level.Set(slogLevel(next.LogLevel))
	r.sampler.SetInterval(next.SampleInterval)

	if prev.ServerURL() != next.ServerURL() || prev.BucketID() != next.BucketID() ||
		prev.Queue != next.Queue || prev.Display != next.Display ||
		prev.PulseTime != next.PulseTime || prev.CommitInterval != next.CommitInterval {
		r.logger.Warn("some changed settings take effect after a restart")
	}
	r.logger.Info("config reloaded", "interval", next.SampleInterval, "log_level", next.LogLevel)
	return nil
}

func (r *reloader) loop(ctx context.Context, changed <-chan struct{}) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			r.logger.Info("received SIGHUP, reloading config")
			r.reload()
		case <-changed:
			r.logger.Info("config file changed, reloading")
			r.reload()
		}
	}
}
