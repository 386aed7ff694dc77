package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.SampleInterval != 500*time.Millisecond || cfg.PulseTime != 2*time.Second {
		t.Fatalf("unexpected default intervals: %s / %s", cfg.SampleInterval, cfg.PulseTime)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.CommitInterval != DefaultCommitInterval {
		t.Fatalf("expected default commit interval, got %s", res.Config.CommitInterval)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.LogLevel != "info" {
		t.Fatalf("expected log_level info, got %q", res.Config.LogLevel)
	}
}

func TestLoadFromPath_OverridesAndNestedSections(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", strings.Join([]string{
		"sample_interval: 250ms",
		"pulse_time: 3s",
		"log_level: debug",
		"server:",
		"  testing: true",
		"  hostname: box",
		"queue:",
		"  enabled: false",
		"metrics:",
		"  addr: 127.0.0.1:9465",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.SampleInterval != 250*time.Millisecond {
		t.Fatalf("sample_interval = %s", cfg.SampleInterval)
	}
	if cfg.PulseTime != 3*time.Second {
		t.Fatalf("pulse_time = %s", cfg.PulseTime)
	}
	if cfg.Queue.Enabled {
		t.Fatal("expected queue to be disabled")
	}
	if cfg.Queue.RetryInterval != DefaultRetryInterval {
		t.Fatalf("unset queue field lost its default: %s", cfg.Queue.RetryInterval)
	}
	if got := cfg.ServerURL(); got != DefaultTestingServerURL {
		t.Fatalf("ServerURL = %q, want %q", got, DefaultTestingServerURL)
	}
	if got := cfg.BucketID(); got != "aw-watcher-visible-windows_box" {
		t.Fatalf("BucketID = %q", got)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9465" {
		t.Fatalf("metrics.addr = %q", cfg.Metrics.Addr)
	}
	if src := res.Sources["server.testing"]; src.Kind != SourceFile || src.Line != 5 {
		t.Fatalf("unexpected source for server.testing: %+v", src)
	}
}

func TestLoadFromPath_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "sleep_time: 1s\n")

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestLoadFromPath_ValidationErrorCarriesSource(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "sample_interval: 5s\ncommit_interval: 1s\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "commit_interval" {
		t.Fatalf("path = %q", verr.Path)
	}
	if !strings.Contains(err.Error(), "config.yaml:2:") {
		t.Fatalf("expected file position in %q", err.Error())
	}
}

func TestLoadFromPath_Include(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "server.yaml", "server:\n  url: http://aw.local:5600\n  client_name: from-include\n")
	path := writeConfig(t, dir, "config.yaml", "include: server.yaml\nserver:\n  client_name: from-main\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.ServerURL() != "http://aw.local:5600" {
		t.Fatalf("include not applied: %q", res.Config.ServerURL())
	}
	if res.Config.Server.ClientName != "from-main" {
		t.Fatalf("main file should override include, got %q", res.Config.Server.ClientName)
	}
	if len(res.Files) != 2 {
		t.Fatalf("expected 2 loaded files, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "include: b.yaml\n")
	writeConfig(t, dir, "b.yaml", "include: a.yaml\n")

	_, err := LoadFromPath(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"zero sample", func(c *Config) { c.SampleInterval = 0 }, "sample_interval"},
		{"zero pulse", func(c *Config) { c.PulseTime = 0 }, "pulse_time"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"empty prefix", func(c *Config) { c.Server.BucketPrefix = " " }, "server.bucket_prefix"},
		{"bad url", func(c *Config) { c.Server.URL = "localhost:5600" }, "server.url"},
		{"zero retry", func(c *Config) { c.Queue.RetryInterval = 0 }, "queue.retry_interval"},
		{"activity log files", func(c *Config) {
			c.ActivityLog.Enabled = true
			c.ActivityLog.MaxFiles = 0
		}, "activity_log.max_files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("path = %q, want %q", verr.Path, tt.path)
			}
		})
	}
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if err := WriteDefault(path, false); err == nil {
		t.Fatal("expected second WriteDefault without force to fail")
	}
	if err := WriteDefault(path, true); err != nil {
		t.Fatalf("forced WriteDefault: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load written defaults: %v", err)
	}
	if res.Config.SampleInterval != DefaultSampleInterval || res.Config.Server.BucketPrefix != DefaultBucketPrefix {
		t.Fatalf("defaults did not round-trip: %+v", res.Config)
	}
}

func TestExplain(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "server:\n  hostname: box\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	value, src, err := Explain(res, "server.hostname")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if value != "box" || src.Kind != SourceFile {
		t.Fatalf("got %v from %+v", value, src)
	}

	_, src, err = Explain(res, "log_level")
	if err != nil || src.Kind != SourceDefault {
		t.Fatalf("expected default source, got %+v, %v", src, err)
	}

	if _, _, err := Explain(res, "server.nope"); err == nil {
		t.Fatal("expected unknown path error")
	}
}

func TestPathsHonourXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath: %v", err)
	}
	if path != filepath.Join(dir, "cfg", "visiwatch", "config.yaml") {
		t.Fatalf("config path = %q", path)
	}
	cfg := DefaultConfig()
	if got := cfg.QueuePath(); got != filepath.Join(dir, "data", "visiwatch", "queue.db") {
		t.Fatalf("queue path = %q", got)
	}
}

func TestWatch_SignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "log_level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, changed, nil) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "other.yaml", "ignored: true\n")
	writeConfig(t, dir, "config.yaml", "log_level: debug\n")

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change notification")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
}
