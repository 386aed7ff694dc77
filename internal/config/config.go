package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSampleInterval = 500 * time.Millisecond
	DefaultPulseTime      = 2 * time.Second
	DefaultCommitInterval = 4 * time.Second
	DefaultRetryInterval  = 5 * time.Second

	DefaultServerURL        = "http://localhost:5600"
	DefaultTestingServerURL = "http://localhost:5666"
	DefaultClientName       = "visiwatch"
	DefaultBucketPrefix     = "aw-watcher-visible-windows"
	EventType               = "visible-windows"
)

// ServerConfig describes the ActivityWatch server heartbeats are sent to.
type ServerConfig struct {
	URL          string `yaml:"url"`
	Testing      bool   `yaml:"testing"`
	ClientName   string `yaml:"client_name"`
	BucketPrefix string `yaml:"bucket_prefix"`
	Hostname     string `yaml:"hostname"`
}

// QueueConfig controls the on-disk heartbeat queue.
type QueueConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Path          string        `yaml:"path"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// ActivityLogConfig controls the visibility transition log.
type ActivityLogConfig struct {
	Enabled   bool   `yaml:"enabled"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

type Config struct {
	SampleInterval time.Duration     `yaml:"sample_interval"`
	PulseTime      time.Duration     `yaml:"pulse_time"`
	CommitInterval time.Duration     `yaml:"commit_interval"`
	LogLevel       string            `yaml:"log_level"`
	Display        string            `yaml:"display"`
	Server         ServerConfig      `yaml:"server"`
	Queue          QueueConfig       `yaml:"queue"`
	Metrics        MetricsConfig     `yaml:"metrics"`
	ActivityLog    ActivityLogConfig `yaml:"activity_log"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		SampleInterval: DefaultSampleInterval,
		PulseTime:      DefaultPulseTime,
		CommitInterval: DefaultCommitInterval,
		LogLevel:       "info",
		Server: ServerConfig{
			ClientName:   DefaultClientName,
			BucketPrefix: DefaultBucketPrefix,
		},
		Queue: QueueConfig{
			Enabled:       true,
			RetryInterval: DefaultRetryInterval,
		},
		ActivityLog: ActivityLogConfig{
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// ServerURL returns the configured server URL, falling back to the
// ActivityWatch default port for the selected mode.
func (c *Config) ServerURL() string {
	if u := strings.TrimRight(strings.TrimSpace(c.Server.URL), "/"); u != "" {
		return u
	}
	if c.Server.Testing {
		return DefaultTestingServerURL
	}
	return DefaultServerURL
}

// Hostname returns the configured hostname or the machine's own.
func (c *Config) Hostname() string {
	if h := strings.TrimSpace(c.Server.Hostname); h != "" {
		return h
	}
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}

// BucketID returns "<prefix>_<hostname>".
func (c *Config) BucketID() string {
	return c.Server.BucketPrefix + "_" + c.Hostname()
}

// QueuePath returns the queue database path with defaults applied.
func (c *Config) QueuePath() string {
	if c.Queue.Path != "" {
		return expandHome(c.Queue.Path)
	}
	return filepath.Join(dataDir(), "queue.db")
}

// ActivityLogFile returns the activity log path with defaults applied.
func (c *Config) ActivityLogFile() string {
	if c.ActivityLog.File != "" {
		return expandHome(c.ActivityLog.File)
	}
	return filepath.Join(dataDir(), "visibility.log")
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "visiwatch")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.Getenv("HOME")
	}
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "visiwatch")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// Validate checks that the effective configuration is usable.
func (c *Config) Validate() error {
	if c.SampleInterval <= 0 {
		return &ValidationError{Path: "sample_interval", Err: fmt.Errorf("sample_interval must be > 0")}
	}
	if c.PulseTime <= 0 {
		return &ValidationError{Path: "pulse_time", Err: fmt.Errorf("pulse_time must be > 0")}
	}
	if c.CommitInterval <= 0 {
		return &ValidationError{Path: "commit_interval", Err: fmt.Errorf("commit_interval must be > 0")}
	}
	if c.CommitInterval < c.SampleInterval {
		return &ValidationError{Path: "commit_interval", Err: fmt.Errorf("commit_interval must be >= sample_interval (%s)", c.SampleInterval)}
	}
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if strings.TrimSpace(c.Server.ClientName) == "" {
		return &ValidationError{Path: "server.client_name", Err: fmt.Errorf("client_name must not be empty")}
	}
	if strings.TrimSpace(c.Server.BucketPrefix) == "" {
		return &ValidationError{Path: "server.bucket_prefix", Err: fmt.Errorf("bucket_prefix must not be empty")}
	}
	if c.Server.URL != "" && !strings.HasPrefix(c.Server.URL, "http://") && !strings.HasPrefix(c.Server.URL, "https://") {
		return &ValidationError{Path: "server.url", Err: fmt.Errorf("url must start with http:// or https://")}
	}
	if c.Queue.RetryInterval <= 0 {
		return &ValidationError{Path: "queue.retry_interval", Err: fmt.Errorf("retry_interval must be > 0")}
	}
	if c.ActivityLog.Enabled {
		if c.ActivityLog.MaxSizeMB < 1 {
			return &ValidationError{Path: "activity_log.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 1")}
		}
		if c.ActivityLog.MaxFiles < 1 {
			return &ValidationError{Path: "activity_log.max_files", Err: fmt.Errorf("max_files must be >= 1")}
		}
	}
	return nil
}

// Marshal renders the effective configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to path. An existing file
// is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		exists, err := pathExists(path)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := DefaultConfig().Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
