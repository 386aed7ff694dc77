// Package activitylog writes a rotating, human-readable log of window
// visibility transitions observed by the sampler.
package activitylog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogLevel defines the logging verbosity.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Action is the kind of transition being logged.
type Action string

const (
	ActionShown    Action = "SHOWN"
	ActionHidden   Action = "HIDDEN"
	ActionGone     Action = "GONE"
	ActionResized  Action = "REGION"
	ActionMonitors Action = "MONITORS"
)

func actionLevel(action Action) LogLevel {
	switch action {
	case ActionResized:
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Config holds configuration for the activity logger.
type Config struct {
	Enabled   bool
	Level     LogLevel
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
}

// Logger appends transitions to a file, rotating it once it grows past
// MaxSizeMB. A nil or disabled Logger discards everything.
type Logger struct {
	mu          sync.Mutex
	file        *os.File
	config      Config
	currentSize int64
	now         func() time.Time
}

func NewLogger(cfg Config) (*Logger, error) {
	if !cfg.Enabled {
		return &Logger{config: cfg, now: time.Now}, nil
	}
	if cfg.MaxFiles < 1 {
		cfg.MaxFiles = 1
	}

	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	// Window titles can be private.
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", cfg.FilePath, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &Logger{
		file:        f,
		config:      cfg,
		currentSize: stat.Size(),
		now:         time.Now,
	}, nil
}

// Enabled reports whether entries are written anywhere.
func (l *Logger) Enabled() bool {
	return l != nil && l.config.Enabled
}

// Log records one action. Details are written in key order.
func (l *Logger) Log(action Action, details map[string]any) {
	if !l.Enabled() || actionLevel(action) < l.config.Level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}

	if l.full() {
		if err := l.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "activity log rotation failed: %v\n", err)
			return
		}
	}

	n, err := io.WriteString(l.file, formatEntry(l.now(), action, details))
	l.currentSize += int64(n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write activity log entry: %v\n", err)
	}
}

func (l *Logger) full() bool {
	limit := int64(l.config.MaxSizeMB) << 20
	return limit > 0 && l.currentSize >= limit
}

// formatEntry renders one line: timestamp, [ACTION], then key=value pairs
// sorted by key with strings quoted.
func formatEntry(ts time.Time, action Action, details map[string]any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s]", ts.Format("2006-01-02 15:04:05.000"), action)
	for _, k := range slices.Sorted(maps.Keys(details)) {
		if s, ok := details[k].(string); ok {
			fmt.Fprintf(&sb, " %s=%q", k, s)
			continue
		}
		fmt.Fprintf(&sb, " %s=%v", k, details[k])
	}
	sb.WriteByte('\n')
	return sb.String()
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// rotate shifts visibility.log.N to .N+1, dropping the oldest, and starts
// a fresh file. With MaxFiles=3 the files .1 to .3 are kept.
func (l *Logger) rotate() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	base := l.config.FilePath
	backup := func(i int) string { return base + "." + strconv.Itoa(i) }

	os.Remove(backup(l.config.MaxFiles))
	for i := l.config.MaxFiles - 1; i >= 1; i-- {
		os.Rename(backup(i), backup(i+1))
	}
	if err := os.Rename(base, backup(1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	f, err := os.OpenFile(base, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open new log file: %w", err)
	}
	l.file = f
	l.currentSize = 0
	return nil
}

// ParseLogLevel converts a string to LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
