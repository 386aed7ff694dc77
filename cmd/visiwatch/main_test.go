package main

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/visiwatch/internal/occlusion"
)

const fixture = `{
  "monitors": [
    {"name": "eDP-1", "bounds": {"left": 0, "top": 0, "right": 1920, "bottom": 1080},
     "work_area": {"left": 0, "top": 0, "right": 1920, "bottom": 1040}}
  ],
  "windows": [
    {"handle": 1, "app": "firefox", "title": "News", "rect": {"left": 0, "top": 0, "right": 1920, "bottom": 1040}, "z_order": 0},
    {"handle": 2, "app": "xterm", "title": "shell", "rect": {"left": 100, "top": 100, "right": 600, "bottom": 400}, "z_order": 1},
    {"handle": 3, "app": "gimp", "title": "offscreen", "rect": {"left": 3000, "top": 0, "right": 3500, "bottom": 400}, "z_order": 2}
  ]
}`

func TestComputeFixture(t *testing.T) {
	taken := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap, err := computeFixture(strings.NewReader(fixture), taken, false)
	if err != nil {
		t.Fatalf("computeFixture: %v", err)
	}
	if !snap.Taken.Equal(taken) {
		t.Fatalf("taken = %v", snap.Taken)
	}
	if len(snap.Windows) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snap.Windows))
	}
	if got := snap.VisibleCount(); got != 1 {
		t.Fatalf("expected only the maximized window visible, got %d", got)
	}
	if v, ok := snap.Find(1); !ok || !v.Visible {
		t.Fatalf("window 1 should be visible: %+v", v)
	}
}

func TestComputeFixture_VisibleOnly(t *testing.T) {
	taken := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap, err := computeFixture(strings.NewReader(fixture), taken, true)
	if err != nil {
		t.Fatalf("computeFixture: %v", err)
	}
	if len(snap.Windows) != 1 || snap.Windows[0].Handle != 1 || !snap.Windows[0].Visible {
		t.Fatalf("expected only window 1, got %+v", snap.Windows)
	}
	if len(snap.Monitors) != 1 || !snap.Taken.Equal(taken) {
		t.Fatalf("monitors/taken not carried over: %+v", snap)
	}
}

func TestComputeFixture_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		is    error
	}{
		{"not json", "nope", nil},
		{"unknown field", `{"monitors": [], "windows": [], "extra": 1}`, nil},
		{"missing rect", `{"monitors": [], "windows": [{"handle": 1, "z_order": 0}]}`, nil},
		{"incomplete rect", `{"monitors": [], "windows": [{"handle": 1, "rect": {"left": 0, "top": 0}, "z_order": 0}]}`, occlusion.ErrInvalidInput},
		{"misspelled work area edge", `{"monitors": [{"work_area": {"left": 0, "top": 0, "rigth": 1920, "bottom": 1040}}], "windows": []}`, occlusion.ErrInvalidInput},
		{"negative z-order", `{"monitors": [], "windows": [{"handle": 1, "rect": {"left": 0, "top": 0, "right": 1, "bottom": 1}, "z_order": -1}]}`, occlusion.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := computeFixture(strings.NewReader(tt.input), time.Now(), false)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestWriteSnapshotTable(t *testing.T) {
	snap, err := computeFixture(strings.NewReader(fixture), time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), false)
	if err != nil {
		t.Fatalf("computeFixture: %v", err)
	}

	var buf bytes.Buffer
	writeSnapshotTable(&buf, snap)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header plus 3 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "visible: 1") {
		t.Fatalf("summary line = %q", lines[0])
	}
	if !strings.Contains(lines[2], "(0,0,1920,1040)") {
		t.Fatalf("visible row should carry its region: %q", lines[2])
	}
	if !strings.Contains(lines[3], "false") || !strings.Contains(lines[3], " - ") {
		t.Fatalf("hidden row should have no region: %q", lines[3])
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := slogLevel(in); got != want {
			t.Errorf("slogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
