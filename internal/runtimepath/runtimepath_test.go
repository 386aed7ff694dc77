package runtimepath

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestDir(t *testing.T) {
	override := filepath.Join(t.TempDir(), "rt")
	xdg := t.TempDir()

	tests := []struct {
		name     string
		override string
		xdg      string
		want     string
	}{
		{"override wins and is created", override, xdg, override},
		{"xdg runtime dir", "", xdg, xdg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(overrideEnv, tt.override)
			t.Setenv("XDG_RUNTIME_DIR", tt.xdg)

			got, err := Dir()
			if err != nil {
				t.Fatalf("Dir() error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Dir() = %q, want %q", got, tt.want)
			}
			if !isDir(got) {
				t.Fatalf("%s is not a directory", got)
			}
		})
	}
}

func TestDir_Fallback(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(overrideEnv, "")
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("TMPDIR", tmp)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}

	uid := strconv.Itoa(os.Getuid())
	wantRun := filepath.Join("/run/user", uid)
	wantTmp := filepath.Join(tmp, "visiwatch-runtime-"+uid)
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestSocketPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(overrideEnv, "")
	t.Setenv("XDG_RUNTIME_DIR", dir)

	socket, err := SocketPath()
	if err != nil {
		t.Fatalf("SocketPath() error: %v", err)
	}
	if socket != filepath.Join(dir, socketName) {
		t.Fatalf("SocketPath() = %q", socket)
	}
}
