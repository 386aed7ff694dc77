// Package runtimepath locates the per-user directory that holds the
// daemon's IPC socket.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	socketName  = "visiwatch.sock"
	overrideEnv = "VISIWATCH_RUNTIME_DIR"
)

// Dir returns the runtime directory, first match wins:
// $VISIWATCH_RUNTIME_DIR (created), $XDG_RUNTIME_DIR, /run/user/<uid>,
// and finally /tmp/visiwatch-runtime-<uid> (created).
func Dir() (string, error) {
	if dir := os.Getenv(overrideEnv); dir != "" {
		return ensure(dir)
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}

	uid := strconv.Itoa(os.Getuid())
	if dir := filepath.Join("/run/user", uid); isDir(dir) {
		return dir, nil
	}
	return ensure(filepath.Join(os.TempDir(), "visiwatch-runtime-"+uid))
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, socketName), nil
}

func ensure(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return dir, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
