// Package tui renders visibility snapshots in the terminal: a one-shot
// ASCII map and a live bubbletea view fed by the daemon.
package tui

import (
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/visiwatch/internal/occlusion"
)

const (
	fallbackWidth  = 100
	fallbackHeight = 30
)

// TerminalSize returns the size of stdout, or a fixed fallback when it is
// not a terminal.
func TerminalSize() (int, int) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return fallbackWidth, fallbackHeight
	}
	w, h, err := term.GetSize(fd)
	if err != nil || w < 10 || h < 5 {
		return fallbackWidth, fallbackHeight
	}
	return w, h
}

// PrintSnapshot writes the map and legend of snap sized to the terminal.
func PrintSnapshot(out io.Writer, snap *occlusion.Snapshot) error {
	w, h := TerminalSize()
	_, err := io.WriteString(out, RenderStatic(snap, w, h-1))
	return err
}

// Watch runs the live view until the user quits.
func Watch(client SnapshotClient, interval time.Duration) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("watch requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	p := tea.NewProgram(newModel(client, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
