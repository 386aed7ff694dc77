package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/visiwatch/internal/ipc"
	"github.com/1broseidon/visiwatch/internal/occlusion"
	"github.com/1broseidon/visiwatch/internal/overlay"
	"github.com/1broseidon/visiwatch/internal/tui"
	"github.com/1broseidon/visiwatch/internal/x11"
)

func runView(args []string) int {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: visiwatch view")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Draw monitors, work areas and visible regions of the latest snapshot.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	snap, err := ipc.NewClient().GetSnapshot(false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := tui.PrintSnapshot(os.Stdout, snap); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	interval := fs.Duration("interval", tui.DefaultRefresh, "Refresh interval")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: visiwatch watch [--interval 1s]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Live map of the daemon's snapshots.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  p, Space  Pause/resume")
		fmt.Fprintln(os.Stderr, "  r         Refresh now")
		fmt.Fprintln(os.Stderr, "  q, Esc    Quit")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if err := tui.Watch(ipc.NewClient(), *interval); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runOverlay(args []string) int {
	fs := flag.NewFlagSet("overlay", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	interval := fs.Duration("interval", time.Second, "Redraw interval")
	display := fs.String("display", "", "X display (default: $DISPLAY)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: visiwatch overlay [--interval 1s] [--display :0]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Outline every visible region on screen with its window title.")
		fmt.Fprintln(os.Stderr, "Requires a running daemon. Interrupt to remove the overlay.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	conn, err := x11.NewConnection(*display)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, _ := newLogger("info", os.Stderr)
	client := ipc.NewClient()
	fetch := func() (*occlusion.Snapshot, error) { return client.GetSnapshot(true) }
	if err := overlay.Run(ctx, conn, fetch, *interval, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
