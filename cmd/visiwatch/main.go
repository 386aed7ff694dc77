package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/1broseidon/visiwatch/internal/config"
	"github.com/1broseidon/visiwatch/internal/ipc"
	"github.com/1broseidon/visiwatch/internal/occlusion"
	"github.com/1broseidon/visiwatch/internal/platform"
	"github.com/1broseidon/visiwatch/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "snapshot":
		os.Exit(runSnapshot(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "compute":
		os.Exit(runCompute(os.Args[2:]))
	case "view":
		os.Exit(runView(os.Args[2:]))
	case "watch":
		os.Exit(runWatch(os.Args[2:]))
	case "overlay":
		os.Exit(runOverlay(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: visiwatch <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Sample window visibility and send heartbeats (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  snapshot            Print the latest visibility snapshot")
	fmt.Fprintln(w, "  monitors            List monitors and work areas")
	fmt.Fprintln(w, "  compute FILE        Run the occlusion engine over a JSON fixture")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  view                Draw the latest snapshot as a terminal map")
	fmt.Fprintln(w, "  watch               Live terminal map, refreshed every second")
	fmt.Fprintln(w, "  overlay             Outline visible regions on screen")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config init         Write the default configuration file")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'visiwatch <command> --help' for command-specific options.")
}

// parseFlags parses args into fs. The returned code is meaningful only
// when ok is false.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func newLogger(level string, w io.Writer) (*slog.Logger, *slog.LevelVar) {
	lv := new(slog.LevelVar)
	lv.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})), lv
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print status as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: visiwatch status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(status)
	}
	fmt.Printf("daemon_running:  %v\n", status.DaemonRunning)
	fmt.Printf("session:         %s\n", status.Session)
	fmt.Printf("uptime_seconds:  %d\n", status.UptimeSeconds)
	fmt.Printf("interval:        %s\n", status.Interval)
	fmt.Printf("samples:         %d\n", status.Samples)
	fmt.Printf("failures:        %d\n", status.Failures)
	fmt.Printf("visible_windows: %d of %d\n", status.Visible, status.Candidates)
	fmt.Printf("monitors:        %d\n", status.Monitors)
	fmt.Printf("server:          %s\n", status.ServerURL)
	fmt.Printf("queue_pending:   %d\n", status.QueuePending)
	if !status.LastSample.IsZero() {
		fmt.Printf("last_sample:     %s\n", status.LastSample.Format(time.RFC3339))
	}
	if status.LastError != "" {
		fmt.Printf("last_error:      %s\n", status.LastError)
	}
	return 0
}

func runSnapshot(args []string) int {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print the snapshot as JSON")
	all := fs.Bool("all", false, "Include hidden windows")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: visiwatch snapshot [--json] [--all]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Print the daemon's latest visibility snapshot, front to back.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	snap, err := ipc.NewClient().GetSnapshot(!*all)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(snap)
	}
	writeSnapshotTable(os.Stdout, snap)
	return 0
}

func writeSnapshotTable(w io.Writer, snap *occlusion.Snapshot) {
	fmt.Fprintf(w, "taken: %s  visible: %d\n", snap.Taken.Format(time.RFC3339), snap.VisibleCount())
	fmt.Fprintf(w, "%-10s %-3s %-7s %-16s %-22s %s\n", "HANDLE", "Z", "VISIBLE", "APP", "REGION", "TITLE")
	for _, v := range snap.Windows {
		region := "-"
		if v.Visible {
			region = v.Region.String()
		}
		fmt.Fprintf(w, "0x%-8x %-3d %-7v %-16s %-22s %s\n", v.Handle, v.ZOrder, v.Visible, v.App, region, v.Title)
	}
}

func runMonitors(args []string) int {
	fs := flag.NewFlagSet("monitors", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print monitors as JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	data, err := ipc.NewClient().GetMonitors()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(data)
	}
	for _, m := range data.Monitors {
		fmt.Printf("%d  %-10s %dx%d+%d+%d  work area %dx%d+%d+%d\n",
			m.ID, m.Name, m.Width, m.Height, m.X, m.Y,
			m.WorkArea.Width, m.WorkArea.Height, m.WorkArea.X, m.WorkArea.Y)
	}
	return 0
}

func runCompute(args []string) int {
	fs := flag.NewFlagSet("compute", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	visibleOnly := fs.Bool("visible-only", false, "Only print visible windows")
	view := fs.Bool("view", false, "Draw the result as a terminal map instead of JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: visiwatch compute [--visible-only] [--view] FILE")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the occlusion engine over {\"monitors\":[...],\"windows\":[...]}.")
		fmt.Fprintln(os.Stderr, "Use - to read the fixture from stdin.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	var in io.Reader = os.Stdin
	if name := fs.Arg(0); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer f.Close()
		in = f
	}

	snap, err := computeFixture(in, time.Now(), *visibleOnly)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *view {
		if err := tui.PrintSnapshot(os.Stdout, snap); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	return printJSON(snap)
}

// computeFixture decodes a static backend from r and samples it once.
// With visibleOnly the snapshot holds only the visible windows.
func computeFixture(r io.Reader, taken time.Time, visibleOnly bool) (*occlusion.Snapshot, error) {
	var backend platform.Static
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&backend); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}

	monitors, err := backend.Monitors()
	if err != nil {
		return nil, err
	}
	windows, err := backend.Windows()
	if err != nil {
		return nil, err
	}
	if !visibleOnly {
		return occlusion.NewSnapshot(taken, windows, monitors)
	}
	visible, err := occlusion.ComputeVisibleOnly(windows, monitors)
	if err != nil {
		return nil, err
	}
	return &occlusion.Snapshot{Taken: taken, Monitors: monitors, Windows: visible}, nil
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}
