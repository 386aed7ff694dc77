package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/visiwatch/internal/occlusion"
)

func (s *Server) snapshot() (*occlusion.Snapshot, error) {
	snap, err := s.fetch()
	if err != nil {
		s.logger.Warn("mcp snapshot fetch failed", "error", err)
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if snap == nil {
		return nil, errors.New("no snapshot taken yet")
	}
	return snap, nil
}

func (s *Server) handleGetVisibleWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args GetVisibleWindowsInput) (*mcpsdk.CallToolResult, GetVisibleWindowsOutput, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, GetVisibleWindowsOutput{}, err
	}

	out := GetVisibleWindowsOutput{
		Taken:        snap.Taken.Format(time.RFC3339Nano),
		VisibleCount: snap.VisibleCount(),
		Windows:      []WindowInfo{},
	}
	for _, v := range frontToBack(snap.Windows) {
		if !v.Visible && !args.IncludeHidden {
			continue
		}
		out.Windows = append(out.Windows, windowInfo(v))
	}
	s.logger.Debug("mcp get_visible_windows", "visible", out.VisibleCount, "returned", len(out.Windows))
	return nil, out, nil
}

func (s *Server) handleGetMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetMonitorsInput) (*mcpsdk.CallToolResult, GetMonitorsOutput, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, GetMonitorsOutput{}, err
	}

	out := GetMonitorsOutput{Monitors: make([]MonitorInfo, 0, len(snap.Monitors))}
	for _, m := range snap.Monitors {
		out.Monitors = append(out.Monitors, monitorInfo(m))
	}
	return nil, out, nil
}

func (s *Server) handleGetWindowVisibility(_ context.Context, _ *mcpsdk.CallToolRequest, args GetWindowVisibilityInput) (*mcpsdk.CallToolResult, GetWindowVisibilityOutput, error) {
	app := strings.TrimSpace(args.App)
	title := strings.ToLower(strings.TrimSpace(args.Title))
	if args.Handle == 0 && app == "" && title == "" {
		return nil, GetWindowVisibilityOutput{}, errors.New("one of handle, app or title is required")
	}

	snap, err := s.snapshot()
	if err != nil {
		return nil, GetWindowVisibilityOutput{}, err
	}

	out := GetWindowVisibilityOutput{
		Taken:   snap.Taken.Format(time.RFC3339Nano),
		Windows: []WindowInfo{},
	}
	for _, v := range frontToBack(snap.Windows) {
		if args.Handle != 0 && v.Handle != args.Handle {
			continue
		}
		if app != "" && !strings.EqualFold(v.App, app) {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(v.Title), title) {
			continue
		}
		out.Windows = append(out.Windows, windowInfo(v))
	}
	if len(out.Windows) == 0 {
		return nil, GetWindowVisibilityOutput{}, errors.New("no window matches the given filters")
	}
	return nil, out, nil
}

// frontToBack orders snapshot entries by z-order without touching the
// snapshot itself.
func frontToBack(windows []occlusion.Visibility) []occlusion.Visibility {
	out := append([]occlusion.Visibility(nil), windows...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZOrder < out[j].ZOrder
	})
	return out
}
