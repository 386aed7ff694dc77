package mcp

import (
	"context"
	"errors"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/visiwatch/internal/occlusion"
)

const (
	ServerName    = "visiwatch"
	ServerVersion = "0.1.0"
)

// SnapshotFunc returns the most recent visibility snapshot. Implementations
// usually ask the running daemon over IPC.
type SnapshotFunc func() (*occlusion.Snapshot, error)

// Server exposes window visibility to MCP clients.
type Server struct {
	mcpServer *mcpsdk.Server
	fetch     SnapshotFunc
	logger    *slog.Logger
}

// NewServer creates an MCP server that answers from fetch.
func NewServer(fetch SnapshotFunc, logger *slog.Logger) (*Server, error) {
	if fetch == nil {
		return nil, errors.New("snapshot source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		fetch:  fetch,
		logger: logger,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_visible_windows",
		Description: "List the windows a person could currently see on any monitor, front to back, with the bounding box of each window's uncovered part. Pass include_hidden to also list covered and off-screen windows.",
	}, s.handleGetVisibleWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_monitors",
		Description: "List the monitors of the last sample with their full bounds and usable work area (bounds minus docks and panels).",
	}, s.handleGetMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_window_visibility",
		Description: "Look up specific windows by handle, application name or title substring and report whether each is visible and which part of it is uncovered.",
	}, s.handleGetWindowVisibility)
}
