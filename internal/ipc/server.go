package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/visiwatch/internal/daemon"
	"github.com/1broseidon/visiwatch/internal/occlusion"
	"github.com/1broseidon/visiwatch/internal/runtimepath"
)

// SnapshotSource is the part of the sampler the server reads from.
type SnapshotSource interface {
	Latest() *occlusion.Snapshot
	Status() daemon.Status
}

// ServerConfig wires the server to the running daemon. Reload and Pending
// are optional.
type ServerConfig struct {
	SocketPath string
	Source     SnapshotSource
	Reload     func() error
	Pending    func(ctx context.Context) (int, error)
	ServerURL  string
	Logger     *slog.Logger
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	source       SnapshotSource
	reload       func() error
	pending      func(ctx context.Context) (int, error)
	serverURL    string
	logger       *slog.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. An empty SocketPath resolves to the
// per-user runtime socket.
func NewServer(cfg ServerConfig) (*Server, error) {
	socketPath := cfg.SocketPath
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("ipc server needs a snapshot source")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Remove a stale socket left by a previous run.
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		source:     cfg.Source,
		reload:     cfg.Reload,
		pending:    cfg.Pending,
		serverURL:  cfg.ServerURL,
		logger:     logger,
		startTime:  time.Now(),
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)
	go s.acceptLoop()
	return nil
}

// Serve starts the server and stops it when ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection serves one newline-terminated JSON request.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	var resp *Response
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		resp = errorResponse("invalid request: %v", err)
	} else {
		resp = s.handleCommand(&req)
	}

	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.logger.Warn("failed to send IPC response", "command", req.Command, "error", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetMonitors:
		return s.handleGetMonitors()
	case CommandGetSnapshot:
		return s.handleGetSnapshot(req.Payload)
	default:
		return errorResponse("unknown command: %s", req.Command)
	}
}

func (s *Server) handleReload() *Response {
	s.logger.Info("IPC: received RELOAD command")
	if s.reload == nil {
		return errorResponse("reload is not supported")
	}
	if err := s.reload(); err != nil {
		return errorResponse("failed to reload config: %v", err)
	}
	return okResponse(nil)
}

func (s *Server) handleGetStatus() *Response {
	status := StatusData{
		Status:        s.source.Status(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
		ServerURL:     s.serverURL,
	}
	if s.pending != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if n, err := s.pending(ctx); err == nil {
			status.QueuePending = n
		}
		cancel()
	}

	return okResponse(status)
}

func (s *Server) handleGetMonitors() *Response {
	snap := s.source.Latest()
	if snap == nil {
		return errorResponse("no snapshot taken yet")
	}

	return okResponse(monitorsData(snap.Monitors))
}

func (s *Server) handleGetSnapshot(payload json.RawMessage) *Response {
	var opts SnapshotPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &opts); err != nil {
			return errorResponse("invalid snapshot payload: %v", err)
		}
	}

	snap := s.source.Latest()
	if snap == nil {
		return errorResponse("no snapshot taken yet")
	}
	if opts.VisibleOnly {
		filtered := *snap
		filtered.Windows = snap.Visible()
		snap = &filtered
	}

	return okResponse(snap)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
