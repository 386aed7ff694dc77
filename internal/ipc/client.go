package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/visiwatch/internal/occlusion"
	"github.com/1broseidon/visiwatch/internal/runtimepath"
)

const defaultClientTimeout = 5 * time.Second

// Client talks to a running daemon. Every call opens its own connection.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient returns a client for the per-user daemon socket. A socket
// path that cannot be resolved shows up as a connection error on first
// use.
func NewClient() *Client {
	socketPath, _ := runtimepath.SocketPath()
	return NewClientWithSocket(socketPath)
}

func NewClientWithSocket(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: defaultClientTimeout}
}

// roundTrip sends one request line and reads one response line.
func (c *Client) roundTrip(req Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", req.Command, err)
	}
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", req.Command, err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", req.Command, err)
	}
	if resp.Status == statusError {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// call issues command and decodes the response data into a new T.
func call[T any](c *Client, command CommandType, payload any) (*T, error) {
	req := Request{Command: command}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = raw
	}

	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if len(resp.Data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return nil, fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return out, nil
}

// Reload asks the daemon to re-read its configuration.
func (c *Client) Reload() error {
	_, err := c.roundTrip(Request{Command: CommandReload})
	return err
}

func (c *Client) GetStatus() (*StatusData, error) {
	return call[StatusData](c, CommandGetStatus, nil)
}

// GetMonitors returns the monitors of the latest sample.
func (c *Client) GetMonitors() (*MonitorsData, error) {
	return call[MonitorsData](c, CommandGetMonitors, nil)
}

// GetSnapshot returns the latest visibility snapshot, optionally reduced
// to the visible windows.
func (c *Client) GetSnapshot(visibleOnly bool) (*occlusion.Snapshot, error) {
	return call[occlusion.Snapshot](c, CommandGetSnapshot, SnapshotPayload{VisibleOnly: visibleOnly})
}

// Ping reports whether the daemon answers.
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
