package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/visiwatch/internal/daemon"
	"github.com/1broseidon/visiwatch/internal/geom"
	"github.com/1broseidon/visiwatch/internal/occlusion"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandGetMonitors CommandType = "GET_MONITORS"
	CommandGetSnapshot CommandType = "GET_SNAPSHOT"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	daemon.Status
	UptimeSeconds int64  `json:"uptime_seconds"`
	DaemonRunning bool   `json:"daemon_running"`
	ServerURL     string `json:"server_url,omitempty"`
	QueuePending  int    `json:"queue_pending"`
}

// MonitorInfo represents information about a single monitor
type MonitorInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	WorkArea Area   `json:"work_area"`
}

// Area is a rectangle in X/Y/width/height form.
type Area struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func areaOf(r geom.Rect) Area {
	x, y, w, h := r.XYWH()
	return Area{X: x, Y: y, Width: w, Height: h}
}

// MonitorsData represents the data returned by GET_MONITORS
type MonitorsData struct {
	Monitors []MonitorInfo `json:"monitors"`
}

func monitorsData(monitors []occlusion.Monitor) MonitorsData {
	infos := make([]MonitorInfo, len(monitors))
	for i, m := range monitors {
		bounds := areaOf(m.Bounds)
		infos[i] = MonitorInfo{
			ID:       i,
			Name:     m.Name,
			X:        bounds.X,
			Y:        bounds.Y,
			Width:    bounds.Width,
			Height:   bounds.Height,
			WorkArea: areaOf(m.WorkArea),
		}
	}
	return MonitorsData{Monitors: infos}
}

// SnapshotPayload is the optional payload of GET_SNAPSHOT.
type SnapshotPayload struct {
	VisibleOnly bool `json:"visible_only,omitempty"`
}

const (
	statusOK    = "OK"
	statusError = "ERROR"
)

// okResponse wraps data, which may be nil. A value that cannot be encoded
// turns into an error response.
func okResponse(data any) *Response {
	resp := &Response{Status: statusOK}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return errorResponse("failed to encode response: %v", err)
		}
		resp.Data = raw
	}
	return resp
}

func errorResponse(format string, args ...any) *Response {
	return &Response{Status: statusError, Error: fmt.Sprintf(format, args...)}
}
