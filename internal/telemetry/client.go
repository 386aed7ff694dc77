package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
)

const defaultRequestTimeout = 10 * time.Second

// StatusError is returned when the server answers with an unexpected status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

// Retryable reports whether sending the same request again may succeed.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

// Bucket describes the bucket heartbeats are written to.
type Bucket struct {
	ID       string `json:"-"`
	Client   string `json:"client"`
	Type     string `json:"type"`
	Hostname string `json:"hostname"`
}

// ServerInfo is the subset of /api/0/info used for status reporting.
type ServerInfo struct {
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
	Testing  bool   `json:"testing"`
	DeviceID string `json:"device_id"`
}

// Client talks to the ActivityWatch REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL. A nil httpClient
// uses one with a short timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateBucket creates the bucket. An already existing bucket is not an
// error.
func (c *Client) CreateBucket(ctx context.Context, b Bucket) error {
	path := "/api/0/buckets/" + url.PathEscape(b.ID)
	return c.post(ctx, path, b)
}

// Heartbeat sends one heartbeat; the server merges it into the bucket's
// last event when the data matches and it falls within pulse.
func (c *Client) Heartbeat(ctx context.Context, bucketID string, ev Event, pulse time.Duration) error {
	path := "/api/0/buckets/" + url.PathEscape(bucketID) + "/heartbeat?pulsetime=" +
		strconv.FormatFloat(pulse.Seconds(), 'f', -1, 64)
	return c.post(ctx, path, ev)
}

// Info fetches server information.
func (c *Client) Info(ctx context.Context) (ServerInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/0/info", nil)
	if err != nil {
		return ServerInfo{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ServerInfo{}, statusError(resp)
	}
	var info ServerInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return ServerInfo{}, fmt.Errorf("failed to decode server info: %w", err)
	}
	return info, nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	// 304 is how the server reports an existing bucket.
	if resp.StatusCode/100 == 2 || resp.StatusCode == http.StatusNotModified {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return statusError(resp)
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
