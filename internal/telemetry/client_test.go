package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	status   func(r *http.Request) int
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fs.mu.Lock()
		fs.requests = append(fs.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body,
		})
		status := http.StatusOK
		if fs.status != nil {
			status = fs.status(r)
		}
		fs.mu.Unlock()

		if r.URL.Path == "/api/0/info" {
			_, _ = w.Write([]byte(`{"hostname":"box","version":"v0.13.1","testing":true}`))
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) setStatus(f func(r *http.Request) int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.status = f
}

func (fs *fakeServer) recorded() []recordedRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]recordedRequest(nil), fs.requests...)
}

func TestClientCreateBucket(t *testing.T) {
	srv := newFakeServer(t)
	srv.setStatus(func(*http.Request) int { return http.StatusNotModified })
	c := NewClient(srv.URL+"/", nil)

	err := c.CreateBucket(context.Background(), Bucket{
		ID:       "aw-watcher-visible-windows_box",
		Client:   "visiwatch",
		Type:     "visible-windows",
		Hostname: "box",
	})
	require.NoError(t, err, "an existing bucket is not an error")

	reqs := srv.recorded()
	require.Len(t, reqs, 1)
	require.Equal(t, http.MethodPost, reqs[0].Method)
	require.Equal(t, "/api/0/buckets/aw-watcher-visible-windows_box", reqs[0].Path)
	require.JSONEq(t, `{"client":"visiwatch","type":"visible-windows","hostname":"box"}`, string(reqs[0].Body))
}

func TestClientHeartbeat(t *testing.T) {
	srv := newFakeServer(t)
	c := NewClient(srv.URL, nil)

	ev := hb(0, "a")
	ev.Duration = 3 * time.Second
	require.NoError(t, c.Heartbeat(context.Background(), "bucket", ev, 2*time.Second))

	reqs := srv.recorded()
	require.Len(t, reqs, 1)
	require.Equal(t, "/api/0/buckets/bucket/heartbeat", reqs[0].Path)
	require.Equal(t, "pulsetime=2", reqs[0].Query)

	var sent Event
	require.NoError(t, json.Unmarshal(reqs[0].Body, &sent))
	require.Equal(t, 3*time.Second, sent.Duration)
	require.Equal(t, "a", sent.Data.Windows[0].Title)
}

func TestClientStatusErrors(t *testing.T) {
	srv := newFakeServer(t)
	c := NewClient(srv.URL, nil)

	srv.setStatus(func(*http.Request) int { return http.StatusInternalServerError })
	err := c.Heartbeat(context.Background(), "bucket", hb(0), time.Second)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.True(t, statusErr.Retryable())

	srv.setStatus(func(*http.Request) int { return http.StatusBadRequest })
	err = c.Heartbeat(context.Background(), "bucket", hb(0), time.Second)
	require.ErrorAs(t, err, &statusErr)
	require.False(t, statusErr.Retryable())
}

func TestClientInfo(t *testing.T) {
	srv := newFakeServer(t)
	c := NewClient(srv.URL, nil)

	info, err := c.Info(context.Background())
	require.NoError(t, err)
	require.Equal(t, "box", info.Hostname)
	require.True(t, info.Testing)
}

func TestClientUnreachable(t *testing.T) {
	srv := newFakeServer(t)
	url := srv.URL
	srv.Close()

	err := NewClient(url, nil).Heartbeat(context.Background(), "bucket", hb(0), time.Second)
	require.Error(t, err)
	require.Equal(t, "transport", errorType(err))
}
