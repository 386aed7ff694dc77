// Package metrics exposes the process's Prometheus collectors over HTTP.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves /metrics from the given gatherer and a trivial /health.
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// NewServer returns an HTTP server for the default registry on addr.
func NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           Handler(prometheus.DefaultGatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ListenAndServe runs s until ctx is done, then shuts it down.
func ListenAndServe(ctx context.Context, s *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return serve(ctx, s, ln, logger)
}

func serve(ctx context.Context, s *http.Server, ln net.Listener, logger *slog.Logger) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down the metrics server failed", "addr", ln.Addr().String(), "error", err)
		}
	}()

	logger.Info("starting metrics server", "addr", ln.Addr().String())
	err := s.Serve(ln)
	switch {
	case err == nil, errors.Is(err, http.ErrServerClosed), errors.Is(err, context.Canceled):
		logger.Info("stopping metrics server", "addr", ln.Addr().String())
		return nil
	default:
		return err
	}
}
