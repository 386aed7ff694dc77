package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const errTypeLabel = "error_type"

var (
	heartbeatsQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visiwatch_heartbeats_queued_total",
		Help: "The number of merged heartbeats queued for delivery.",
	})

	heartbeatsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visiwatch_heartbeats_sent_total",
		Help: "The number of heartbeats delivered to the server.",
	})

	heartbeatSendError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visiwatch_heartbeat_send_errors_total",
		Help: "The errors that occurred while delivering a heartbeat.",
	}, []string{
		errTypeLabel,
	})

	heartbeatSendLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "visiwatch_heartbeat_send_latency_seconds",
		Help: "The time to deliver a heartbeat.",
	})

	queueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "visiwatch_heartbeat_queue_length",
		Help: "The number of heartbeats waiting for delivery.",
	})
)

func instrumentSendLatency(start time.Time) {
	heartbeatSendLatency.Observe(time.Since(start).Seconds())
}

func instrumentSendError(err error) {
	heartbeatSendError.
		With(prometheus.Labels{
			errTypeLabel: errorType(err),
		}).
		Inc()
}

func errorType(err error) string {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		if statusErr.Retryable() {
			return "server"
		}
		return "rejected"
	default:
		return "transport"
	}
}
