package daemon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const stageLabel = "stage"

var (
	samplesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visiwatch_samples_total",
		Help: "The number of completed visibility samples.",
	})

	sampleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visiwatch_sample_errors_total",
		Help: "The errors that occurred while sampling.",
	}, []string{
		stageLabel,
	})

	sampleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "visiwatch_sample_latency_seconds",
		Help:    "The time to enumerate windows and compute visibility.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	candidateWindows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "visiwatch_candidate_windows",
		Help: "The number of windows considered in the last sample.",
	})

	visibleWindows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "visiwatch_visible_windows",
		Help: "The number of visible windows in the last sample.",
	})

	monitorCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "visiwatch_monitors",
		Help: "The number of monitors in the last sample.",
	})
)

func instrumentSample(start time.Time, candidates, visible, monitors int) {
	samplesTotal.Inc()
	sampleLatency.Observe(time.Since(start).Seconds())
	candidateWindows.Set(float64(candidates))
	visibleWindows.Set(float64(visible))
	monitorCount.Set(float64(monitors))
}

func instrumentSampleError(stage string) {
	sampleErrors.
		With(prometheus.Labels{stageLabel: stage}).
		Inc()
}
