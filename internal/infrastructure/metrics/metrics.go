package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Queue metrics
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediabot_jobs_total",
			Help: "Total number of jobs by terminal state",
		},
		[]string{"state"},
	)

	JobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediabot_jobs_running",
			Help: "Number of jobs currently being processed",
		},
	)

	JobsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediabot_jobs_pending",
			Help: "Number of admitted jobs waiting for a worker",
		},
	)

	TranscodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediabot_transcode_duration_seconds",
			Help:    "Wall time of external transcode invocations",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)
)

// Asset store metrics
var (
	AssetBytesStaged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediabot_asset_bytes_staged_total",
			Help: "Total bytes written into the temporary asset store",
		},
	)

	SweepReclaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediabot_sweep_reclaimed_total",
			Help: "Assets reclaimed by the TTL sweep instead of normal release",
		},
	)
)

// InitializeMetrics pre-populates label combinations so every metric is
// exported from the first scrape.
func InitializeMetrics() {
	for _, state := range []string{"succeeded", "failed", "timed_out", "rejected"} {
		JobsTotal.WithLabelValues(state)
	}
	for _, op := range []string{"voice_to_wav", "extract_audio", "video_to_mp4", "thumbnail"} {
		TranscodeDuration.WithLabelValues(op)
	}
}
