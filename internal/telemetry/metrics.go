package telemetry

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cveorigin_resolutions_total",
			Help: "Repositories classified by resolution bucket",
		},
		[]string{"bucket"},
	)

	originsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cveorigin_origins_total",
			Help: "Fix commits by origin search outcome",
		},
		[]string{"status"},
	)

	fileSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cveorigin_blame_skips_total",
			Help: "Files skipped during blame tracing, by reason",
		},
		[]string{"reason"},
	)

	blameDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cveorigin_blame_duration_seconds",
			Help:    "Wall-clock time of a single blame query",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)

	nvdRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cveorigin_nvd_requests_total",
			Help: "NVD API requests by result",
		},
		[]string{"result"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cveorigin_errors_total",
			Help: "Per-unit errors by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(resolutionsTotal, originsTotal, fileSkipsTotal, blameDuration, nvdRequestsTotal, errorsTotal)
}

// TrackResolution counts a repository landing in bucket.
func TrackResolution(bucket string) {
	resolutionsTotal.WithLabelValues(bucket).Inc()
}

// TrackOrigin counts a finished fix commit.
func TrackOrigin(status string) {
	originsTotal.WithLabelValues(status).Inc()
}

// TrackFileSkip counts a file that contributed no blame lines.
func TrackFileSkip(reason string) {
	fileSkipsTotal.WithLabelValues(reason).Inc()
}

// ObserveBlameDuration records the latency of one blame query.
func ObserveBlameDuration(seconds float64) {
	blameDuration.Observe(seconds)
}

// TrackNVDRequest counts an NVD API call.
func TrackNVDRequest(result string) {
	nvdRequestsTotal.WithLabelValues(result).Inc()
}

// TrackError counts a per-unit error.
func TrackError(kind string) {
	errorsTotal.WithLabelValues(kind).Inc()
}

var (
	metricsMu      sync.Mutex
	metricsRunning bool
)

// StartMetricsServer serves Prometheus metrics on port. It blocks while serving and
// returns nil at once if a server is already running.
func StartMetricsServer(port int) error {
	metricsMu.Lock()
	if metricsRunning {
		metricsMu.Unlock()
		return nil
	}
	metricsRunning = true
	metricsMu.Unlock()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	slog.Info("starting metrics server", "addr", addr)
	err := http.ListenAndServe(addr, mux)

	metricsMu.Lock()
	metricsRunning = false
	metricsMu.Unlock()
	return err
}
