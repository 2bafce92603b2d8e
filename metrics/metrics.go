package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Backend holds the alert backend's counters.
type Backend struct {
	AlertsReceived   atomic.Uint64
	AlertsRejected   atomic.Uint64
	AlertsDegraded   atomic.Uint64
	ImagesStored     atomic.Uint64
	ImageStoreErrors atomic.Uint64
	LatestQueries    atomic.Uint64
	AlertsPruned     atomic.Uint64

	registry *prometheus.Registry
}

// NewBackend creates backend metrics on a private registry.
func NewBackend() *Backend {
	m := &Backend{registry: prometheus.NewRegistry()}

	m.registry.MustRegister(counterFunc("safewatch_alerts_received_total", "Alerts accepted by POST /alert", &m.AlertsReceived))
	m.registry.MustRegister(counterFunc("safewatch_alerts_rejected_total", "Alert submissions rejected as malformed", &m.AlertsRejected))
	m.registry.MustRegister(counterFunc("safewatch_alerts_degraded_total", "Alerts answered with status degraded", &m.AlertsDegraded))
	m.registry.MustRegister(counterFunc("safewatch_images_stored_total", "Alert images written to the image store", &m.ImagesStored))
	m.registry.MustRegister(counterFunc("safewatch_image_store_errors_total", "Alert image writes that failed", &m.ImageStoreErrors))
	m.registry.MustRegister(counterFunc("safewatch_latest_queries_total", "Reads of the latest alerts", &m.LatestQueries))
	m.registry.MustRegister(counterFunc("safewatch_alerts_pruned_total", "Alerts removed by retention", &m.AlertsPruned))

	return m
}

// Handler returns the Prometheus HTTP handler
func (m *Backend) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Client holds the camera client's counters.
type Client struct {
	FramesRead       atomic.Uint64
	FramesDetected   atomic.Uint64
	FacesDetected    atomic.Uint64
	AlertsRaised     atomic.Uint64
	AlertsSuppressed atomic.Uint64
	UploadsSent      atomic.Uint64
	UploadsFailed    atomic.Uint64
	UploadsDropped   atomic.Uint64

	DetectLatencyMs atomic.Uint64
	UploadLatencyMs atomic.Uint64

	registry *prometheus.Registry
}

// NewClient creates camera client metrics on a private registry.
func NewClient() *Client {
	m := &Client{registry: prometheus.NewRegistry()}

	m.registry.MustRegister(counterFunc("safewatch_frames_read_total", "Frames read from the camera", &m.FramesRead))
	m.registry.MustRegister(counterFunc("safewatch_frames_detected_total", "Frames that ran face detection", &m.FramesDetected))
	m.registry.MustRegister(counterFunc("safewatch_faces_detected_total", "Faces found by the detector", &m.FacesDetected))
	m.registry.MustRegister(counterFunc("safewatch_alerts_raised_total", "Frames for which the alert rule fired", &m.AlertsRaised))
	m.registry.MustRegister(counterFunc("safewatch_alerts_suppressed_total", "Alerts skipped by the rate limiter", &m.AlertsSuppressed))
	m.registry.MustRegister(counterFunc("safewatch_uploads_sent_total", "Alert uploads acknowledged by the backend", &m.UploadsSent))
	m.registry.MustRegister(counterFunc("safewatch_uploads_failed_total", "Alert uploads that failed", &m.UploadsFailed))
	m.registry.MustRegister(counterFunc("safewatch_uploads_dropped_total", "Alert uploads dropped because the queue was full", &m.UploadsDropped))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "safewatch_detect_latency_ms",
			Help: "Latest face detection and classification latency in milliseconds",
		},
		func() float64 { return float64(m.DetectLatencyMs.Load()) },
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "safewatch_upload_latency_ms",
			Help: "Latest alert upload latency in milliseconds",
		},
		func() float64 { return float64(m.UploadLatencyMs.Load()) },
	))

	return m
}

// UpdateDetectLatency records how long the last detection pass took.
func (m *Client) UpdateDetectLatency(d time.Duration) {
	m.DetectLatencyMs.Store(uint64(d.Milliseconds()))
}

// UpdateUploadLatency records how long the last upload took.
func (m *Client) UpdateUploadLatency(d time.Duration) {
	m.UploadLatencyMs.Store(uint64(d.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Client) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func counterFunc(name, help string, v *atomic.Uint64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	)
}
