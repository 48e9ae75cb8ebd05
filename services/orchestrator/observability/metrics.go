// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

// Package observability provides Prometheus metrics for the chat
// endpoints: request counters, stream duration histograms, and active
// stream gauges. Metrics are exposed on /metrics. All operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "xingling"
const chatSubsystem = "chat"

// Endpoint labels a chat endpoint for metrics.
type Endpoint string

const (
	EndpointChat       Endpoint = "chat"
	EndpointChatStream Endpoint = "chat_stream"
	EndpointUploadChat Endpoint = "upload_chat"
	EndpointClear      Endpoint = "clear_session"
)

// ChatMetrics holds all Prometheus metrics for chat operations.
type ChatMetrics struct {
	// RequestsTotal counts chat requests by endpoint and status.
	// Labels: endpoint, status (success, error)
	RequestsTotal *prometheus.CounterVec

	// StreamDurationSeconds measures total stream duration.
	// Labels: endpoint, status (success, error)
	StreamDurationSeconds *prometheus.HistogramVec

	// ActiveStreams tracks currently active streaming connections.
	// Labels: endpoint
	ActiveStreams *prometheus.GaugeVec

	// SummarizationsTotal counts history compactions.
	// Labels: status (success, fallback)
	SummarizationsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, initialized by InitMetrics.
var DefaultMetrics *ChatMetrics

// InitMetrics creates and registers all chat metrics on the default
// Prometheus registry. Call once at startup; calling twice panics on
// duplicate registration.
func InitMetrics() *ChatMetrics {
	DefaultMetrics = &ChatMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "requests_total",
				Help:      "Total chat requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		StreamDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "stream_duration_seconds",
				Help:      "Total stream duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"endpoint", "status"},
		),

		ActiveStreams: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently active streaming connections",
			},
			[]string{"endpoint"},
		),

		SummarizationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "summarizations_total",
				Help:      "Total history compactions by outcome",
			},
			[]string{"status"},
		),
	}
	return DefaultMetrics
}

// RecordRequest increments the request counter for an endpoint.
func (m *ChatMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// StreamStarted marks one more active stream on an endpoint.
func (m *ChatMetrics) StreamStarted(endpoint Endpoint) {
	m.ActiveStreams.WithLabelValues(string(endpoint)).Inc()
}

// StreamEnded marks one fewer active stream on an endpoint.
func (m *ChatMetrics) StreamEnded(endpoint Endpoint) {
	m.ActiveStreams.WithLabelValues(string(endpoint)).Dec()
}

// RecordSummarization counts one history compaction. success is false
// when summary generation degraded to the fallback marker.
func (m *ChatMetrics) RecordSummarization(success bool) {
	status := "success"
	if !success {
		status = "fallback"
	}
	m.SummarizationsTotal.WithLabelValues(status).Inc()
}

// RecordStreamDuration records how long a stream ran.
func (m *ChatMetrics) RecordStreamDuration(endpoint Endpoint, d time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.StreamDurationSeconds.WithLabelValues(string(endpoint), status).Observe(d.Seconds())
}
