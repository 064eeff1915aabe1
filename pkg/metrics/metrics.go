// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMStreamDuration tracks upstream model streaming duration.
	LLMStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_stream_duration_seconds",
			Help:    "LLM streaming response duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "status"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// ThreadsTotal tracks total threads created.
	ThreadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threads_total",
			Help: "Total chat threads created",
		},
	)

	// MessagesTotal tracks total messages persisted.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"role"},
	)

	// CitationsTotal tracks citations collected from upstream annotations.
	CitationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "citations_total",
			Help: "Total citations collected",
		},
	)

	// CitationsDroppedTotal tracks annotations dropped as duplicate or unusable.
	CitationsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "citations_dropped_total",
			Help: "Total citation annotations dropped",
		},
	)

	// FootnotesTotal tracks footnotes extracted from responses.
	FootnotesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "footnotes_total",
			Help: "Total footnotes extracted",
		},
	)

	// TTSCacheHits tracks speech text-cleaning cache hits.
	TTSCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tts_clean_cache_hits_total",
			Help: "Total TTS clean-text cache hits",
		},
	)

	// TTSCacheMisses tracks speech text-cleaning cache misses.
	TTSCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tts_clean_cache_misses_total",
			Help: "Total TTS clean-text cache misses",
		},
	)

	// RelayPublishesTotal tracks lifecycle events published to the relay.
	RelayPublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_publishes_total",
			Help: "Total lifecycle events published to the relay",
		},
		[]string{"type", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMStream records metrics for an upstream streaming response.
func RecordLLMStream(provider, status string, duration float64) {
	LLMStreamDuration.WithLabelValues(provider, status).Observe(duration)
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}

// RecordThread records a newly created thread.
func RecordThread() {
	ThreadsTotal.Inc()
}

// RecordMessage records a persisted message.
func RecordMessage(role string) {
	MessagesTotal.WithLabelValues(role).Inc()
}

// RecordCitation records one collected citation.
func RecordCitation() {
	CitationsTotal.Inc()
}

// RecordCitationDropped records one dropped citation annotation.
func RecordCitationDropped() {
	CitationsDroppedTotal.Inc()
}

// RecordFootnotes records extracted footnotes.
func RecordFootnotes(count int) {
	FootnotesTotal.Add(float64(count))
}

// RecordTTSCacheHit records a clean-text cache hit.
func RecordTTSCacheHit() {
	TTSCacheHits.Inc()
}

// RecordTTSCacheMiss records a clean-text cache miss.
func RecordTTSCacheMiss() {
	TTSCacheMisses.Inc()
}

// RecordRelayPublish records a relay publish attempt.
func RecordRelayPublish(eventType, status string) {
	RelayPublishesTotal.WithLabelValues(eventType, status).Inc()
}
