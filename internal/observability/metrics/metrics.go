// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "upload_ai"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upload metrics
	UploadsTotal  *prometheus.CounterVec
	UploadBytes   prometheus.Counter
	VideosCreated prometheus.Counter

	// Transcription metrics
	TranscriptionsTotal *prometheus.CounterVec
	STTLatency          *prometheus.HistogramVec

	// Completion metrics
	CompletionsTotal  *prometheus.CounterVec
	CompletionsActive prometheus.Gauge
	CompletionChunks  prometheus.Counter
	CompletionLatency *prometheus.HistogramVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance registered on the default registry.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds, including streamed bodies",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"method", "route"}),

		UploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of audio uploads by result",
		}, []string{"result"}),
		UploadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total bytes of accepted audio uploads",
		}),
		VideosCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_created_total",
			Help:      "Total number of video records created",
		}),

		TranscriptionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Total number of transcription requests by provider and result",
		}, []string{"provider", "result"}),
		STTLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Speech-to-text provider latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"provider"}),

		CompletionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Total number of completion requests by result",
		}, []string{"result"}),
		CompletionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "completions_active",
			Help:      "Number of completion streams currently open",
		}),
		CompletionChunks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_chunks_total",
			Help:      "Total number of completion chunks delivered",
		}),
		CompletionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Lifetime of completion streams in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"model"}),

		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordHTTPRequest records a finished HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, code string, durationSeconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordUpload records an upload attempt. bytes is only counted on success.
func (m *Metrics) RecordUpload(bytes int64, err error) {
	if err != nil {
		m.UploadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.UploadsTotal.WithLabelValues("success").Inc()
	m.UploadBytes.Add(float64(bytes))
}

// RecordVideoCreated records a new video record.
func (m *Metrics) RecordVideoCreated() {
	m.VideosCreated.Inc()
}

// RecordTranscription records a transcription attempt against a provider.
func (m *Metrics) RecordTranscription(provider, result string, latencySeconds float64) {
	m.TranscriptionsTotal.WithLabelValues(provider, result).Inc()
	m.STTLatency.WithLabelValues(provider).Observe(latencySeconds)
}

// RecordCompletionStart records a completion stream opening.
func (m *Metrics) RecordCompletionStart() {
	m.CompletionsActive.Inc()
}

// RecordCompletionEnd records a completion stream closing.
func (m *Metrics) RecordCompletionEnd(model, result string, durationSeconds float64) {
	m.CompletionsActive.Dec()
	m.CompletionsTotal.WithLabelValues(result).Inc()
	m.CompletionLatency.WithLabelValues(model).Observe(durationSeconds)
}

// RecordCompletionRejected records a completion refused before any stream opened.
func (m *Metrics) RecordCompletionRejected(result string) {
	m.CompletionsTotal.WithLabelValues(result).Inc()
}

// RecordCompletionChunk records a chunk handed to the consumer.
func (m *Metrics) RecordCompletionChunk() {
	m.CompletionChunks.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
