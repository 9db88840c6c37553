package metrics

import "github.com/prometheus/client_golang/prometheus"

// Model inference, extraction and cache metrics.
var (
	InferenceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsense",
			Name:      "inference_requests_total",
			Help:      "Total number of model inference requests",
		},
		[]string{"model", "status"}, // "success" / "error"
	)

	InferenceRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsense",
			Name:      "inference_request_duration_seconds",
			Help:      "Model inference duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	InferenceWaiting = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "docsense",
			Name:      "inference_gate_waiting",
			Help:      "Requests waiting for an inference slot",
		},
		[]string{"model"},
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsense",
			Name:      "extractions_total",
			Help:      "Document text extractions by format and outcome",
		},
		[]string{"format", "status"},
	)

	TextCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsense",
			Name:      "text_cache_total",
			Help:      "Extracted text cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)
)

var modelMetricsRegistered bool

// RegisterModelMetrics registers the model, extraction and cache metrics. Must be called once from main.
func RegisterModelMetrics() {
	if modelMetricsRegistered {
		return
	}
	prometheus.MustRegister(InferenceRequestsTotal)
	prometheus.MustRegister(InferenceRequestDuration)
	prometheus.MustRegister(InferenceWaiting)
	prometheus.MustRegister(ExtractionsTotal)
	prometheus.MustRegister(TextCacheTotal)
	modelMetricsRegistered = true
}
