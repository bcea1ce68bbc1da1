package platform

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "saintchat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "saintchat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// ChatOutcomes counts processMessage results by terminal state.
	ChatOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "saintchat",
			Subsystem: "chat",
			Name:      "outcomes_total",
			Help:      "processMessage results by terminal state",
		},
		[]string{"outcome", "tier"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "saintchat",
			Subsystem: "llm",
			Name:      "generation_duration_seconds",
			Help:      "Text generation duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"model", "status"},
	)

	// StorageDegraded counts store failures that were absorbed instead of surfaced.
	StorageDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "saintchat",
			Subsystem: "store",
			Name:      "degraded_total",
			Help:      "Store read/write failures absorbed by best-effort handling",
		},
		[]string{"operation"},
	)
)

func RecordRequest(method, endpoint, status string, seconds float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(seconds)
}

func RecordChatOutcome(outcome, tier string) {
	ChatOutcomes.WithLabelValues(outcome, tier).Inc()
}

func RecordGeneration(model, status string, seconds float64) {
	GenerationDuration.WithLabelValues(model, status).Observe(seconds)
}

func RecordStorageDegraded(operation string) {
	StorageDegraded.WithLabelValues(operation).Inc()
}
