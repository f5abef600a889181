package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval pipeline Prometheus metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "enspira",
			Name:      "retrieval_requests_total",
			Help:      "Total number of context retrieval requests",
		},
		[]string{"kind", "outcome"}, // outcome: "ok" / "augmented" / "empty" / "failed"
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "enspira",
			Name:      "retrieval_duration_seconds",
			Help:      "End-to-end retrieval duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind", "augmented"},
	)

	RerankRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "enspira",
			Name:      "rerank_requests_total",
			Help:      "Total number of rerank oracle calls",
		},
		[]string{"status"}, // "ok" / "empty" / "error" (error = similarity fallback)
	)

	RerankTierTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "enspira",
			Name:      "rerank_tier_total",
			Help:      "Candidates classified per relevance tier",
		},
		[]string{"tier"},
	)

	AugmentationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "enspira",
			Name:      "augmentation_total",
			Help:      "Web augmentation chain outcomes per stage",
		},
		[]string{"stage", "status"},
	)

	ExtractPagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "enspira",
			Name:      "extract_pages_total",
			Help:      "Fetched pages by extraction outcome",
		},
		[]string{"status"}, // "ok" / "failed"
	)
)

func init() {
	prometheus.MustRegister(
		RetrievalRequestsTotal,
		RetrievalDuration,
		RerankRequestsTotal,
		RerankTierTotal,
		AugmentationTotal,
		ExtractPagesTotal,
	)
}
