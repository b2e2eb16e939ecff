package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesCalculated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmatch_matches_calculated_total",
			Help: "Total number of résumé-job matches calculated",
		},
		[]string{"outcome"},
	)

	MatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobmatch_match_duration_seconds",
			Help:    "Duration of a single match calculation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	EmbeddingCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmatch_embedding_cache_total",
			Help: "Embedding cache lookups by result",
		},
		[]string{"result"},
	)

	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmatch_embedding_requests_total",
			Help: "Embedding backend requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	AdapterFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmatch_adapter_fetches_total",
			Help: "Source adapter fetches by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	AdapterPostings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmatch_adapter_postings_total",
			Help: "Postings returned by each source adapter",
		},
		[]string{"source"},
	)

	DiscoveryRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmatch_discovery_rejected_total",
			Help: "Postings rejected during discovery by reason",
		},
		[]string{"reason"},
	)

	DiscoveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobmatch_discovery_duration_seconds",
			Help:    "Duration of a discovery run in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	LoopIterations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmatch_discovery_loop_iterations_total",
			Help: "Discovery loop iterations by outcome",
		},
		[]string{"outcome"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobmatch_db_query_duration_seconds",
			Help:    "Duration of database queries by statement verb and outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"verb", "outcome"},
	)
)
