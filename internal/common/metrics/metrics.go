package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_requests_total",
			Help: "Total number of match requests by strategy",
		},
		[]string{"strategy"},
	)

	MatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_failures_total",
			Help: "Total number of failed match requests",
		},
		[]string{"strategy", "error_code"},
	)

	MatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_duration_seconds",
			Help:    "Duration of a full match pipeline run in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	CandidatesFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_candidates_filtered_total",
			Help: "Candidates excluded by hard constraints",
		},
		[]string{"strategy"},
	)

	CandidatesScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_candidates_scored_total",
			Help: "Candidates scored after filtering",
		},
		[]string{"strategy"},
	)

	PoolCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_pool_cache_hits_total",
			Help: "Candidate pool cache hits and misses",
		},
		[]string{"result"},
	)

	HistoryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matching_history_queue_depth",
			Help: "Pending history batches waiting to be persisted",
		},
	)

	HistoryWriteRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_history_write_retries_total",
			Help: "History write attempts that had to be retried",
		},
	)
)
