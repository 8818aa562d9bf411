package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	// MatchingOutcomes counts matching runs by status (matched, no_match, failed).
	MatchingOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_outcomes_total",
			Help: "Matching runs by outcome",
		},
		[]string{"status"},
	)

	MatchesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_dropped_candidates_total",
			Help: "LLM candidates dropped because their id is not in the catalog",
		},
	)

	NameLeaks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_name_leaks_total",
			Help: "Generated texts that mentioned the startup name",
		},
	)

	LLMAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_attempts_total",
			Help: "LLM invocation attempts by result",
		},
		[]string{"provider", "result"},
	)

	CatalogCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_lookups_total",
			Help: "Catalog snapshot lookups by cache tier",
		},
		[]string{"tier"}, // lru, redis, source
	)
)
