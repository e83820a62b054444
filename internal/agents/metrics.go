package agents

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	workflowRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrivener",
			Name:      "workflow_runs_total",
			Help:      "Total content generation workflow runs",
		},
		[]string{"status"}, // "success", "no_variants"
	)

	workflowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scrivener",
			Name:      "workflow_duration_seconds",
			Help:      "End-to-end duration of successful workflow runs",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4m
		},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scrivener",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"stage"},
	)

	stageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrivener",
			Name:      "stage_failures_total",
			Help:      "Pipeline stage failures (workflow continues past them)",
		},
		[]string{"stage"},
	)

	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrivener",
			Name:      "llm_requests_total",
			Help:      "LLM completions issued by the pipeline and its tools",
		},
		[]string{"outcome"}, // "success", "error"
	)
)
