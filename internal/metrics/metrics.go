// Package metrics holds Prometheus instruments that are used across the
// gateway.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formgate_submissions_total",
			Help: "Pipeline runs by form and terminal outcome.",
		},
		[]string{"form", "outcome"})

	SubmissionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "formgate_submission_duration_seconds",
			Help:    "Wall time of one pipeline run, including the upstream exchange.",
			Buckets: prometheus.DefBuckets,
		})

	JournalErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formgate_journal_errors_total",
			Help: "Cumulative number of journal insert failures.",
		})

	PipelineCompileTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formgate_pipeline_compile_total",
			Help: "Cumulative number of cold pipeline compilations.",
		})
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		SubmissionDuration,
		JournalErrorsTotal,
		PipelineCompileTotal,
	)
}
