// Package metrics holds the Prometheus collectors. Everything is registered
// on the default registry and served by the /metrics handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineOutcomes counts finished pipeline runs by terminal status.
	PipelineOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lensbot",
		Name:      "pipeline_outcomes_total",
		Help:      "Finished pipeline runs by terminal status.",
	}, []string{"status"})

	// StageDuration tracks wall time per pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lensbot",
		Name:      "stage_duration_seconds",
		Help:      "Pipeline stage wall time.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	// StageRetries counts bounded stage-level retries by stage.
	StageRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lensbot",
		Name:      "stage_retries_total",
		Help:      "Stage-level retries after infrastructure errors.",
	}, []string{"stage"})

	// CacheLookups counts translation cache lookups by result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lensbot",
		Name:      "cache_lookups_total",
		Help:      "Translation cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	// UpdatesReceived counts inbound Telegram updates by kind.
	UpdatesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lensbot",
		Name:      "updates_received_total",
		Help:      "Inbound Telegram updates by kind (photo, document, command, other).",
	}, []string{"kind"})
)
