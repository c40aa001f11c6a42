// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // registered once with the default registry
var (
	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opspilot",
			Name:      "chat_turns_total",
			Help:      "Chat turns by outcome (completed, failed, abandoned)",
		},
		[]string{"outcome"},
	)

	ChatTurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "opspilot",
			Name:      "chat_turn_duration_seconds",
			Help:      "Wall time from the user message append to the end of the turn",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opspilot",
			Name:      "tool_calls_total",
			Help:      "Tool gateway executions by tool and status",
		},
		[]string{"tool", "status"},
	)

	AnomaliesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "opspilot",
			Name:      "anomalies_detected_total",
			Help:      "Anomalies opened by the signals detector",
		},
	)

	WorkflowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opspilot",
			Name:      "workflow_runs_total",
			Help:      "Finished workflow runs by status",
		},
		[]string{"status"},
	)
)

// Chat turn outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeAbandoned = "abandoned"
)
