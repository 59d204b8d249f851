// Package metrics registers the Prometheus metrics exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for KeyOperationsTotal.
const (
	OutcomeSuccess = "success"
	// OutcomeError is a rejected request: validation, duplicate or not found.
	OutcomeError = "error"
	// OutcomeFailure is a storage fault.
	OutcomeFailure = "failure"
)

var (
	// KeyOperationsTotal counts mutating operations by operation
	// ("add", "soft_delete", "hard_delete") and outcome.
	KeyOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyledger_key_operations_total",
			Help: "Total key mutations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	// KeyLookupsTotal counts status lookups by resulting status.
	KeyLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyledger_key_lookups_total",
			Help: "Total key status lookups by resulting status.",
		},
		[]string{"status"},
	)

	// ActionLogEntriesTotal counts entries appended to the action log.
	ActionLogEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyledger_action_log_entries_total",
			Help: "Total entries appended to the action log.",
		},
		[]string{"action"},
	)
)
