// Package obsmetrics holds the prometheus instruments shared across
// ubi-manifest's components, grounded on the promauto usage in
// datastore/postgres's own metric declarations.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CoordinatorRuns counts coordinator.Run invocations by outcome.
	CoordinatorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ubi_manifest",
			Subsystem: "coordinator",
			Name:      "runs_total",
			Help:      "Total number of depsolve jobs run, by outcome.",
		},
		[]string{"outcome"},
	)
	// CoordinatorDuration times coordinator.Run calls.
	CoordinatorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ubi_manifest",
			Subsystem: "coordinator",
			Name:      "run_duration_seconds",
			Help:      "The duration of a full depsolve job, including persistence.",
		},
		[]string{"outcome"},
	)
	// DepsolverPasses counts each depsolver pass (modulemd, rpm, srpm)
	// by kind and outcome.
	DepsolverPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ubi_manifest",
			Subsystem: "depsolver",
			Name:      "passes_total",
			Help:      "Total number of depsolver passes run, by depsolver kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	// TaskStates counts task-state transitions recorded by task.Manager.
	TaskStates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ubi_manifest",
			Subsystem: "task",
			Name:      "state_transitions_total",
			Help:      "Total number of task state transitions, by resulting state.",
		},
		[]string{"state"},
	)
)
