// Package services implements the offline-first synchronization layer.
//
// This file exposes Prometheus instrumentation for the sync core. Labels are
// kept low-cardinality: "entity" is restaurants|reviews, "queue" is
// reviews|favorites, "outcome" is ok|error.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// syncReads counts coordinator reads by entity and serving source.
	syncReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_reads_total",
			Help: "Total coordinator reads, by entity and source (cache|network).",
		},
		[]string{"entity", "source"},
	)

	// syncRefreshes counts background stale-while-revalidate refreshes.
	syncRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_background_refresh_total",
			Help: "Total background refreshes, by entity and outcome.",
		},
		[]string{"entity", "outcome"},
	)

	// syncWrites counts write submissions by kind and disposition.
	syncWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_writes_total",
			Help: "Total writes, by kind (review|favorite) and disposition (sent|queued).",
		},
		[]string{"kind", "disposition"},
	)

	// replayRuns counts replay drains by queue and outcome.
	replayRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_replay_total",
			Help: "Total replay attempts, by queue and outcome.",
		},
		[]string{"queue", "outcome"},
	)

	// queueDepth gauges the number of pending entries per offline queue.
	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_queue_depth",
			Help: "Current number of pending entries in each offline queue.",
		},
		[]string{"queue"},
	)
)

func init() {
	prometheus.MustRegister(syncReads, syncRefreshes, syncWrites, replayRuns, queueDepth)
}
