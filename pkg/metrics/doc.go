/*
Package metrics exposes corestate's subsystems as Prometheus metrics.

Each subsystem updates its own counters/histograms inline, wrapping a
reconciliation, scheduling, or request cycle with
metrics.NewTimer().ObserveDuration(...). There is no central collector
polling subsystem state: metrics are pushed at the moment an operation
completes, which keeps counters consistent with the event that
produced them (an appendEvent failure and its corresponding
EventVersionConflictsTotal increment happen in the same call).

# Categories

  - Schema: initialization count and last-duration gauge.
  - Events: appends, version conflicts, dual-write failures.
  - Saga: state transitions, compensations, step retries, locks held.
  - Cascade: cascades by kind/outcome, soft-queue depth.
  - Things/FTS: thing counts by namespace, search duration.
  - Vector: phase 1 / phase 2 search duration.
  - Migration: evaluations, bytes migrated, evaluation duration.
  - Error boundary: errors, fallbacks, recoveries by boundary name.

# Usage

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.EventAppendDuration)

	http.Handle("/metrics", metrics.Handler())
*/
package metrics
