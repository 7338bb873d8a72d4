// Package migration implements a hot->warm->cold tiering policy
// engine: per-item evaluation with a fixed priority order (emergency,
// access-frequency, TTL, size-threshold), batch selection with an
// overshoot-bounded target, and runtime policy updates that merge
// rather than replace whole sections.
//
// The "evaluate candidates, pick a bounded batch" shape generalizes a
// desired-vs-actual reconciliation loop from container placement to
// tier migration, reporting evaluation latency as a histogram the
// same way a reconciliation duration metric would.
package migration
