// Package saga executes a DAG of participant-invoked steps with
// retries, compensation, persisted step results, a 2PC participant
// mixin, and a distributed-lock service.
//
// Definitions and results persist through pkg/sqlstore, brought into
// existence by pkg/schema; cross-instance calls go through
// instance.Participant, the same handle hard cascades use. The
// executor's own state-machine dispatch (Pending/Executing/
// Committing/Committed, Compensating/Aborted) is a single transition
// method that persists each state change, with no networked consensus
// log behind it -- each instance
// drives its own sagas independently.
package saga
