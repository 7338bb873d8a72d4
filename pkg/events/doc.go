// Package events implements an append-only, per-stream event log:
// monotonic per-stream versioning, optimistic concurrency via
// expectedVersion, filtered reads, and an optional best-effort
// dual-write to an external sink that never undoes the local write.
//
// Two backings are provided. Log is the relational variant, built on
// pkg/sqlstore the way the rest of corestate's durable state is;
// KVLog is the KV-based variant for deployments without the
// relational engine, keyed "events:<timestamp>:<id>" over pkg/kv so
// lexicographic key order is timestamp order.
//
// The fan-out/pub-sub concern a channel-based broker once covered
// lives in pkg/broadcast now; this package is the durable log, not
// the live notification bus.
package events
