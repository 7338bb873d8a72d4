// Package kv defines the host key/value storage contract corestate's
// subsystems are built against, and ships a bbolt-backed implementation
// for use outside a real host: tests and cmd/coredemo.
//
// The interface intentionally stays small: Get/Put/Delete/List/Range.
// Subsystems that need transactions or the relational engine
// use pkg/sqlstore instead; kv.Store is for the KV-shaped state each
// subsystem keeps alongside SQL (projection positions, the soft
// cascade queue, the 2PC pending-record table).
package kv
