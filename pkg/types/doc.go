// Package types holds the value types shared across corestate's
// subsystems: stored events, read models, saga transactions, locks,
// relationship definitions, and migration candidates.
//
// Centralizing these here keeps every subsystem importing one shared
// set of value types rather than declaring its own copies.
package types
