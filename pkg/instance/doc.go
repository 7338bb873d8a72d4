// Package instance models the host-provided context corestate's
// subsystems run inside: a single addressable instance with a
// critical-section primitive, an alarm facility, WebSocket acceptance,
// and a factory for reaching other instances by namespace and id.
//
// None of this is implemented by corestate itself — it is consumed.
// A production host (a Durable-Object-shaped runtime, or any
// equivalent single-threaded-instance model) supplies a concrete
// Context; cmd/coredemo and every subsystem's tests use Local, an
// in-process stand-in good enough to exercise the full contract.
package instance
