// Package schema implements a lazy schema manager: idempotent,
// single-flight SQL schema bring-up gated by the host's
// critical-section primitive.
//
// No package in corestate issues its own ad hoc CREATE TABLE
// statements; every table, index, and virtual table any subsystem
// needs is declared once in DefaultSchema (or merged in by a host
// application) and brought into existence through a single Manager,
// the way a single constructor creating every bucket up front keeps
// bucket creation from scattering across packages.
package schema
