// Package sqlstore wraps modernc.org/sqlite behind a cursor-shaped
// contract: a result exposing columnNames, rowsRead, rowsWritten,
// toArray/one, and a raw-tuple iterator. FTS5 is compiled into
// modernc.org/sqlite by default, so "CREATE VIRTUAL TABLE fts_search
// USING fts5(...)" runs unmodified.
//
// Every other corestate subsystem that touches the relational engine
// (schema, events, projection positions, saga tables, locks, things,
// fts) does so exclusively through *DB.Exec, the same way a single
// storage wrapper being the sole owner of its underlying handle keeps
// access centralized.
package sqlstore
