// Package fts implements a full-text index: a SQLite FTS5 virtual
// table (fts_search) linked to a Thing or Relationship row by
// (source_table, source_rowid). Updates are
// delete+insert since FTS5 has no in-place update; updateText SELECTs
// the row's ns/type before deleting it so the re-inserted row keeps
// them alongside the new text.
//
// Backed by modernc.org/sqlite's built-in FTS5 support, through the
// same *sqlstore.DB pkg/things and pkg/events share; the virtual table
// itself is brought into existence by pkg/schema, not by this package.
package fts
