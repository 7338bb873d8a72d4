// Package things implements a namespaced (ns, type, id) row store:
// createThing/getThing/updateThing (merge semantics on data)/
// deleteThing/listThings/searchThings. Every mutation emits a
// thing:{created,updated,deleted} event through an injected
// pkg/broadcast.Bus.
//
// Adapted from a bucket-per-entity KV storage pattern to a single
// SQL-backed table, since things additionally need ns/type secondary
// filtering and ordering that a pure KV bucket does not give for free.
//
// WithIndex wires a pkg/fts.Index so every mutation keeps "things"
// searchable under source_table "things"; Repository itself never
// imports pkg/vector or touches embeddings, so a caller that wants
// semantic search over things composes that separately.
package things
