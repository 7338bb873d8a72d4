// Package projection folds an event stream into a named read model:
// exactly one reducer per event type, monotonic position
// tracking for catch-up/recovery, batch application, full rebuild,
// and a read-only view that is safe to hand to callers without
// risking a stray mutation leaking back into the projection.
//
// Position persistence is built on pkg/kv under the key
// "projection:<name>:position", the same host-storage seam pkg/events'
// KV variant and the cascade soft-queue use.
package projection
