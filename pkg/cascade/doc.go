// Package cascade maintains per-instance relationship definitions and
// fans a triggering (operation, entity) out to target instances --
// synchronously for hard cascades ("->", "<-"), queued for soft
// cascades ("~>", "<~") -- while emitting typed lifecycle events.
//
// Hard cascades reach the target through instance.Participant, the
// same cross-instance handle the saga executor uses for step calls.
// httpacceptor.go shows the receiving half of the wire protocol (the
// X-Cascade-* headers) for a target instance fronted by an HTTP
// server; it is reference wiring, not something the engine itself
// requires.
package cascade
