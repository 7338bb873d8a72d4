// Package broadcast is a thin, shared pub/sub-plus-broadcast
// notification layer: a multi-subscriber callback bus for in-process
// domain events (thing:created, cascade:started, ...) plus
// tag-filtered fan-out to WebSockets accepted through
// pkg/instance.Sockets.
//
// A channel-based broker distributing events to subscribers through a
// buffered run loop makes sense when producers run concurrently.
// corestate runs cooperatively single-threaded inside one instance:
// there is no concurrent producer needing a buffered channel and a
// background goroutine, so Bus calls every registered Handler
// synchronously and inline, the same simplification pkg/cascade's
// EventHandler already makes locally. Bus is the one shared copy of
// that pattern every subsystem (things, cascade, saga) can register
// against instead of re-declaring its own handler slice.
package broadcast
