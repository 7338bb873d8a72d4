package broadcast

import (
	"sync"

	corelog "github.com/cuemby/corestate/pkg/log"
	"github.com/cuemby/corestate/pkg/metrics"
	"github.com/rs/zerolog"
)

// Handler receives one emitted event's payload. A panicking handler is
// recovered and logged; it never affects the emitter.
type Handler func(event string, payload any)

// Bus is a synchronous, string-keyed multi-subscriber callback
// registry. Subsystems that need to notify observers of a domain
// event (things' created/updated/deleted, cascade's lifecycle events)
// register against one Bus instead of rolling their own handler slice.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	all      []Handler
	logger   zerolog.Logger
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   corelog.WithComponent("broadcast"),
	}
}

// On registers h to run whenever event is emitted.
func (b *Bus) On(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// OnAny registers h to run for every emitted event, regardless of name.
func (b *Bus) OnAny(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Emit runs every handler registered for event, then every OnAny
// handler, in registration order. Each handler runs under its own
// recover so one observer's panic never reaches another.
func (b *Bus) Emit(event string, payload any) {
	metrics.BroadcastEmitsTotal.WithLabelValues(event).Inc()
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event]...)
	anyHandlers := append([]Handler(nil), b.all...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.runSafely(event, payload, h)
	}
	for _, h := range anyHandlers {
		b.runSafely(event, payload, h)
	}
}

func (b *Bus) runSafely(event string, payload any, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn().Interface("panic", r).Str("event", event).Msg("broadcast handler panicked")
		}
	}()
	h(event, payload)
}
