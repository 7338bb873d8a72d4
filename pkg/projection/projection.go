package projection

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/cuemby/corestate/pkg/kv"
	"github.com/cuemby/corestate/pkg/types"
)

// Handler folds one event into the next state. Its return value
// becomes the projection's new state.
type Handler func(event types.StoredEvent, state any) any

// InitialState builds the zero-value state a projection starts from
// (and returns to on Rebuild).
type InitialState func() any

// Projection maintains a named read model by folding a stream of
// types.StoredEvent through registered Handlers.
type Projection struct {
	name    string
	initial InitialState
	store   kv.Store

	mu       sync.RWMutex
	handlers map[string]Handler
	state    any
	position int64
}

// New builds a Projection named name. store may be nil if the caller
// never intends to call SavePosition/LoadPosition directly (e.g. when
// only going through a Registry's SaveAll/LoadAll with its own store).
func New(name string, initial InitialState, store kv.Store) *Projection {
	return &Projection{
		name:     name,
		initial:  initial,
		store:    store,
		handlers: make(map[string]Handler),
		state:    initial(),
	}
}

// Name returns the projection's unique name.
func (p *Projection) Name() string { return p.name }

// When registers h as the sole reducer for eventType. A second
// registration for the same type fails with *types.ValidationError.
func (p *Projection) When(eventType string, h Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.handlers[eventType]; exists {
		return &types.ValidationError{
			Subject: p.name,
			Reason:  fmt.Sprintf("handler already registered for event type %q", eventType),
		}
	}
	p.handlers[eventType] = h
	return nil
}

// Apply runs the registered handler for event.Type, if any, and
// unconditionally advances position to max(position, event.Timestamp).
// Events with no registered handler are ignored except for the
// position update.
func (p *Projection) Apply(event types.StoredEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(event)
}

func (p *Projection) applyLocked(event types.StoredEvent) {
	if h, ok := p.handlers[event.Type]; ok {
		p.state = h(event, p.state)
	}
	if event.Timestamp > p.position {
		p.position = event.Timestamp
	}
}

// ApplyBatch applies events in order, with the same position rule as
// Apply.
func (p *Projection) ApplyBatch(events []types.StoredEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		p.applyLocked(e)
	}
}

// CatchUp applies only events whose Timestamp is strictly after the
// current position, skipping ones the projection has already folded.
func (p *Projection) CatchUp(events []types.StoredEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		if e.Timestamp > p.position {
			p.applyLocked(e)
		}
	}
}

// Rebuild resets state to InitialState() and position to zero, then
// applies events from scratch.
func (p *Projection) Rebuild(events []types.StoredEvent) {
	p.mu.Lock()
	p.state = p.initial()
	p.position = 0
	p.mu.Unlock()
	p.ApplyBatch(events)
}

// Position returns the current position.
func (p *Projection) Position() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

// SavePosition persists the current position under
// "projection:<name>:position".
func (p *Projection) SavePosition() error {
	if p.store == nil {
		return &types.StorageError{Op: "projection.savePosition", Err: fmt.Errorf("no store configured")}
	}
	p.mu.RLock()
	pos := p.position
	p.mu.RUnlock()

	if err := p.store.Put(positionKey(p.name), []byte(strconv.FormatInt(pos, 10))); err != nil {
		return &types.StorageError{Op: "projection.savePosition", Err: err}
	}
	return nil
}

// LoadPosition restores position from storage. A missing key leaves
// position at zero.
func (p *Projection) LoadPosition() error {
	if p.store == nil {
		return &types.StorageError{Op: "projection.loadPosition", Err: fmt.Errorf("no store configured")}
	}
	raw, found, err := p.store.Get(positionKey(p.name))
	if err != nil {
		return &types.StorageError{Op: "projection.loadPosition", Err: err}
	}
	if !found {
		return nil
	}
	pos, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return &types.StorageError{Op: "projection.loadPosition", Err: err}
	}
	p.mu.Lock()
	p.position = pos
	p.mu.Unlock()
	return nil
}

// GetState returns the live, mutable state.
func (p *Projection) GetState() any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// GetReadOnlyState returns a shallow copy of state: top-level map and
// slice mutations by the caller never affect the projection. Nested
// values are not deep-copied; handlers that need full isolation should
// return immutable nested structures from their reducers.
func (p *Projection) GetReadOnlyState() any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return shallowCopy(p.state)
}

func shallowCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		cp := make(map[string]any, len(t))
		for k, val := range t {
			cp[k] = val
		}
		return cp
	case []any:
		cp := make([]any, len(t))
		copy(cp, t)
		return cp
	default:
		return v
	}
}

func positionKey(name string) string {
	return "projection:" + name + ":position"
}
