package projection

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cuemby/corestate/pkg/types"
)

// Registry holds projections by unique name and fans operations out
// to all of them.
type Registry struct {
	mu          sync.RWMutex
	projections map[string]*Projection
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{projections: make(map[string]*Projection)}
}

// Register adds p. A duplicate name fails with *types.ValidationError.
func (r *Registry) Register(p *Projection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.projections[p.Name()]; exists {
		return &types.ValidationError{Subject: "registry", Reason: fmt.Sprintf("projection %q already registered", p.Name())}
	}
	r.projections[p.Name()] = p
	return nil
}

// ApplyToAll applies event to every registered projection.
func (r *Registry) ApplyToAll(event types.StoredEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.projections {
		p.Apply(event)
	}
}

// RebuildAll rebuilds every registered projection from events.
func (r *Registry) RebuildAll(events []types.StoredEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.projections {
		p.Rebuild(events)
	}
}

// GetNames returns every registered projection's name, sorted for
// deterministic iteration by callers.
func (r *Registry) GetNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.projections))
	for name := range r.projections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SaveAll persists every registered projection's position, for a
// host-level checkpoint sweep. It returns the first error
// encountered but still attempts every projection.
func (r *Registry) SaveAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var firstErr error
	for _, p := range r.projections {
		if err := p.SavePosition(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LoadAll restores every registered projection's position.
func (r *Registry) LoadAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var firstErr error
	for _, p := range r.projections {
		if err := p.LoadPosition(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
