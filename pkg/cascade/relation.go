package cascade

import (
	"sort"
	"sync"

	"github.com/cuemby/corestate/pkg/types"
)

// relationRegistry holds relationship definitions by unique name.
type relationRegistry struct {
	mu        sync.RWMutex
	relations map[string]types.RelationshipDefinition
}

func newRelationRegistry() *relationRegistry {
	return &relationRegistry{relations: make(map[string]types.RelationshipDefinition)}
}

// Define validates and stores def under name, applying onDelete/
// onUpdate defaults of "cascade".
func (r *relationRegistry) Define(name string, def types.RelationshipDefinition) error {
	switch def.Type {
	case types.RelationHardForward, types.RelationHardReverse, types.RelationSoftForward, types.RelationSoftReverse:
	default:
		return &types.ValidationError{Subject: name, Reason: "type must be one of ->, <-, ~>, <~"}
	}
	if def.TargetBinding == "" {
		return &types.ValidationError{Subject: name, Reason: "targetBinding must not be empty"}
	}
	if def.IDResolver == nil {
		return &types.ValidationError{Subject: name, Reason: "idResolver must be a callable"}
	}
	if def.OnDelete == "" {
		def.OnDelete = types.PolicyCascade
	}
	if def.OnUpdate == "" {
		def.OnUpdate = types.PolicyCascade
	}
	def.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	r.relations[name] = def
	return nil
}

// Undefine removes name, reporting whether it existed.
func (r *relationRegistry) Undefine(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.relations[name]; !ok {
		return false
	}
	delete(r.relations, name)
	return true
}

// Has reports whether name is defined.
func (r *relationRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.relations[name]
	return ok
}

// Get returns the definition for name.
func (r *relationRegistry) Get(name string) (types.RelationshipDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.relations[name]
	return def, ok
}

// List returns every definition, sorted by name.
func (r *relationRegistry) List() []types.RelationshipDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.RelationshipDefinition, 0, len(r.relations))
	for _, def := range r.relations {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
