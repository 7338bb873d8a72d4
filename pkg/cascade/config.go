package cascade

import (
	"fmt"
	"os"

	"github.com/cuemby/corestate/pkg/types"
	"gopkg.in/yaml.v3"
)

// relationshipsFile is the on-disk shape a host declares relationships
// in: everything but the id resolver, which is always wired in code
// (see types.RelationshipDefinition's IDResolver tag).
type relationshipsFile struct {
	Relationships []types.RelationshipDefinition `yaml:"relationships"`
}

// LoadRelationshipsYAML reads relationship definitions from a YAML
// file. The returned definitions have a nil IDResolver; pass them
// through WireResolvers (or set IDResolver directly) before DefineRelation.
func LoadRelationshipsYAML(path string) ([]types.RelationshipDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read relationships file: %w", err)
	}
	var f relationshipsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse relationships yaml: %w", err)
	}
	return f.Relationships, nil
}

// WireResolvers fills in each definition's IDResolver from resolvers,
// keyed by definition name. A definition with no matching resolver is
// rejected, since an unresolvable relationship can never cascade.
func WireResolvers(defs []types.RelationshipDefinition, resolvers map[string]types.IDResolver) ([]types.RelationshipDefinition, error) {
	out := make([]types.RelationshipDefinition, len(defs))
	for i, def := range defs {
		resolver, ok := resolvers[def.Name]
		if !ok {
			return nil, &types.ValidationError{Subject: def.Name, Reason: "no idResolver wired for relationship loaded from YAML"}
		}
		def.IDResolver = resolver
		out[i] = def
	}
	return out, nil
}

// DefineFromYAML loads relationship definitions from path, wires them
// against resolvers, and registers each on the engine.
func (e *Engine) DefineFromYAML(path string, resolvers map[string]types.IDResolver) error {
	defs, err := LoadRelationshipsYAML(path)
	if err != nil {
		return err
	}
	wired, err := WireResolvers(defs, resolvers)
	if err != nil {
		return err
	}
	for _, def := range wired {
		if err := e.DefineRelation(def.Name, def); err != nil {
			return err
		}
	}
	return nil
}
