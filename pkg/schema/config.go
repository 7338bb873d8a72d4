package schema

import (
	"fmt"
	"os"

	"github.com/cuemby/corestate/pkg/types"
	"gopkg.in/yaml.v3"
)

// LoadYAML reads a types.Schema from a YAML file, the way a host
// application declares its own tables/indexes instead of hardcoding
// DefaultSchema. The decoded schema is not validated here; pass it to
// New and let EnsureInitialized (via Validate) reject it.
func LoadYAML(path string) (types.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Schema{}, fmt.Errorf("read schema file: %w", err)
	}
	var s types.Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return types.Schema{}, fmt.Errorf("parse schema yaml: %w", err)
	}
	return s, nil
}

// MergeWithDefault returns a schema whose table set is DefaultSchema's
// tables plus any table in extra not already named in DefaultSchema,
// so a host-declared schema file never has to repeat the tables the
// core subsystems themselves require.
func MergeWithDefault(extra types.Schema) types.Schema {
	base := DefaultSchema()
	if extra.Version > base.Version {
		base.Version = extra.Version
	}
	known := make(map[string]bool, len(base.Tables))
	for _, t := range base.Tables {
		known[t.Name] = true
	}
	for _, t := range extra.Tables {
		if !known[t.Name] {
			base.Tables = append(base.Tables, t)
			known[t.Name] = true
		}
	}
	return base
}
