package migration

import (
	"fmt"
	"os"

	"github.com/cuemby/corestate/pkg/types"
	"gopkg.in/yaml.v3"
)

// LoadPolicyYAML reads a types.MigrationPolicy from a YAML file so a
// host can declare hot/warm/cold thresholds without a recompile. The
// decoded policy still goes through Validate/NewEvaluator before use.
func LoadPolicyYAML(path string) (types.MigrationPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.MigrationPolicy{}, fmt.Errorf("read migration policy file: %w", err)
	}
	var p types.MigrationPolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return types.MigrationPolicy{}, fmt.Errorf("parse migration policy yaml: %w", err)
	}
	return p, nil
}
