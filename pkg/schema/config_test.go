package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/corestate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAMLDecodesSchema(t *testing.T) {
	path := writeTestFile(t, `
version: 2
tables:
  - name: widgets
    columns:
      - name: id
        type: TEXT
        primaryKey: true
      - name: name
        type: TEXT
        notNull: true
`)

	s, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Version)
	require.Len(t, s.Tables, 1)
	assert.Equal(t, "widgets", s.Tables[0].Name)
	assert.Equal(t, "id", s.Tables[0].Columns[0].Name)
	assert.True(t, s.Tables[0].Columns[0].PrimaryKey)
}

func TestLoadYAMLMissingFile(t *testing.T) {
	_, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadYAMLInvalidYAML(t *testing.T) {
	path := writeTestFile(t, "tables: [not: valid: yaml")
	_, err := LoadYAML(path)
	assert.Error(t, err)
}

func TestMergeWithDefaultKeepsDefaultTablesAndAddsNew(t *testing.T) {
	extra := types.Schema{
		Tables: []types.Table{
			{Name: "widgets", Columns: []types.Column{{Name: "id", ColType: "TEXT", PrimaryKey: true}}},
		},
	}

	merged := MergeWithDefault(extra)
	names := make(map[string]bool, len(merged.Tables))
	for _, tbl := range merged.Tables {
		names[tbl.Name] = true
	}
	for _, tbl := range DefaultSchema().Tables {
		assert.True(t, names[tbl.Name], "expected default table %q to survive merge", tbl.Name)
	}
	assert.True(t, names["widgets"])
	assert.Len(t, merged.Tables, len(DefaultSchema().Tables)+1)
}

func TestMergeWithDefaultSkipsDuplicateNames(t *testing.T) {
	extra := types.Schema{
		Tables: []types.Table{
			{Name: "documents", Columns: []types.Column{{Name: "id", ColType: "TEXT"}}},
		},
	}

	merged := MergeWithDefault(extra)
	assert.Len(t, merged.Tables, len(DefaultSchema().Tables))
}
