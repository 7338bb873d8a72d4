package schema

import (
	"testing"

	"github.com/cuemby/corestate/pkg/instance"
	"github.com/cuemby/corestate/pkg/kv"
	"github.com/cuemby/corestate/pkg/sqlstore"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, s types.Schema) (*Manager, *sqlstore.DB) {
	t.Helper()
	db, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := instance.Local(instance.NewIDFromName("schema-test"), kv.NewMemStore(), db, nil)
	return New(ctx, s), db
}

func TestEnsureInitializedIsIdempotent(t *testing.T) {
	m, db := newTestManager(t, DefaultSchema())

	assert.False(t, m.IsInitialized())
	require.NoError(t, m.EnsureInitialized())
	assert.True(t, m.IsInitialized())

	for i := 0; i < 3; i++ {
		require.NoError(t, m.EnsureInitialized())
	}
	assert.Equal(t, 1, m.GetStats().InitializationCount)

	cur, err := db.Exec("SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'events'")
	require.NoError(t, err)
	assert.Len(t, cur.ToArray(), 1)
}

func TestEnsureInitializedCreatesEveryDefaultTable(t *testing.T) {
	m, db := newTestManager(t, DefaultSchema())
	require.NoError(t, m.EnsureInitialized())

	want := []string{
		"schema_version", "documents", "events", "things",
		"saga_transactions", "saga_step_results", "distributed_locks",
	}
	for _, table := range want {
		cur, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 0")
		require.NoError(t, err, "table %s should exist", table)
		assert.NotNil(t, cur)
	}

	cur, err := db.Exec(
		"INSERT INTO fts_search (source_table, source_rowid, text_content, ns, type) VALUES ('things', 1, 'hello world', 'n', 't')")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cur.RowsWritten)
}

func TestValidateRejectsEmptyTableName(t *testing.T) {
	s := types.Schema{Tables: []types.Table{{Name: "", Columns: []types.Column{{Name: "id", ColType: "TEXT"}}}}}
	m, _ := newTestManager(t, s)

	err := m.EnsureInitialized()
	require.Error(t, err)
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestValidateRejectsZeroColumnTable(t *testing.T) {
	s := types.Schema{Tables: []types.Table{{Name: "empty"}}}
	m, _ := newTestManager(t, s)

	err := m.EnsureInitialized()
	require.Error(t, err)
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestValidateAllowsVirtualTableWithNoColumns(t *testing.T) {
	s := types.Schema{Tables: []types.Table{{Name: "fts_only", Virtual: "fts5(body)"}}}
	m, _ := newTestManager(t, s)
	assert.NoError(t, m.EnsureInitialized())
}

func TestValidateRejectsDuplicateTableNames(t *testing.T) {
	col := []types.Column{{Name: "id", ColType: "TEXT"}}
	s := types.Schema{Tables: []types.Table{
		{Name: "dup", Columns: col},
		{Name: "dup", Columns: col},
	}}
	m, _ := newTestManager(t, s)

	err := m.EnsureInitialized()
	require.Error(t, err)
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestResetAllowsReInitialization(t *testing.T) {
	m, _ := newTestManager(t, DefaultSchema())
	require.NoError(t, m.EnsureInitialized())
	assert.Equal(t, 1, m.GetStats().InitializationCount)

	m.Reset()
	assert.False(t, m.IsInitialized())
	require.NoError(t, m.EnsureInitialized())
	assert.Equal(t, 2, m.GetStats().InitializationCount)
}

func TestGetSchemaInitializesOnFirstCall(t *testing.T) {
	m, _ := newTestManager(t, DefaultSchema())
	got, err := m.GetSchema()
	require.NoError(t, err)
	assert.True(t, m.IsInitialized())
	assert.Equal(t, DefaultSchema().Version, got.Version)
}
