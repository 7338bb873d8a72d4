package schema

import "github.com/cuemby/corestate/pkg/types"

// DefaultSchema is the table set every corestate instance needs: the
// event log, the things/FTS tables, and the saga/lock tables that
// pkg/events, pkg/things, pkg/fts, and pkg/saga assume exist once
// EnsureInitialized has run. A host application may pass its own
// types.Schema to New instead, so long as it still carries these
// tables (or a superset of them).
func DefaultSchema() types.Schema {
	return types.Schema{
		Version: 1,
		Tables: []types.Table{
			{
				Name: "schema_version",
				Columns: []types.Column{
					{Name: "version", ColType: "INTEGER", PrimaryKey: true},
					{Name: "applied_at", ColType: "INTEGER", NotNull: true},
				},
			},
			{
				Name: "documents",
				Columns: []types.Column{
					{Name: "id", ColType: "TEXT", PrimaryKey: true},
					{Name: "data", ColType: "BLOB", NotNull: true},
					{Name: "updated_at", ColType: "INTEGER", NotNull: true},
				},
			},
			{
				Name: "events",
				Columns: []types.Column{
					{Name: "id", ColType: "TEXT", PrimaryKey: true},
					{Name: "stream_id", ColType: "TEXT", NotNull: true},
					{Name: "version", ColType: "INTEGER", NotNull: true},
					{Name: "type", ColType: "TEXT", NotNull: true},
					{Name: "data", ColType: "BLOB", NotNull: true},
					{Name: "metadata", ColType: "BLOB"},
					{Name: "timestamp", ColType: "INTEGER", NotNull: true},
				},
				Indexes: [][]string{
					{"stream_id", "version"},
					{"timestamp"},
				},
			},
			{
				Name: "things",
				Columns: []types.Column{
					{Name: "ns", ColType: "TEXT", NotNull: true},
					{Name: "type", ColType: "TEXT", NotNull: true},
					{Name: "id", ColType: "TEXT", NotNull: true},
					{Name: "url", ColType: "TEXT"},
					{Name: "data", ColType: "BLOB", NotNull: true},
					{Name: "context", ColType: "TEXT"},
					{Name: "created_at", ColType: "INTEGER", NotNull: true},
					{Name: "updated_at", ColType: "INTEGER", NotNull: true},
				},
				Indexes: [][]string{
					{"ns", "type", "id"},
				},
			},
			{
				Name: "fts_search",
				Virtual: "fts5(source_table, source_rowid UNINDEXED, text_content, " +
					"ns UNINDEXED, type UNINDEXED, tokenize='porter unicode61')",
			},
			{
				Name: "saga_transactions",
				Columns: []types.Column{
					{Name: "id", ColType: "TEXT", PrimaryKey: true},
					{Name: "state", ColType: "TEXT", NotNull: true},
					{Name: "definition", ColType: "BLOB", NotNull: true},
					{Name: "error", ColType: "TEXT"},
					{Name: "created_at", ColType: "INTEGER", NotNull: true},
					{Name: "updated_at", ColType: "INTEGER", NotNull: true},
				},
			},
			{
				Name: "saga_step_results",
				Columns: []types.Column{
					{Name: "transaction_id", ColType: "TEXT", NotNull: true, PrimaryKey: true},
					{Name: "step_id", ColType: "TEXT", NotNull: true, PrimaryKey: true},
					{Name: "is_compensation", ColType: "INTEGER", NotNull: true, PrimaryKey: true},
					{Name: "success", ColType: "INTEGER", NotNull: true},
					{Name: "data", ColType: "BLOB"},
					{Name: "error", ColType: "TEXT"},
					{Name: "retry_count", ColType: "INTEGER", NotNull: true},
					{Name: "started_at", ColType: "INTEGER", NotNull: true},
					{Name: "completed_at", ColType: "INTEGER", NotNull: true},
				},
			},
			{
				Name: "distributed_locks",
				Columns: []types.Column{
					{Name: "lock_id", ColType: "TEXT", PrimaryKey: true},
					{Name: "resource", ColType: "TEXT", NotNull: true},
					{Name: "holder", ColType: "TEXT", NotNull: true},
					{Name: "mode", ColType: "TEXT", NotNull: true},
					{Name: "acquired_at", ColType: "INTEGER", NotNull: true},
					{Name: "expires_at", ColType: "INTEGER", NotNull: true},
				},
				Indexes: [][]string{
					{"resource"},
				},
			},
		},
	}
}
