package types

// Column describes one SQL column of a lazily-initialized table.
type Column struct {
	Name       string `yaml:"name"`
	ColType    string `yaml:"type"`
	PrimaryKey bool   `yaml:"primaryKey,omitempty"`
	NotNull    bool   `yaml:"notNull,omitempty"`
}

// Table describes one SQL table or virtual table.
type Table struct {
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`
	// Virtual, when set, is the module clause for a CREATE VIRTUAL
	// TABLE statement (e.g. "fts5(...)"); Columns is ignored for
	// virtual tables, the module clause carries the column list.
	Virtual string `yaml:"virtual,omitempty"`
	// Indexes are extra "CREATE INDEX IF NOT EXISTS" statements,
	// expressed as column lists over Name.
	Indexes [][]string `yaml:"indexes,omitempty"`
}

// Schema is the full, versioned table set a lazy schema manager must
// bring into existence.
type Schema struct {
	Version int     `yaml:"version"`
	Tables  []Table `yaml:"tables"`
}

// SchemaStats reports initialization count and timing.
type SchemaStats struct {
	InitializationCount  int
	LastInitTime         int64 // unix millis
	LastInitDurationMs   int64
}
