package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	// Registers the "sqlite" database/sql driver. Pure-Go, FTS5 built in.
	_ "modernc.org/sqlite"
)

// DB is a thin wrapper around *sql.DB that serializes all access
// through a single mutex. The instance this library runs inside is
// cooperatively single-threaded, so the mutex only protects against
// accidental concurrent use from host code running outside that
// discipline (e.g. a background metrics poller).
type DB struct {
	mu  sync.Mutex
	raw *sql.DB
}

// Open opens (or creates) a modernc.org/sqlite database at path.
// Pass ":memory:" for an ephemeral, process-local database, which is
// what tests and cmd/coredemo use.
func Open(path string) (*DB, error) {
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc.org/sqlite is not safe for concurrent writers from
	// multiple connections against the same file; cap the pool so
	// database/sql doesn't hand out a second writer.
	raw.SetMaxOpenConns(1)
	if err := raw.Ping(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &DB{raw: raw}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.raw.Close()
}

// Exec runs a single statement and returns a Cursor over its result.
// SELECT statements populate rows/columnNames/rowsRead; DML statements
// populate rowsWritten via sql.Result.RowsAffected.
func (d *DB) Exec(query string, args ...any) (*Cursor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Statements that return no rows go through Exec so RowsAffected
	// is available; Query would run them but report nothing written.
	head := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") && !strings.HasPrefix(head, "PRAGMA") {
		result, err := d.raw.Exec(query, args...)
		if err != nil {
			return nil, fmt.Errorf("exec %q: %w", query, err)
		}
		written, _ := result.RowsAffected()
		return &Cursor{RowsWritten: written}, nil
	}

	rows, err := d.raw.Query(query, args...)
	if err != nil {
		// Not every statement supports Query (e.g. CREATE TABLE on
		// some drivers); fall back to Exec for DDL/DML.
		result, execErr := d.raw.Exec(query, args...)
		if execErr != nil {
			return nil, fmt.Errorf("exec %q: %w", query, execErr)
		}
		written, _ := result.RowsAffected()
		return &Cursor{RowsWritten: written}, nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	c := &Cursor{ColumnNames: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		c.rawRows = append(c.rawRows, vals)
		c.RowsRead++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return c, nil
}
