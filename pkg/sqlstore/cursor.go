package sqlstore

import "fmt"

// Cursor is the result of one Exec call: columnNames, rowsRead,
// rowsWritten, plus ToArray/One (untyped row access) and Raw
// (raw-tuple access).
type Cursor struct {
	ColumnNames []string
	RowsRead    int
	RowsWritten int64

	rawRows [][]any
}

// Raw returns the underlying row tuples, one []any per row, in column
// order, for callers that want a raw-tuple iterator.
func (c *Cursor) Raw() [][]any {
	return c.rawRows
}

// ToArray returns every row as a column-name-keyed map.
func (c *Cursor) ToArray() []map[string]any {
	out := make([]map[string]any, len(c.rawRows))
	for i, row := range c.rawRows {
		out[i] = c.rowToMap(row)
	}
	return out
}

// One returns the single expected row, failing if the result set does
// not contain exactly one row.
func (c *Cursor) One() (map[string]any, error) {
	if len(c.rawRows) != 1 {
		return nil, fmt.Errorf("expected exactly one row, got %d", len(c.rawRows))
	}
	return c.rowToMap(c.rawRows[0]), nil
}

func (c *Cursor) rowToMap(row []any) map[string]any {
	m := make(map[string]any, len(c.ColumnNames))
	for i, col := range c.ColumnNames {
		if i < len(row) {
			m[col] = normalize(row[i])
		}
	}
	return m
}

// normalize coerces driver-returned []byte TEXT values to string, the
// common surprise with database/sql against SQLite.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
