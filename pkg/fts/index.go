package fts

import (
	"fmt"
	"strings"

	"github.com/cuemby/corestate/pkg/instance"
	"github.com/cuemby/corestate/pkg/metrics"
	"github.com/cuemby/corestate/pkg/types"
)

// IndexInput is the argument bundle for IndexText.
type IndexInput struct {
	SourceTable string
	SourceRowID int64
	TextContent string
	NS          string // defaults to "default"
	Type        string
}

// SearchOptions narrows Search.
type SearchOptions struct {
	NS          string
	Type        string
	SourceTable string
	Limit       int
}

// Index wraps the fts_search FTS5 virtual table (exact DDL in
// pkg/schema's DefaultSchema).
type Index struct {
	ctx *instance.Context
}

// NewIndex builds an Index against ctx.
func NewIndex(ctx *instance.Context) *Index {
	return &Index{ctx: ctx}
}

// IndexText inserts one row. ns defaults to "default" when empty.
func (x *Index) IndexText(in IndexInput) error {
	ns := in.NS
	if ns == "" {
		ns = "default"
	}
	_, err := x.ctx.SQL.Exec(
		`INSERT INTO fts_search (source_table, source_rowid, text_content, ns, type)
		 VALUES (?, ?, ?, ?, ?)`,
		in.SourceTable, in.SourceRowID, in.TextContent, ns, in.Type,
	)
	if err != nil {
		return &types.StorageError{Op: "fts.indexText", Err: err}
	}
	return nil
}

// UpdateText replaces the indexed text for (sourceTable, sourceRowid)
// via delete+insert, the only update pattern FTS5 virtual tables
// support. The original ns/type are preserved by selecting the row
// before deleting it.
func (x *Index) UpdateText(sourceTable string, sourceRowID int64, newText string) error {
	cur, err := x.ctx.SQL.Exec(
		`SELECT ns, type FROM fts_search WHERE source_table = ? AND source_rowid = ?`,
		sourceTable, sourceRowID,
	)
	if err != nil {
		return &types.StorageError{Op: "fts.updateText", Err: err}
	}
	rows := cur.ToArray()
	ns, typ := "default", ""
	if len(rows) > 0 {
		if v, ok := rows[0]["ns"].(string); ok {
			ns = v
		}
		if v, ok := rows[0]["type"].(string); ok {
			typ = v
		}
	}

	if _, err := x.ctx.SQL.Exec(
		`DELETE FROM fts_search WHERE source_table = ? AND source_rowid = ?`, sourceTable, sourceRowID,
	); err != nil {
		return &types.StorageError{Op: "fts.updateText", Err: err}
	}

	return x.IndexText(IndexInput{SourceTable: sourceTable, SourceRowID: sourceRowID, TextContent: newText, NS: ns, Type: typ})
}

// DeleteText removes the row for (sourceTable, sourceRowid), reporting
// whether one existed. Deleting a non-existent entry is a no-op that
// returns false.
func (x *Index) DeleteText(sourceTable string, sourceRowID int64) (bool, error) {
	cur, err := x.ctx.SQL.Exec(
		`DELETE FROM fts_search WHERE source_table = ? AND source_rowid = ?`, sourceTable, sourceRowID,
	)
	if err != nil {
		return false, &types.StorageError{Op: "fts.deleteText", Err: err}
	}
	return cur.RowsWritten > 0, nil
}

// Search runs a MATCH query, ordered by rank ascending (FTS5's bm25()
// is a negative cost: lower is a better match). An empty query
// returns an empty result without issuing any SQL.
func (x *Index) Search(q string, opts SearchOptions) ([]types.FTSHit, error) {
	if strings.TrimSpace(q) == "" {
		return nil, nil
	}

	query := strings.Builder{}
	query.WriteString(
		`SELECT source_table, source_rowid, text_content, ns, type, bm25(fts_search) AS rank
		 FROM fts_search WHERE fts_search MATCH ?`)
	args := []any{q}

	if opts.NS != "" {
		query.WriteString(" AND ns = ?")
		args = append(args, opts.NS)
	}
	if opts.Type != "" {
		query.WriteString(" AND type = ?")
		args = append(args, opts.Type)
	}
	if opts.SourceTable != "" {
		query.WriteString(" AND source_table = ?")
		args = append(args, opts.SourceTable)
	}
	query.WriteString(" ORDER BY rank ASC")
	if opts.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT %d", opts.Limit))
	}

	timer := metrics.NewTimer()
	cur, err := x.ctx.SQL.Exec(query.String(), args...)
	timer.ObserveDuration(metrics.FTSSearchDuration)
	if err != nil {
		return nil, &types.StorageError{Op: "fts.search", Err: err}
	}

	rows := cur.ToArray()
	out := make([]types.FTSHit, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToHit(row))
	}
	return out, nil
}

func rowToHit(row map[string]any) types.FTSHit {
	hit := types.FTSHit{
		SourceTable: toStringVal(row["source_table"]),
		TextContent: toStringVal(row["text_content"]),
		NS:          toStringVal(row["ns"]),
		Type:        toStringVal(row["type"]),
	}
	switch v := row["source_rowid"].(type) {
	case int64:
		hit.SourceRowID = v
	case int:
		hit.SourceRowID = int64(v)
	case float64:
		hit.SourceRowID = int64(v)
	}
	switch v := row["rank"].(type) {
	case float64:
		hit.Rank = v
	case int64:
		hit.Rank = float64(v)
	}
	return hit
}

func toStringVal(v any) string {
	s, _ := v.(string)
	return s
}
