package things

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/corestate/pkg/broadcast"
	"github.com/cuemby/corestate/pkg/fts"
	"github.com/cuemby/corestate/pkg/instance"
	corelog "github.com/cuemby/corestate/pkg/log"
	"github.com/cuemby/corestate/pkg/metrics"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/rs/zerolog"
)

// UpdatePatch is the argument to UpdateThing. URL and Context replace
// the stored value when non-nil; Data is shallow-merged into the
// existing data document so fields absent from the patch survive.
type UpdatePatch struct {
	URL     *string
	Context *string
	Data    map[string]any
}

// Repository is the (ns, type, id) row store backed by the "things"
// table the lazy schema manager brings into existence.
type Repository struct {
	ctx    *instance.Context
	bus    *broadcast.Bus
	index  *fts.Index
	clock  types.Clock
	logger zerolog.Logger
}

// NewRepository builds a Repository against ctx, emitting lifecycle
// events on bus.
func NewRepository(ctx *instance.Context, bus *broadcast.Bus) *Repository {
	return &Repository{ctx: ctx, bus: bus, clock: types.SystemClock, logger: corelog.WithComponent("things")}
}

// WithIndex wires a fts.Index so every Create/Update/Delete keeps
// "things" searchable: the thing's data document is flattened to text
// and indexed under source_table "things", source_rowid the row's
// SQLite rowid. Without a wired index, things are still queryable
// through SearchThings' LIKE fallback.
func (r *Repository) WithIndex(ix *fts.Index) *Repository {
	r.index = ix
	return r
}

func (r *Repository) rowID(ns, typ, id string) (int64, bool, error) {
	cur, err := r.ctx.SQL.Exec(`SELECT rowid FROM things WHERE ns = ? AND type = ? AND id = ?`, ns, typ, id)
	if err != nil {
		return 0, false, &types.StorageError{Op: "things.rowID", Err: err}
	}
	rows := cur.ToArray()
	if len(rows) == 0 {
		return 0, false, nil
	}
	switch v := rows[0]["rowid"].(type) {
	case int64:
		return v, true, nil
	case int:
		return int64(v), true, nil
	case float64:
		return int64(v), true, nil
	default:
		return 0, false, nil
	}
}

func flattenForIndex(data map[string]any) string {
	parts := make([]string, 0, len(data))
	for _, v := range data {
		if s, ok := v.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// CreateThing inserts a new row. A duplicate (ns, type, id) fails with
// the underlying SQL unique-constraint error wrapped in
// *types.StorageError.
func (r *Repository) CreateThing(ns, typ, id string, data map[string]any, url, context string) (types.Thing, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return types.Thing{}, &types.StorageError{Op: "things.createThing", Err: err}
	}
	now := r.clock()
	t := types.Thing{NS: ns, Type: typ, ID: id, URL: url, Data: encoded, Context: context, CreatedAt: now, UpdatedAt: now}

	_, execErr := r.ctx.SQL.Exec(
		`INSERT INTO things (ns, type, id, url, data, context, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.NS, t.Type, t.ID, t.URL, t.Data, t.Context, t.CreatedAt.UnixMilli(), t.UpdatedAt.UnixMilli(),
	)
	if execErr != nil {
		return types.Thing{}, &types.StorageError{Op: "things.createThing", Err: execErr}
	}

	metrics.ThingsTotal.WithLabelValues(ns).Inc()
	r.bus.Emit("thing:created", t)

	if r.index != nil {
		if rowID, ok, rowErr := r.rowID(ns, typ, id); rowErr == nil && ok {
			if err := r.index.IndexText(fts.IndexInput{
				SourceTable: "things", SourceRowID: rowID, TextContent: flattenForIndex(data), NS: ns, Type: typ,
			}); err != nil {
				r.logger.Warn().Err(err).Str("ns", ns).Str("id", id).Msg("failed to index thing")
			}
		}
	}
	return t, nil
}

// GetThing returns the row for (ns, type, id), or found=false if none
// exists.
func (r *Repository) GetThing(ns, typ, id string) (types.Thing, bool, error) {
	cur, err := r.ctx.SQL.Exec(
		`SELECT ns, type, id, url, data, context, created_at, updated_at
		 FROM things WHERE ns = ? AND type = ? AND id = ?`, ns, typ, id)
	if err != nil {
		return types.Thing{}, false, &types.StorageError{Op: "things.getThing", Err: err}
	}
	rows := cur.ToArray()
	if len(rows) == 0 {
		return types.Thing{}, false, nil
	}
	return rowToThing(rows[0]), true, nil
}

// UpdateThing merges patch into the stored row: Data is shallow-merged
// over the existing document (keys absent from patch.Data survive),
// URL/Context replace the prior value only when non-nil, and
// updated_at always advances.
func (r *Repository) UpdateThing(ns, typ, id string, patch UpdatePatch) (types.Thing, error) {
	existing, found, err := r.GetThing(ns, typ, id)
	if err != nil {
		return types.Thing{}, err
	}
	if !found {
		return types.Thing{}, &types.ValidationError{Subject: fmt.Sprintf("%s/%s/%s", ns, typ, id), Reason: "thing does not exist"}
	}

	merged := map[string]any{}
	if len(existing.Data) > 0 {
		if err := json.Unmarshal(existing.Data, &merged); err != nil {
			return types.Thing{}, &types.StorageError{Op: "things.updateThing", Err: err}
		}
	}
	for k, v := range patch.Data {
		merged[k] = v
	}
	encoded, err := json.Marshal(merged)
	if err != nil {
		return types.Thing{}, &types.StorageError{Op: "things.updateThing", Err: err}
	}

	url := existing.URL
	if patch.URL != nil {
		url = *patch.URL
	}
	context := existing.Context
	if patch.Context != nil {
		context = *patch.Context
	}
	now := r.clock()

	_, execErr := r.ctx.SQL.Exec(
		`UPDATE things SET url = ?, data = ?, context = ?, updated_at = ?
		 WHERE ns = ? AND type = ? AND id = ?`,
		url, encoded, context, now.UnixMilli(), ns, typ, id,
	)
	if execErr != nil {
		return types.Thing{}, &types.StorageError{Op: "things.updateThing", Err: execErr}
	}

	updated := types.Thing{NS: ns, Type: typ, ID: id, URL: url, Data: encoded, Context: context,
		CreatedAt: existing.CreatedAt, UpdatedAt: now}
	r.bus.Emit("thing:updated", updated)

	if r.index != nil {
		if rowID, ok, rowErr := r.rowID(ns, typ, id); rowErr == nil && ok {
			if err := r.index.UpdateText("things", rowID, flattenForIndex(merged)); err != nil {
				r.logger.Warn().Err(err).Str("ns", ns).Str("id", id).Msg("failed to reindex thing")
			}
		}
	}
	return updated, nil
}

// DeleteThing removes the row for (ns, type, id), reporting whether it
// existed.
func (r *Repository) DeleteThing(ns, typ, id string) (bool, error) {
	var rowID int64
	var hadRow bool
	if r.index != nil {
		rowID, hadRow, _ = r.rowID(ns, typ, id)
	}

	cur, err := r.ctx.SQL.Exec(`DELETE FROM things WHERE ns = ? AND type = ? AND id = ?`, ns, typ, id)
	if err != nil {
		return false, &types.StorageError{Op: "things.deleteThing", Err: err}
	}
	deleted := cur.RowsWritten > 0
	if deleted {
		metrics.ThingsTotal.WithLabelValues(ns).Dec()
		r.bus.Emit("thing:deleted", map[string]string{"ns": ns, "type": typ, "id": id})
		if r.index != nil && hadRow {
			if _, err := r.index.DeleteText("things", rowID); err != nil {
				r.logger.Warn().Err(err).Str("ns", ns).Str("id", id).Msg("failed to unindex thing")
			}
		}
	}
	return deleted, nil
}

// ListThings returns rows matching filter, ordered and paged per its
// OrderBy/Order/Limit/Offset.
func (r *Repository) ListThings(filter types.ListThingsFilter) ([]types.Thing, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ns, type, id, url, data, context, created_at, updated_at FROM things WHERE 1=1`)
	var args []any

	if filter.NS != "" {
		query.WriteString(" AND ns = ?")
		args = append(args, filter.NS)
	}
	if filter.Type != "" {
		query.WriteString(" AND type = ?")
		args = append(args, filter.Type)
	}

	col := orderColumn(filter.OrderBy)
	dir := "ASC"
	if strings.EqualFold(filter.Order, "desc") {
		dir = "DESC"
	}
	query.WriteString(fmt.Sprintf(" ORDER BY %s %s", col, dir))

	if filter.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
		if filter.Offset > 0 {
			query.WriteString(fmt.Sprintf(" OFFSET %d", filter.Offset))
		}
	}

	cur, err := r.ctx.SQL.Exec(query.String(), args...)
	if err != nil {
		return nil, &types.StorageError{Op: "things.listThings", Err: err}
	}
	rows := cur.ToArray()
	out := make([]types.Thing, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToThing(row))
	}
	return out, nil
}

func orderColumn(orderBy string) string {
	switch orderBy {
	case "updatedAt":
		return "updated_at"
	case "id":
		return "id"
	default:
		return "created_at"
	}
}

// SearchThingsFilter narrows SearchThings.
type SearchThingsFilter struct {
	NS    string
	Type  string
	Limit int
}

// SearchThings is a LIKE-based fallback search for when the caller
// doesn't go through the FTS index directly; it scans the data JSON
// blob for a substring match.
func (r *Repository) SearchThings(q string, filter SearchThingsFilter) ([]types.Thing, error) {
	if q == "" {
		return nil, nil
	}
	query := strings.Builder{}
	query.WriteString(`SELECT ns, type, id, url, data, context, created_at, updated_at FROM things WHERE data LIKE ?`)
	args := []any{"%" + q + "%"}

	if filter.NS != "" {
		query.WriteString(" AND ns = ?")
		args = append(args, filter.NS)
	}
	if filter.Type != "" {
		query.WriteString(" AND type = ?")
		args = append(args, filter.Type)
	}
	query.WriteString(" ORDER BY created_at ASC")
	if filter.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}

	cur, err := r.ctx.SQL.Exec(query.String(), args...)
	if err != nil {
		return nil, &types.StorageError{Op: "things.searchThings", Err: err}
	}
	rows := cur.ToArray()
	out := make([]types.Thing, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToThing(row))
	}
	return out, nil
}

func rowToThing(row map[string]any) types.Thing {
	t := types.Thing{
		NS:   toStringVal(row["ns"]),
		Type: toStringVal(row["type"]),
		ID:   toStringVal(row["id"]),
		URL:  toStringVal(row["url"]),
	}
	switch d := row["data"].(type) {
	case string:
		t.Data = []byte(d)
	case []byte:
		t.Data = d
	}
	t.Context = toStringVal(row["context"])
	t.CreatedAt = millisToTime(row["created_at"])
	t.UpdatedAt = millisToTime(row["updated_at"])
	return t
}

func toStringVal(v any) string {
	s, _ := v.(string)
	return s
}

func millisToTime(v any) time.Time {
	switch n := v.(type) {
	case int64:
		return time.UnixMilli(n)
	case int:
		return time.UnixMilli(int64(n))
	case float64:
		return time.UnixMilli(int64(n))
	default:
		return time.Time{}
	}
}
