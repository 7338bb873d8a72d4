package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuemby/corestate/pkg/instance"
	corelog "github.com/cuemby/corestate/pkg/log"
	"github.com/cuemby/corestate/pkg/metrics"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Log is the relational event log: one events table, indexed by
// (stream_id, version), brought into existence by pkg/schema before
// any Log is used.
type Log struct {
	ctx    *instance.Context
	clock  types.Clock
	sink   Sink
	logger zerolog.Logger
}

// Option configures a Log at construction.
type Option func(*Log)

// WithClock overrides the default wall-clock, for deterministic tests.
func WithClock(c types.Clock) Option {
	return func(l *Log) { l.clock = c }
}

// WithSink attaches the optional dual-write target.
func WithSink(s Sink) Option {
	return func(l *Log) { l.sink = s }
}

// NewLog builds a Log against ctx. Pass WithSink to enable the
// best-effort external emit; without it, appendEvent only writes
// locally.
func NewLog(ctx *instance.Context, opts ...Option) *Log {
	l := &Log{ctx: ctx, clock: types.SystemClock, logger: corelog.WithComponent("events")}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AppendEvent writes the next event for in.StreamID inside the
// instance's critical section: reads MAX(version), checks
// expectedVersion if supplied, then inserts version = current+1. On
// success it fires the optional dual-write emit in a detached
// goroutine; a sink failure is logged, never returned.
func (l *Log) AppendEvent(in types.AppendEventInput) (types.StoredEvent, error) {
	timer := metrics.NewTimer()
	var out types.StoredEvent
	err := l.ctx.Block(func() error {
		current, err := l.latestVersionLocked(in.StreamID)
		if err != nil {
			return err
		}
		if in.ExpectedVersion != nil && *in.ExpectedVersion != current {
			metrics.EventVersionConflictsTotal.WithLabelValues(in.StreamID).Inc()
			return &types.VersionConflictError{
				StreamID:        in.StreamID,
				ExpectedVersion: *in.ExpectedVersion,
				ActualVersion:   current,
			}
		}

		id := uuid.NewString()
		version := current + 1
		ts := l.clock().UnixMilli()

		_, err = l.ctx.SQL.Exec(
			`INSERT INTO events (id, stream_id, version, type, data, metadata, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, in.StreamID, version, in.Type, in.Data, in.Metadata, ts,
		)
		if err != nil {
			return &types.StorageError{Op: "events.appendEvent", Err: err}
		}

		out = types.StoredEvent{
			ID:        id,
			StreamID:  in.StreamID,
			Type:      in.Type,
			Data:      in.Data,
			Version:   version,
			Timestamp: ts,
			Metadata:  in.Metadata,
		}
		return nil
	})
	timer.ObserveDuration(metrics.EventAppendDuration)
	if err != nil {
		return types.StoredEvent{}, err
	}

	metrics.EventsAppendedTotal.WithLabelValues(in.StreamID).Inc()
	l.emit(out)
	return out, nil
}

// emit best-effort-publishes out to the configured Sink. Failure is
// logged and counted; it never propagates to the caller of
// AppendEvent, which has already committed the local write.
func (l *Log) emit(out types.StoredEvent) {
	if l.sink == nil {
		return
	}
	go func() {
		if err := l.sink.Publish(context.Background(), out); err != nil {
			metrics.EventDualWriteFailuresTotal.Inc()
			l.logger.Warn().Err(err).Str("stream_id", out.StreamID).Str("event_id", out.ID).
				Msg("dual-write emit failed, local append already committed")
		}
	}()
}

// GetEvents returns events for streamID in ascending version order,
// narrowed by filter. Predicates and LIMIT are appended to the query
// only when the corresponding filter field is set.
func (l *Log) GetEvents(streamID string, filter types.GetEventsFilter) ([]types.StoredEvent, error) {
	query := strings.Builder{}
	query.WriteString("SELECT id, stream_id, version, type, data, metadata, timestamp FROM events WHERE stream_id = ?")
	args := []any{streamID}

	if filter.AfterVersion != nil {
		query.WriteString(" AND version > ?")
		args = append(args, *filter.AfterVersion)
	}
	if filter.Type != "" {
		query.WriteString(" AND type = ?")
		args = append(args, filter.Type)
	}
	query.WriteString(" ORDER BY version ASC")
	if filter.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}

	cur, err := l.ctx.SQL.Exec(query.String(), args...)
	if err != nil {
		return nil, &types.StorageError{Op: "events.getEvents", Err: err}
	}

	out := make([]types.StoredEvent, 0, len(cur.Raw()))
	for _, row := range cur.ToArray() {
		out = append(out, rowToStoredEvent(row))
	}
	return out, nil
}

// GetLatestVersion returns COALESCE(MAX(version),0) for streamID.
func (l *Log) GetLatestVersion(streamID string) (int, error) {
	return l.latestVersionLocked(streamID)
}

// latestVersionLocked is safe to call both from inside AppendEvent's
// critical section and standalone; a plain read needs no locking of
// its own since SQLite serializes at the connection-pool level.
func (l *Log) latestVersionLocked(streamID string) (int, error) {
	cur, err := l.ctx.SQL.Exec(
		"SELECT COALESCE(MAX(version), 0) AS v FROM events WHERE stream_id = ?", streamID)
	if err != nil {
		return 0, &types.StorageError{Op: "events.getLatestVersion", Err: err}
	}
	row, err := cur.One()
	if err != nil {
		return 0, &types.StorageError{Op: "events.getLatestVersion", Err: err}
	}
	return toInt(row["v"]), nil
}

func rowToStoredEvent(row map[string]any) types.StoredEvent {
	e := types.StoredEvent{
		ID:        toStringVal(row["id"]),
		StreamID:  toStringVal(row["stream_id"]),
		Type:      toStringVal(row["type"]),
		Version:   toInt(row["version"]),
		Timestamp: toInt64(row["timestamp"]),
	}
	if data, ok := row["data"].(string); ok {
		e.Data = []byte(data)
	} else if data, ok := row["data"].([]byte); ok {
		e.Data = data
	}
	switch meta := row["metadata"].(type) {
	case string:
		if meta != "" {
			e.Metadata = []byte(meta)
		}
	case []byte:
		e.Metadata = meta
	}
	return e
}

func toStringVal(v any) string {
	s, _ := v.(string)
	return s
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
