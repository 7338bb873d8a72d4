package events

import (
	"encoding/json"
	"fmt"

	"github.com/cuemby/corestate/pkg/kv"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/google/uuid"
)

// KVLog is the KV-backed event log variant for deployments without
// the relational engine: entries are keyed
// "events:<timestamp padded to 20 digits>:<id>" so ascending key order
// is timestamp order, and there is no expectedVersion concept since
// there is no per-stream version counter to race against.
type KVLog struct {
	store kv.Store
	clock types.Clock
}

// NewKVLog builds a KVLog over store.
func NewKVLog(store kv.Store) *KVLog {
	return &KVLog{store: store, clock: types.SystemClock}
}

// Append writes one domain event and returns it. Unlike the relational
// Log, there is no optimistic concurrency check to fail: callers that
// need ordering guarantees read the result of Append and compare
// timestamps themselves.
func (l *KVLog) Append(aggregateID, eventType string, data, metadata []byte) (types.DomainEvent, error) {
	evt := types.DomainEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Data:        data,
		Timestamp:   l.clock().UnixMilli(),
		AggregateID: aggregateID,
		Metadata:    metadata,
	}

	encoded, err := json.Marshal(evt)
	if err != nil {
		return types.DomainEvent{}, &types.StorageError{Op: "events.kv.append", Err: err}
	}
	if err := l.store.Put(domainEventKey(evt.Timestamp, evt.ID), encoded); err != nil {
		return types.DomainEvent{}, &types.StorageError{Op: "events.kv.append", Err: err}
	}
	return evt, nil
}

// GetEvents returns every event for aggregateID in ascending timestamp
// order; the KV variant scans the whole "events:" prefix since the key
// space is ordered by time, not by aggregate.
func (l *KVLog) GetEvents(aggregateID string) ([]types.DomainEvent, error) {
	entries, err := l.store.List("events:")
	if err != nil {
		return nil, &types.StorageError{Op: "events.kv.getEvents", Err: err}
	}

	out := make([]types.DomainEvent, 0, len(entries))
	for _, e := range entries {
		var evt types.DomainEvent
		if err := json.Unmarshal(e.Value, &evt); err != nil {
			return nil, &types.StorageError{Op: "events.kv.getEvents", Err: err}
		}
		if evt.AggregateID == aggregateID {
			out = append(out, evt)
		}
	}
	return out, nil
}

func domainEventKey(ts int64, id string) string {
	return fmt.Sprintf("events:%020d:%s", ts, id)
}
