package types

import "time"

// StoredEvent is a single row of the relational event log.
type StoredEvent struct {
	ID        string
	StreamID  string
	Type      string
	Data      []byte // JSON
	Version   int
	Timestamp int64 // unix millis, monotonic within a stream
	Metadata  []byte // JSON, may be nil
}

// DomainEvent is the KV-backed variant of a stored event, keyed by
// "events:<timestamp>:<id>" so lexicographic key order equals
// timestamp order.
type DomainEvent struct {
	ID          string
	Type        string
	Data        []byte
	Timestamp   int64
	AggregateID string
	Metadata    []byte
}

// AppendEventInput is the argument bundle for appendEvent on both the
// relational and KV-backed event logs.
type AppendEventInput struct {
	StreamID        string
	Type            string
	Data            []byte
	Metadata        []byte
	ExpectedVersion *int // nil means "no optimistic concurrency check"
}

// GetEventsFilter narrows a getEvents read.
type GetEventsFilter struct {
	AfterVersion *int
	Type         string
	Limit        int
}

// Clock abstracts "now" so tests can control timestamps without the
// event log depending on wall-clock time directly.
type Clock func() time.Time

// SystemClock is the production Clock.
func SystemClock() time.Time { return time.Now() }
