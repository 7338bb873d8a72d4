package instance

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/corestate/pkg/kv"
	"github.com/cuemby/corestate/pkg/sqlstore"
)

// ID identifies an addressable instance.
type ID struct {
	hex  string
	Name string
}

// NewID builds an ID from its hex form (mirrors NAMESPACE.idFromString).
func NewID(hex string) ID { return ID{hex: hex} }

// NewIDFromName builds a deterministic ID from a human name (mirrors
// NAMESPACE.idFromName).
func NewIDFromName(name string) ID { return ID{hex: name, Name: name} }

func (i ID) String() string      { return i.hex }
func (i ID) Equals(o ID) bool    { return i.hex == o.hex }

// Participant is a handle to another instance, reached by binding+id,
// used by hard cascades and the saga executor's participant calls.
// Production wiring resolves Call to the host's cross-instance
// transport; tests inject a fake.
type Participant interface {
	Call(ctx context.Context, method string, params []byte) (result []byte, status int, err error)
}

// ParticipantFactory resolves NAMESPACE.get(id) to a Participant handle.
type ParticipantFactory func(binding string, id ID) (Participant, bool)

// CriticalSection runs f to completion before any other invocation
// making progress through the same Context observes intermediate
// state.
type CriticalSection func(f func() error) error

// Context bundles everything a subsystem needs from its host: KV
// storage, the embedded relational engine, the critical-section
// primitive, alarms, and a way to reach other instances.
type Context struct {
	ID   ID
	KV   kv.Store
	SQL  *sqlstore.DB
	Block CriticalSection

	alarmMu sync.Mutex
	alarmAt *time.Time

	Participants ParticipantFactory
}

// Local builds an in-process Context good enough to exercise the full
// host contract: a mutex-serialized CriticalSection, an in-memory
// alarm, and caller-supplied KV/SQL/participants.
func Local(id ID, store kv.Store, db *sqlstore.DB, participants ParticipantFactory) *Context {
	var mu sync.Mutex
	return &Context{
		ID:  id,
		KV:  store,
		SQL: db,
		Block: func(f func() error) error {
			mu.Lock()
			defer mu.Unlock()
			return f()
		},
		Participants: participants,
	}
}

// SetAlarm replaces any prior alarm.
func (c *Context) SetAlarm(t time.Time) {
	c.alarmMu.Lock()
	defer c.alarmMu.Unlock()
	c.alarmAt = &t
}

// GetAlarm returns the set time, or nil if none is set.
func (c *Context) GetAlarm() *time.Time {
	c.alarmMu.Lock()
	defer c.alarmMu.Unlock()
	return c.alarmAt
}

// DeleteAlarm clears any set alarm.
func (c *Context) DeleteAlarm() {
	c.alarmMu.Lock()
	defer c.alarmMu.Unlock()
	c.alarmAt = nil
}
