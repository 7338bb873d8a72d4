package schema

import (
	"time"

	"github.com/cuemby/corestate/pkg/instance"
	corelog "github.com/cuemby/corestate/pkg/log"
	"github.com/cuemby/corestate/pkg/metrics"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/rs/zerolog"
)

// Manager brings a types.Schema into existence exactly once per
// database, the way a storage layer creates its buckets in a single
// constructor rather than on every access.
//
// The init flag and stats are guarded by flagMu so IsInitialized is a
// pure, I/O-free read; the DDL itself runs inside the host's
// CriticalSection so concurrent callers observe exactly one
// initialization no matter how many goroutines race EnsureInitialized.
type Manager struct {
	ctx    *instance.Context
	schema types.Schema
	logger zerolog.Logger

	flagMu      chan struct{} // binary semaphore doubling as flagMu lock
	initialized bool
	stats       types.SchemaStats
}

// New builds a Manager for schema against ctx. It performs no I/O and
// does not validate schema; validation happens lazily, inside the
// first EnsureInitialized call, the same moment it would fail in the
// real database.
func New(ctx *instance.Context, s types.Schema) *Manager {
	return &Manager{
		ctx:    ctx,
		schema: s,
		logger: corelog.WithComponent("schema"),
		flagMu: make(chan struct{}, 1),
	}
}

func (m *Manager) lock()   { m.flagMu <- struct{}{} }
func (m *Manager) unlock() { <-m.flagMu }

// IsInitialized reports whether EnsureInitialized has already run to
// completion. It never touches the database.
func (m *Manager) IsInitialized() bool {
	m.lock()
	defer m.unlock()
	return m.initialized
}

// EnsureInitialized validates and brings the schema into existence on
// its first call; every later call (concurrent or sequential) is a
// no-op. Returns *types.ValidationError for a malformed schema, or a
// *types.StorageError wrapping whatever the SQL engine reported.
func (m *Manager) EnsureInitialized() error {
	if m.IsInitialized() {
		return nil
	}
	return m.ctx.Block(func() error {
		if m.IsInitialized() {
			return nil
		}
		if err := Validate(m.schema); err != nil {
			return err
		}

		start := time.Now()
		for _, stmt := range ddlStatements(m.schema) {
			if _, err := m.ctx.SQL.Exec(stmt); err != nil {
				return &types.StorageError{Op: "schema.ensureInitialized", Err: err}
			}
		}
		dur := time.Since(start)

		m.lock()
		m.initialized = true
		m.stats.InitializationCount++
		m.stats.LastInitTime = time.Now().UnixMilli()
		m.stats.LastInitDurationMs = dur.Milliseconds()
		m.unlock()

		metrics.SchemaInitTotal.Inc()
		metrics.SchemaLastInitSeconds.Set(dur.Seconds())
		m.logger.Info().
			Int("tables", len(m.schema.Tables)).
			Dur("duration", dur).
			Msg("schema initialized")
		return nil
	})
}

// GetSchema ensures the schema is initialized and returns it.
func (m *Manager) GetSchema() (types.Schema, error) {
	if err := m.EnsureInitialized(); err != nil {
		return types.Schema{}, err
	}
	return m.schema, nil
}

// Reset clears the initialized flag so the next EnsureInitialized call
// re-runs the DDL (harmless, since every statement is IF NOT EXISTS).
// Intended for tests that reuse a Manager against a fresh database.
func (m *Manager) Reset() {
	m.lock()
	defer m.unlock()
	m.initialized = false
}

// GetStats returns a snapshot of initialization bookkeeping.
func (m *Manager) GetStats() types.SchemaStats {
	m.lock()
	defer m.unlock()
	return m.stats
}
