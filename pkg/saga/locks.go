package saga

import (
	"time"

	"github.com/cuemby/corestate/pkg/instance"
	"github.com/cuemby/corestate/pkg/metrics"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/google/uuid"
)

// LockOptions configures acquireLock; the zero value is NOT valid on
// its own, use DefaultLockOptions() as a base.
type LockOptions struct {
	Mode       types.LockMode
	DurationMs int
	TimeoutMs  int
}

// DefaultLockOptions is Exclusive, 30s duration, fail-fast (0ms)
// timeout.
func DefaultLockOptions() LockOptions {
	return LockOptions{Mode: types.LockExclusive, DurationMs: 30000, TimeoutMs: 0}
}

// LockService implements a distributed-lock table backed by the same
// ctx.SQL the saga executor persists transactions through.
type LockService struct {
	ctx   *instance.Context
	clock types.Clock
	sleep func(time.Duration)
}

// NewLockService builds a LockService against ctx.
func NewLockService(ctx *instance.Context) *LockService {
	return &LockService{ctx: ctx, clock: types.SystemClock, sleep: time.Sleep}
}

const lockPollInterval = 10 * time.Millisecond

// AcquireLock blocks up to opts.TimeoutMs trying to acquire resource
// for owner, polling every lockPollInterval. opts.TimeoutMs == 0 means
// fail fast: a single attempt, no waiting. Returns nil, nil (not an
// error) when the lock could not be acquired before the timeout.
func (l *LockService) AcquireLock(resource, owner string, opts LockOptions) (*types.Lock, error) {
	if opts.Mode == "" {
		opts.Mode = types.LockExclusive
	}
	if opts.DurationMs == 0 {
		opts.DurationMs = 30000
	}

	deadline := time.Now().Add(time.Duration(opts.TimeoutMs) * time.Millisecond)
	for {
		lock, err := l.tryAcquire(resource, owner, opts)
		if err != nil {
			return nil, err
		}
		if lock != nil {
			metrics.LocksHeld.Inc()
			return lock, nil
		}
		if opts.TimeoutMs <= 0 || !time.Now().Before(deadline) {
			return nil, nil
		}
		l.sleep(lockPollInterval)
	}
}

func (l *LockService) tryAcquire(resource, owner string, opts LockOptions) (*types.Lock, error) {
	var acquired *types.Lock
	err := l.ctx.Block(func() error {
		now := l.clock()
		nowMs := now.UnixMilli()

		if _, err := l.ctx.SQL.Exec(
			"DELETE FROM distributed_locks WHERE resource = ? AND expires_at <= ?", resource, nowMs,
		); err != nil {
			return &types.StorageError{Op: "saga.acquireLock", Err: err}
		}

		cur, err := l.ctx.SQL.Exec(
			"SELECT mode FROM distributed_locks WHERE resource = ? AND expires_at > ?", resource, nowMs)
		if err != nil {
			return &types.StorageError{Op: "saga.acquireLock", Err: err}
		}
		rows := cur.ToArray()

		blocked := false
		if opts.Mode == types.LockExclusive {
			blocked = len(rows) > 0
		} else {
			for _, row := range rows {
				if row["mode"] == string(types.LockExclusive) {
					blocked = true
					break
				}
			}
		}
		if blocked {
			return nil
		}

		lock := &types.Lock{
			LockID:     uuid.NewString(),
			Resource:   resource,
			Owner:      owner,
			Mode:       opts.Mode,
			AcquiredAt: now,
			ExpiresAt:  now.Add(time.Duration(opts.DurationMs) * time.Millisecond),
		}
		_, err = l.ctx.SQL.Exec(
			`INSERT INTO distributed_locks (lock_id, resource, holder, mode, acquired_at, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			lock.LockID, lock.Resource, lock.Owner, string(lock.Mode),
			lock.AcquiredAt.UnixMilli(), lock.ExpiresAt.UnixMilli(),
		)
		if err != nil {
			return &types.StorageError{Op: "saga.acquireLock", Err: err}
		}
		acquired = lock
		return nil
	})
	return acquired, err
}

// ExtendLock updates expires_at = now + newDurationMs iff lockID still
// exists and has not expired.
func (l *LockService) ExtendLock(lockID string, newDurationMs int) (bool, error) {
	var extended bool
	err := l.ctx.Block(func() error {
		now := l.clock()
		newExpiry := now.Add(time.Duration(newDurationMs) * time.Millisecond).UnixMilli()
		cur, err := l.ctx.SQL.Exec(
			"UPDATE distributed_locks SET expires_at = ? WHERE lock_id = ? AND expires_at > ?",
			newExpiry, lockID, now.UnixMilli(),
		)
		if err != nil {
			return &types.StorageError{Op: "saga.extendLock", Err: err}
		}
		extended = cur.RowsWritten > 0
		return nil
	})
	return extended, err
}

// ReleaseLock deletes the lock row, returning whether a row existed.
func (l *LockService) ReleaseLock(lockID string) (bool, error) {
	var released bool
	err := l.ctx.Block(func() error {
		cur, err := l.ctx.SQL.Exec("DELETE FROM distributed_locks WHERE lock_id = ?", lockID)
		if err != nil {
			return &types.StorageError{Op: "saga.releaseLock", Err: err}
		}
		released = cur.RowsWritten > 0
		return nil
	})
	if err == nil && released {
		metrics.LocksHeld.Dec()
	}
	return released, err
}
