package errbound

import (
	"runtime/debug"
	"sync"
	"time"

	corelog "github.com/cuemby/corestate/pkg/log"
	"github.com/cuemby/corestate/pkg/metrics"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/rs/zerolog"
)

// CallContext is the caller-supplied context passed to Wrap.
type CallContext struct {
	Operation string
	Request   any
	Metadata  map[string]any
}

// EnrichedContext merges a CallContext with the boundary's own
// identity: name, timestamp, and a captured stack trace. This is the
// shape passed to OnError and Fallback.
type EnrichedContext struct {
	CallContext
	BoundaryName string
	Timestamp    time.Time
	Stack        string
}

// Metrics tracks error/fallback/recovery counts, last error time, and
// a derived error rate.
type Metrics struct {
	ErrorCount    int
	FallbackCount int
	RecoveryCount int
	LastErrorAt   time.Time
	ErrorRate     float64
}

// Config configures a Boundary[T]. Name and Fallback are required;
// New rejects a Config missing either.
type Config[T any] struct {
	Name       string
	Fallback   func(err error, ctx EnrichedContext) T
	OnError    func(err error, ctx EnrichedContext)
	Rethrow    bool
	MaxRetries int
	RetryDelay time.Duration
}

// Boundary is a named failure-isolation scope: Wrap retries a failing
// operation, then falls back to a caller-defined value, recording
// metrics and entering an "error state" any failure clears only via
// ClearErrorState.
type Boundary[T any] struct {
	cfg    Config[T]
	logger zerolog.Logger
	sleep  func(time.Duration)

	mu         sync.Mutex
	errorState bool
	metrics    Metrics
	totalCalls int
}

// New validates cfg and builds a Boundary.
func New[T any](cfg Config[T]) (*Boundary[T], error) {
	if cfg.Name == "" {
		return nil, &types.ValidationError{Subject: "errbound.Config", Reason: "name must not be empty"}
	}
	if cfg.Fallback == nil {
		return nil, &types.ValidationError{Subject: "errbound.Config", Reason: "fallback is required"}
	}
	return &Boundary[T]{cfg: cfg, logger: corelog.WithComponent("errbound"), sleep: time.Sleep}, nil
}

// Wrap executes op, retrying up to cfg.MaxRetries additional times
// with cfg.RetryDelay between attempts. On exhaustion it calls
// cfg.OnError then returns cfg.Fallback's result. When cfg.Rethrow is
// set, the original error is also returned so an outer boundary can
// observe it; otherwise Wrap returns a nil error on the fallback path,
// absorbing the failure.
func (b *Boundary[T]) Wrap(op func() (T, error), ctx CallContext) (T, error) {
	b.mu.Lock()
	b.totalCalls++
	b.mu.Unlock()

	enriched := EnrichedContext{
		CallContext:  ctx,
		BoundaryName: b.cfg.Name,
		Timestamp:    time.Now(),
		Stack:        string(debug.Stack()),
	}

	attempts := b.cfg.MaxRetries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		result, err := op()
		if err == nil {
			if i > 0 {
				b.mu.Lock()
				b.metrics.RecoveryCount++
				b.mu.Unlock()
				metrics.BoundaryRecoveriesTotal.WithLabelValues(b.cfg.Name).Inc()
			}
			return result, nil
		}
		lastErr = err
		if i < attempts-1 {
			b.sleep(b.cfg.RetryDelay)
		}
	}

	b.mu.Lock()
	b.errorState = true
	b.metrics.ErrorCount++
	b.metrics.LastErrorAt = time.Now()
	b.metrics.ErrorRate = float64(b.metrics.ErrorCount) / float64(b.totalCalls)
	b.mu.Unlock()
	metrics.BoundaryErrorsTotal.WithLabelValues(b.cfg.Name).Inc()

	b.logger.Warn().Str("boundary", b.cfg.Name).Err(lastErr).Msg("operation failed, falling back")

	if b.cfg.OnError != nil {
		b.cfg.OnError(lastErr, enriched)
	}
	fallback := b.cfg.Fallback(lastErr, enriched)

	b.mu.Lock()
	b.metrics.FallbackCount++
	b.mu.Unlock()
	metrics.BoundaryFallbacksTotal.WithLabelValues(b.cfg.Name).Inc()

	if b.cfg.Rethrow {
		return fallback, lastErr
	}
	return fallback, nil
}

// InErrorState reports whether the boundary has observed a failure
// since the last ClearErrorState.
func (b *Boundary[T]) InErrorState() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorState
}

// ClearErrorState resets the error-state flag.
func (b *Boundary[T]) ClearErrorState() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorState = false
}

// GetMetrics returns a snapshot of the boundary's metrics.
func (b *Boundary[T]) GetMetrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

// ResetMetrics zeroes every counter.
func (b *Boundary[T]) ResetMetrics() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = Metrics{}
	b.totalCalls = 0
}
