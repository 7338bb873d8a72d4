package saga

import (
	"math"
	"math/rand"
	"time"

	"github.com/cuemby/corestate/pkg/types"
)

// effectivePolicy merges override onto types.DefaultRetryPolicy,
// field by field.
func effectivePolicy(override *types.RetryPolicy) types.RetryPolicy {
	p := types.DefaultRetryPolicy
	if override == nil {
		return p
	}
	if override.MaxAttempts != 0 {
		p.MaxAttempts = override.MaxAttempts
	}
	if override.BaseDelayMs != 0 {
		p.BaseDelayMs = override.BaseDelayMs
	}
	if override.BackoffMultiplier != 0 {
		p.BackoffMultiplier = override.BackoffMultiplier
	}
	if override.MaxDelayMs != 0 {
		p.MaxDelayMs = override.MaxDelayMs
	}
	if override.Jitter != 0 {
		p.Jitter = override.Jitter
	}
	return p
}

// backoffDelay computes the delay before retry attempt n (0-indexed):
// min(baseDelayMs * backoffMultiplier^n, maxDelayMs), then scaled by a
// uniform random factor in (1-jitter, 1+jitter).
func backoffDelay(p types.RetryPolicy, n int) time.Duration {
	raw := float64(p.BaseDelayMs) * math.Pow(p.BackoffMultiplier, float64(n))
	if capped := float64(p.MaxDelayMs); raw > capped {
		raw = capped
	}
	if p.Jitter > 0 {
		factor := 1 + (rand.Float64()*2-1)*p.Jitter
		raw *= factor
	}
	if raw < 0 {
		raw = 0
	}
	return time.Duration(raw) * time.Millisecond
}

// retryable reports whether err should be retried: a *types.SagaStepError
// defers to its Retryable flag; any other error (including nil-typed
// generic errors) is treated as retryable.
func retryable(err error) bool {
	if stepErr, ok := err.(*types.SagaStepError); ok {
		return stepErr.Retryable
	}
	return true
}
