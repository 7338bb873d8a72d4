package saga

import (
	"testing"
	"time"

	"github.com/cuemby/corestate/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestEffectivePolicyMergesOverride(t *testing.T) {
	p := effectivePolicy(&types.RetryPolicy{MaxAttempts: 7})
	assert.Equal(t, 7, p.MaxAttempts)
	assert.Equal(t, types.DefaultRetryPolicy.BaseDelayMs, p.BaseDelayMs)
}

func TestEffectivePolicyNilUsesDefault(t *testing.T) {
	assert.Equal(t, types.DefaultRetryPolicy, effectivePolicy(nil))
}

func TestBackoffDelayCapsAtMaxDelay(t *testing.T) {
	p := types.RetryPolicy{BaseDelayMs: 1000, BackoffMultiplier: 10, MaxDelayMs: 2000, Jitter: 0}
	d := backoffDelay(p, 5)
	assert.Equal(t, 2000*time.Millisecond, d)
}

func TestBackoffDelayGrowsWithAttempt(t *testing.T) {
	p := types.RetryPolicy{BaseDelayMs: 100, BackoffMultiplier: 2, MaxDelayMs: 100000, Jitter: 0}
	d0 := backoffDelay(p, 0)
	d1 := backoffDelay(p, 1)
	assert.Equal(t, 100*time.Millisecond, d0)
	assert.Equal(t, 200*time.Millisecond, d1)
}

func TestRetryableDefersToSagaStepErrorFlag(t *testing.T) {
	assert.True(t, retryable(&types.SagaStepError{Retryable: true}))
	assert.False(t, retryable(&types.SagaStepError{Retryable: false}))
}

func TestRetryableTreatsUntypedErrorsAsRetryable(t *testing.T) {
	assert.True(t, retryable(assert.AnError))
}
