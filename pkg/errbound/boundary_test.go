package errbound

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsMissingNameOrFallback(t *testing.T) {
	_, err := New(Config[int]{Fallback: func(error, EnrichedContext) int { return 0 }})
	require.Error(t, err)

	_, err = New[int](Config[int]{Name: "x"})
	require.Error(t, err)
}

func TestWrapReturnsResultWithoutRetryOnSuccess(t *testing.T) {
	b, err := New(Config[int]{Name: "ok", Fallback: func(error, EnrichedContext) int { return -1 }})
	require.NoError(t, err)

	calls := 0
	result, err := b.Wrap(func() (int, error) {
		calls++
		return 42, nil
	}, CallContext{Operation: "get"})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 1, calls)
	assert.False(t, b.InErrorState())
}

func TestWrapRetriesThenRecovers(t *testing.T) {
	b, err := New(Config[int]{Name: "retry", MaxRetries: 2, Fallback: func(error, EnrichedContext) int { return -1 }})
	require.NoError(t, err)
	b.sleep = func(time.Duration) {}

	calls := 0
	result, err := b.Wrap(func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 7, nil
	}, CallContext{})

	require.NoError(t, err)
	assert.Equal(t, 7, result)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, b.GetMetrics().RecoveryCount)
}

func TestWrapFallsBackAfterExhaustingRetries(t *testing.T) {
	var onErrorCalled bool
	b, err := New(Config[string]{
		Name:       "exhaust",
		MaxRetries: 1,
		OnError:    func(error, EnrichedContext) { onErrorCalled = true },
		Fallback:   func(error, EnrichedContext) string { return "fallback" },
	})
	require.NoError(t, err)
	b.sleep = func(time.Duration) {}

	calls := 0
	result, err := b.Wrap(func() (string, error) {
		calls++
		return "", errors.New("always fails")
	}, CallContext{Operation: "lookup"})

	require.NoError(t, err, "without Rethrow, the fallback path absorbs the failure")
	assert.Equal(t, "fallback", result)
	assert.Equal(t, 2, calls, "MaxRetries=1 means one retry after the first attempt")
	assert.True(t, onErrorCalled)
	assert.True(t, b.InErrorState())

	metrics := b.GetMetrics()
	assert.Equal(t, 1, metrics.ErrorCount)
	assert.Equal(t, 1, metrics.FallbackCount)
}

func TestWrapRethrowsOriginalErrorWhenConfigured(t *testing.T) {
	b, err := New(Config[string]{
		Name:     "rethrow",
		Rethrow:  true,
		Fallback: func(error, EnrichedContext) string { return "fallback" },
	})
	require.NoError(t, err)
	b.sleep = func(time.Duration) {}

	wantErr := errors.New("boom")
	result, err := b.Wrap(func() (string, error) { return "", wantErr }, CallContext{})

	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, "fallback", result, "Rethrow still returns the fallback value alongside the error")
}

func TestClearErrorStateResets(t *testing.T) {
	b, err := New(Config[int]{Name: "clear", Fallback: func(error, EnrichedContext) int { return 0 }})
	require.NoError(t, err)
	b.sleep = func(time.Duration) {}

	_, _ = b.Wrap(func() (int, error) { return 0, errors.New("x") }, CallContext{})
	require.True(t, b.InErrorState())

	b.ClearErrorState()
	assert.False(t, b.InErrorState())
}

func TestResetMetricsZeroesCounters(t *testing.T) {
	b, err := New(Config[int]{Name: "reset", Fallback: func(error, EnrichedContext) int { return 0 }})
	require.NoError(t, err)
	b.sleep = func(time.Duration) {}

	_, _ = b.Wrap(func() (int, error) { return 0, errors.New("x") }, CallContext{})
	b.ResetMetrics()

	assert.Equal(t, Metrics{}, b.GetMetrics())
}
