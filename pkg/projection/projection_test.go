package projection

import (
	"testing"

	"github.com/cuemby/corestate/pkg/kv"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterEvent(typ string, ts int64) types.StoredEvent {
	return types.StoredEvent{Type: typ, Timestamp: ts}
}

func newCounterProjection(store kv.Store) *Projection {
	p := New("counters", func() any { return map[string]any{"count": 0} }, store)
	_ = p.When("incr", func(_ types.StoredEvent, state any) any {
		m := state.(map[string]any)
		return map[string]any{"count": m["count"].(int) + 1}
	})
	return p
}

func TestWhenRejectsDuplicateRegistration(t *testing.T) {
	p := newCounterProjection(nil)
	err := p.When("incr", func(_ types.StoredEvent, state any) any { return state })
	require.Error(t, err)
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestApplyUpdatesStateAndPosition(t *testing.T) {
	p := newCounterProjection(nil)
	p.Apply(counterEvent("incr", 100))
	p.Apply(counterEvent("incr", 50)) // out of order, position must not go backwards
	p.Apply(counterEvent("unknown", 200))

	assert.Equal(t, 2, p.GetState().(map[string]any)["count"])
	assert.Equal(t, int64(200), p.Position(), "position tracks max timestamp seen, including unknown types")
}

func TestCatchUpSkipsEventsAtOrBeforePosition(t *testing.T) {
	p := newCounterProjection(nil)
	p.ApplyBatch([]types.StoredEvent{counterEvent("incr", 10), counterEvent("incr", 20)})
	assert.Equal(t, int64(20), p.Position())

	p.CatchUp([]types.StoredEvent{
		counterEvent("incr", 5),  // stale, skipped
		counterEvent("incr", 20), // at position, skipped
		counterEvent("incr", 30), // new, applied
	})
	assert.Equal(t, 3, p.GetState().(map[string]any)["count"])
	assert.Equal(t, int64(30), p.Position())
}

func TestRebuildResetsStateAndPosition(t *testing.T) {
	p := newCounterProjection(nil)
	p.ApplyBatch([]types.StoredEvent{counterEvent("incr", 10), counterEvent("incr", 20)})
	require.Equal(t, 2, p.GetState().(map[string]any)["count"])

	p.Rebuild([]types.StoredEvent{counterEvent("incr", 5)})
	assert.Equal(t, 1, p.GetState().(map[string]any)["count"])
	assert.Equal(t, int64(5), p.Position())
}

func TestGetReadOnlyStateMutationDoesNotAffectProjection(t *testing.T) {
	p := newCounterProjection(nil)
	p.Apply(counterEvent("incr", 1))

	ro := p.GetReadOnlyState().(map[string]any)
	ro["count"] = 999
	ro["injected"] = true

	assert.Equal(t, 1, p.GetState().(map[string]any)["count"])
	_, hasInjected := p.GetState().(map[string]any)["injected"]
	assert.False(t, hasInjected)
}

func TestSaveAndLoadPositionRoundTrips(t *testing.T) {
	store := kv.NewMemStore()
	p := newCounterProjection(store)
	p.Apply(counterEvent("incr", 42))

	require.NoError(t, p.SavePosition())

	reloaded := newCounterProjection(store)
	require.NoError(t, reloaded.LoadPosition())
	assert.Equal(t, int64(42), reloaded.Position())
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newCounterProjection(nil)))
	err := r.Register(newCounterProjection(nil))
	require.Error(t, err)
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRegistryApplyToAllAndGetNames(t *testing.T) {
	r := NewRegistry()
	a := New("a", func() any { return map[string]any{"count": 0} }, nil)
	_ = a.When("incr", func(_ types.StoredEvent, state any) any {
		m := state.(map[string]any)
		return map[string]any{"count": m["count"].(int) + 1}
	})
	b := newCounterProjection(nil)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	r.ApplyToAll(counterEvent("incr", 1))
	assert.Equal(t, 1, a.GetState().(map[string]any)["count"])
	assert.Equal(t, 1, b.GetState().(map[string]any)["count"])
	assert.Equal(t, []string{"a", "counters"}, r.GetNames())
}

func TestRegistrySaveAllLoadAll(t *testing.T) {
	store := kv.NewMemStore()
	r := NewRegistry()
	p := newCounterProjection(store)
	require.NoError(t, r.Register(p))

	p.Apply(counterEvent("incr", 7))
	require.NoError(t, r.SaveAll())

	p2 := newCounterProjection(store)
	r2 := NewRegistry()
	require.NoError(t, r2.Register(p2))
	require.NoError(t, r2.LoadAll())
	assert.Equal(t, int64(7), p2.Position())
}
