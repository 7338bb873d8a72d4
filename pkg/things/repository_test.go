package things

import (
	"testing"

	"github.com/cuemby/corestate/pkg/broadcast"
	"github.com/cuemby/corestate/pkg/fts"
	"github.com/cuemby/corestate/pkg/instance"
	"github.com/cuemby/corestate/pkg/kv"
	"github.com/cuemby/corestate/pkg/schema"
	"github.com/cuemby/corestate/pkg/sqlstore"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*Repository, *broadcast.Bus, *instance.Context) {
	t.Helper()
	db, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := instance.Local(instance.NewIDFromName("things-test"), kv.NewMemStore(), db, nil)
	require.NoError(t, schema.New(ctx, schema.DefaultSchema()).EnsureInitialized())

	bus := broadcast.New()
	return NewRepository(ctx, bus), bus, ctx
}

func TestCreateGetThing(t *testing.T) {
	repo, bus, _ := newTestRepo(t)
	var events []string
	bus.OnAny(func(event string, payload any) { events = append(events, event) })

	created, err := repo.CreateThing("default", "note", "n1", map[string]any{"title": "hi"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "n1", created.ID)

	got, found, err := repo.GetThing("default", "note", "n1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, created.ID, got.ID)
	assert.JSONEq(t, `{"title":"hi"}`, string(got.Data))
	assert.Equal(t, []string{"thing:created"}, events)
}

func TestGetThingNotFound(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	_, found, err := repo.GetThing("default", "note", "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpdateThingMergesData(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	_, err := repo.CreateThing("default", "note", "n1", map[string]any{"title": "hi", "body": "old"}, "", "")
	require.NoError(t, err)

	updated, err := repo.UpdateThing("default", "note", "n1", UpdatePatch{Data: map[string]any{"body": "new"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"hi","body":"new"}`, string(updated.Data))
}

func TestUpdateThingMissingFails(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	_, err := repo.UpdateThing("default", "note", "missing", UpdatePatch{})
	require.Error(t, err)
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDeleteThing(t *testing.T) {
	repo, bus, _ := newTestRepo(t)
	var events []string
	bus.OnAny(func(event string, payload any) { events = append(events, event) })

	_, err := repo.CreateThing("default", "note", "n1", map[string]any{}, "", "")
	require.NoError(t, err)

	deleted, err := repo.DeleteThing("default", "note", "n1")
	require.NoError(t, err)
	assert.True(t, deleted)

	again, err := repo.DeleteThing("default", "note", "n1")
	require.NoError(t, err)
	assert.False(t, again)

	assert.Equal(t, []string{"thing:created", "thing:deleted"}, events)
}

func TestListThingsFiltersAndOrders(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	_, err := repo.CreateThing("ns1", "note", "a", map[string]any{}, "", "")
	require.NoError(t, err)
	_, err = repo.CreateThing("ns1", "note", "b", map[string]any{}, "", "")
	require.NoError(t, err)
	_, err = repo.CreateThing("ns2", "note", "c", map[string]any{}, "", "")
	require.NoError(t, err)

	list, err := repo.ListThings(types.ListThingsFilter{NS: "ns1"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	limited, err := repo.ListThings(types.ListThingsFilter{NS: "ns1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "a", limited[0].ID)
}

func TestSearchThingsMatchesSubstring(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	_, err := repo.CreateThing("default", "note", "n1", map[string]any{"title": "widget spec"}, "", "")
	require.NoError(t, err)
	_, err = repo.CreateThing("default", "note", "n2", map[string]any{"title": "unrelated"}, "", "")
	require.NoError(t, err)

	hits, err := repo.SearchThings("widget", SearchThingsFilter{NS: "default"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "n1", hits[0].ID)
}

func TestWithIndexKeepsFTSInSyncAcrossLifecycle(t *testing.T) {
	repo, bus, ctx := newTestRepo(t)
	index := fts.NewIndex(ctx)
	repo = repo.WithIndex(index)
	_ = bus

	_, err := repo.CreateThing("default", "note", "n1", map[string]any{"body": "lazy schema manager"}, "", "")
	require.NoError(t, err)

	hits, err := index.Search("lazy", fts.SearchOptions{SourceTable: "things"})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	_, err = repo.UpdateThing("default", "note", "n1", UpdatePatch{Data: map[string]any{"body": "vector search"}})
	require.NoError(t, err)

	staleHits, err := index.Search("lazy", fts.SearchOptions{SourceTable: "things"})
	require.NoError(t, err)
	assert.Empty(t, staleHits, "the old text must no longer match after an update")

	freshHits, err := index.Search("vector", fts.SearchOptions{SourceTable: "things"})
	require.NoError(t, err)
	require.Len(t, freshHits, 1)

	deleted, err := repo.DeleteThing("default", "note", "n1")
	require.NoError(t, err)
	assert.True(t, deleted)

	afterDelete, err := index.Search("vector", fts.SearchOptions{SourceTable: "things"})
	require.NoError(t, err)
	assert.Empty(t, afterDelete)
}
