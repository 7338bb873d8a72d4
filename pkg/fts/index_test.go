package fts

import (
	"testing"

	"github.com/cuemby/corestate/pkg/instance"
	"github.com/cuemby/corestate/pkg/kv"
	"github.com/cuemby/corestate/pkg/schema"
	"github.com/cuemby/corestate/pkg/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	db, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := instance.Local(instance.NewIDFromName("fts-test"), kv.NewMemStore(), db, nil)
	require.NoError(t, schema.New(ctx, schema.DefaultSchema()).EnsureInitialized())
	return NewIndex(ctx)
}

func TestIndexTextAndSearch(t *testing.T) {
	ix := newTestIndex(t)

	require.NoError(t, ix.IndexText(IndexInput{SourceTable: "docs", SourceRowID: 1, TextContent: "lazy schema manager", NS: "default", Type: "doc"}))
	require.NoError(t, ix.IndexText(IndexInput{SourceTable: "docs", SourceRowID: 2, TextContent: "unrelated content", NS: "default", Type: "doc"}))

	hits, err := ix.Search("lazy", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].SourceRowID)
}

func TestSearchEmptyQueryReturnsNilWithoutError(t *testing.T) {
	ix := newTestIndex(t)
	hits, err := ix.Search("   ", SearchOptions{})
	require.NoError(t, err)
	assert.Nil(t, hits)
}

func TestSearchFiltersByNamespaceTypeAndSourceTable(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, ix.IndexText(IndexInput{SourceTable: "docs", SourceRowID: 1, TextContent: "widget spec", NS: "ns1", Type: "doc"}))
	require.NoError(t, ix.IndexText(IndexInput{SourceTable: "things", SourceRowID: 2, TextContent: "widget spec", NS: "ns2", Type: "note"}))

	hits, err := ix.Search("widget", SearchOptions{NS: "ns1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "docs", hits[0].SourceTable)

	hits, err = ix.Search("widget", SearchOptions{SourceTable: "things"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "things", hits[0].SourceTable)
}

func TestUpdateTextPreservesNamespaceAndType(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, ix.IndexText(IndexInput{SourceTable: "docs", SourceRowID: 1, TextContent: "old content", NS: "ns1", Type: "doc"}))

	require.NoError(t, ix.UpdateText("docs", 1, "new content"))

	stale, err := ix.Search("old", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, stale)

	fresh, err := ix.Search("new", SearchOptions{NS: "ns1", Type: "doc"})
	require.NoError(t, err)
	require.Len(t, fresh, 1)
}

func TestDeleteTextReportsWhetherRowExisted(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, ix.IndexText(IndexInput{SourceTable: "docs", SourceRowID: 1, TextContent: "content"}))

	deleted, err := ix.DeleteText("docs", 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	deletedAgain, err := ix.DeleteText("docs", 1)
	require.NoError(t, err)
	assert.False(t, deletedAgain)
}

func TestSearchOrdersByRank(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, ix.IndexText(IndexInput{SourceTable: "docs", SourceRowID: 1, TextContent: "widget widget widget"}))
	require.NoError(t, ix.IndexText(IndexInput{SourceTable: "docs", SourceRowID: 2, TextContent: "widget once"}))

	hits, err := ix.Search("widget", SearchOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.LessOrEqual(t, hits[0].Rank, hits[1].Rank, "bm25 rank is a negative cost: lower is a better match")
}
