package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(dim, hot int) []float64 {
	v := make([]float64, dim)
	v[hot] = 1
	return v
}

func TestAddToHotIndexRejectsWrongDimension(t *testing.T) {
	ix := NewIndex(64)
	err := ix.AddToHotIndex("a", make([]float64, 32), nil, "", "")
	require.Error(t, err)
}

func TestSearchWithoutProviderReturnsPhase1Ranking(t *testing.T) {
	ix := NewIndex(4)
	require.NoError(t, ix.AddToHotIndex("a", unit(4, 0), nil, "", ""))
	require.NoError(t, ix.AddToHotIndex("b", unit(4, 1), nil, "", ""))

	results, err := ix.Search(unit(4, 0), SearchOptions{TopK: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestSearchFiltersByNamespaceAndType(t *testing.T) {
	ix := NewIndex(4)
	require.NoError(t, ix.AddToHotIndex("a", unit(4, 0), nil, "ns1", "doc"))
	require.NoError(t, ix.AddToHotIndex("b", unit(4, 0), nil, "ns2", "doc"))

	results, err := ix.Search(unit(4, 0), SearchOptions{TopK: 5, Namespace: "ns1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestSearchRerankWithProviderCanReorderResults(t *testing.T) {
	ix := NewIndex(4)
	// Both hot entries look identical to the truncated query; the full
	// embeddings disagree, and Phase 2 must be what decides the order.
	require.NoError(t, ix.AddToHotIndex("a", unit(4, 0), nil, "", ""))
	require.NoError(t, ix.AddToHotIndex("b", unit(4, 0), nil, "", ""))

	full := map[string][]float64{
		"a": unit(8, 1),
		"b": unit(8, 0),
	}
	ix.SetProvider(func(ids []string) map[string][]float64 {
		out := make(map[string][]float64, len(ids))
		for _, id := range ids {
			out[id] = full[id]
		}
		return out
	})

	query := unit(8, 0)
	results, err := ix.Search(query, SearchOptions{TopK: 2, CandidatePoolSize: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID, "phase 2 rerank must promote the full-embedding match")
}

func TestSearchMergeModeAdmitsIdsOutsidePhase1Pool(t *testing.T) {
	ix := NewIndex(4)
	require.NoError(t, ix.AddToHotIndex("a", unit(4, 0), nil, "", ""))

	ix.SetProvider(func(ids []string) map[string][]float64 {
		out := map[string][]float64{"outside": unit(4, 0)}
		for _, id := range ids {
			out[id] = unit(4, 1)
		}
		return out
	})

	results, err := ix.Search(unit(4, 0), SearchOptions{TopK: 5, MergeMode: true})
	require.NoError(t, err)

	var sawOutside bool
	for _, r := range results {
		if r.ID == "outside" {
			sawOutside = true
		}
	}
	assert.True(t, sawOutside, "merge mode must let the provider introduce ids outside the phase 1 pool")
}

func TestSearchMergeModeRerankSurvivesCandidatePoolReallocation(t *testing.T) {
	// Regression test: when the candidate pool exactly fills its
	// slice's capacity (poolSize == hot index size), admitting a
	// cold-only id via MergeMode forces the candidates slice to
	// reallocate. Every existing candidate's Phase 2 rerank score must
	// still land in the final results despite that reallocation.
	ix := NewIndex(4)
	require.NoError(t, ix.AddToHotIndex("a", unit(4, 0), nil, "", ""))
	require.NoError(t, ix.AddToHotIndex("b", unit(4, 1), nil, "", ""))
	require.NoError(t, ix.AddToHotIndex("c", unit(4, 2), nil, "", ""))

	full := map[string][]float64{
		"a":       unit(4, 3), // full embedding disagrees with hot-index similarity
		"b":       unit(4, 3),
		"c":       unit(4, 3),
		"outside": unit(4, 0),
	}
	ix.SetProvider(func(ids []string) map[string][]float64 {
		out := make(map[string][]float64, len(full))
		for k, v := range full {
			out[k] = v
		}
		_ = ids
		return out
	})

	query := unit(4, 3)
	results, err := ix.Search(query, SearchOptions{TopK: 4, CandidatePoolSize: 3, MergeMode: true})
	require.NoError(t, err)
	require.Len(t, results, 4)

	byID := make(map[string]float64, len(results))
	for _, r := range results {
		byID[r.ID] = r.Score
	}
	for _, id := range []string{"a", "b", "c"} {
		assert.InDelta(t, 1.0, byID[id], 1e-9, "rerank score for %q must survive candidate slice reallocation", id)
	}
	assert.Contains(t, byID, "outside")
}

func TestRemoveEvictsFromHotIndex(t *testing.T) {
	ix := NewIndex(4)
	require.NoError(t, ix.AddToHotIndex("a", unit(4, 0), nil, "", ""))
	assert.True(t, ix.Remove("a"))
	assert.False(t, ix.Remove("a"))
}

func TestStatsTracksIndexSizes(t *testing.T) {
	ix := NewIndex(4)
	require.NoError(t, ix.AddToHotIndex("a", unit(4, 0), nil, "", ""))
	ix.NoteColdDocument("cold-1")

	s := ix.Stats()
	assert.Equal(t, 1, s.HotIndexSize)
	assert.Equal(t, 1, s.ColdIndexSize)
}

func TestSearchZeroTopKReturnsEmpty(t *testing.T) {
	ix := NewIndex(4)
	results, err := ix.Search(unit(4, 0), SearchOptions{TopK: 0})
	require.NoError(t, err)
	assert.Empty(t, results)
}
