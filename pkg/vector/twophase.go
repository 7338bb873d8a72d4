package vector

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/corestate/pkg/metrics"
)

// FullEmbeddingProvider resolves the cold, full-dimension embedding for
// a batch of ids, the injected collaborator Phase 2 reranks against.
// A missing or nil entry for an id means "no full embedding available";
// the id keeps its Phase-1 score.
type FullEmbeddingProvider func(ids []string) map[string][]float64

// HotEntry is one row of the hot index: a truncated, unit-normalized
// vector plus optional metadata and ns/type for filtering.
type HotEntry struct {
	Vector   []float64
	Metadata map[string]any
	NS       string
	Type     string
}

// SearchOptions configures Search.
type SearchOptions struct {
	TopK              int
	CandidatePoolSize int // 0 means default to TopK
	Namespace         string
	Type              string
	MergeMode         bool
}

// Result is one ranked hit.
type Result struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Stats reports engine activity for observability.
type Stats struct {
	HotIndexSize      int
	ColdIndexSize     int
	AveragePhase1Time time.Duration
	AveragePhase2Time time.Duration
}

// Index is a two-phase MRL search engine: an in-memory hot index of
// truncated vectors, reranked on demand by an injected full-embedding
// provider.
type Index struct {
	mu   sync.RWMutex
	dHot int
	hot  map[string]HotEntry

	provider FullEmbeddingProvider
	coldSeen map[string]bool

	phase1Total time.Duration
	phase1Count int
	phase2Total time.Duration
	phase2Count int
}

// NewIndex builds an Index with a fixed hot dimension dHot (one of
// SupportedDimensions).
func NewIndex(dHot int) *Index {
	return &Index{dHot: dHot, hot: make(map[string]HotEntry), coldSeen: make(map[string]bool)}
}

// SetProvider wires the Phase 2 collaborator. Without one, Search
// returns Phase 1 results only.
func (ix *Index) SetProvider(p FullEmbeddingProvider) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.provider = p
}

// AddToHotIndex stores vector (already truncated to dHot and
// normalized) under id. A vector of the wrong length is rejected.
func (ix *Index) AddToHotIndex(id string, vector []float64, metadata map[string]any, ns, typ string) error {
	if len(vector) != ix.dHot {
		return &dimensionError{got: len(vector), want: ix.dHot}
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.hot[id] = HotEntry{Vector: append([]float64(nil), vector...), Metadata: metadata, NS: ns, Type: typ}
	return nil
}

// Remove evicts id from the hot index, reporting whether it existed.
func (ix *Index) Remove(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.hot[id]; !ok {
		return false
	}
	delete(ix.hot, id)
	return true
}

// NoteColdDocument records that a full-dimension-only document exists,
// for ColdIndexSize bookkeeping (it never enters the hot index).
func (ix *Index) NoteColdDocument(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.coldSeen[id] = true
}

// Stats returns a snapshot of engine bookkeeping.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s := Stats{HotIndexSize: len(ix.hot), ColdIndexSize: len(ix.coldSeen)}
	if ix.phase1Count > 0 {
		s.AveragePhase1Time = ix.phase1Total / time.Duration(ix.phase1Count)
	}
	if ix.phase2Count > 0 {
		s.AveragePhase2Time = ix.phase2Total / time.Duration(ix.phase2Count)
	}
	return s
}

type scored struct {
	id       string
	score    float64
	metadata map[string]any
}

// Search runs the two-phase pipeline: a fast Phase 1 cosine pass over
// the truncated hot index, producing a
// candidate pool, then (if a provider is wired) a Phase 2 rerank
// against full-dimension embeddings for exactly that pool.
func (ix *Index) Search(query []float64, opts SearchOptions) ([]Result, error) {
	if opts.TopK <= 0 {
		return []Result{}, nil
	}

	normFull, err := Normalize(query)
	if err != nil {
		return nil, err
	}
	queryHot := normFull
	if len(normFull) != ix.dHot {
		queryHot, err = TruncateAndNormalize(normFull, ix.dHot)
		if err != nil {
			return nil, err
		}
	}

	poolSize := opts.CandidatePoolSize
	if poolSize < opts.TopK {
		poolSize = opts.TopK
	}

	phase1Start := time.Now()
	ix.mu.RLock()
	candidates := make([]scored, 0, len(ix.hot))
	for id, entry := range ix.hot {
		if opts.Namespace != "" && entry.NS != opts.Namespace {
			continue
		}
		if opts.Type != "" && entry.Type != opts.Type {
			continue
		}
		sim, err := CosineSimilarity(queryHot, entry.Vector)
		if err != nil {
			continue
		}
		candidates = append(candidates, scored{id: id, score: sim, metadata: entry.Metadata})
	}
	provider := ix.provider
	ix.mu.RUnlock()

	sortDesc(candidates)
	if len(candidates) > poolSize {
		candidates = candidates[:poolSize]
	}
	ix.recordPhase1(time.Since(phase1Start))

	if provider == nil {
		return toResults(candidates, opts.TopK), nil
	}

	phase2Start := time.Now()
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	full := provider(ids)
	ix.recordPhase2(time.Since(phase2Start))

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.id] = true
	}

	rerank := make(map[string]float64, len(full))
	var coldOnly []scored
	for id, vec := range full {
		if vec == nil {
			continue
		}
		sim, err := CosineSimilarity(normFull, vec)
		if err != nil {
			continue
		}
		if known[id] {
			rerank[id] = sim
			continue
		}
		if opts.MergeMode {
			coldOnly = append(coldOnly, scored{id: id, score: sim})
		}
	}

	for i := range candidates {
		if sim, ok := rerank[candidates[i].id]; ok {
			candidates[i].score = sim
		}
	}
	candidates = append(candidates, coldOnly...)

	sortDesc(candidates)
	return toResults(candidates, opts.TopK), nil
}

func sortDesc(s []scored) {
	sort.Slice(s, func(i, j int) bool { return s[i].score > s[j].score })
}

func toResults(s []scored, topK int) []Result {
	if len(s) > topK {
		s = s[:topK]
	}
	out := make([]Result, len(s))
	for i, c := range s {
		out[i] = Result{ID: c.id, Score: c.score, Metadata: c.metadata}
	}
	return out
}

func (ix *Index) recordPhase1(d time.Duration) {
	ix.mu.Lock()
	ix.phase1Total += d
	ix.phase1Count++
	ix.mu.Unlock()
	metrics.VectorPhase1Duration.Observe(d.Seconds())
}

func (ix *Index) recordPhase2(d time.Duration) {
	ix.mu.Lock()
	ix.phase2Total += d
	ix.phase2Count++
	ix.mu.Unlock()
	metrics.VectorPhase2Duration.Observe(d.Seconds())
}

type dimensionError struct {
	got, want int
}

func (e *dimensionError) Error() string {
	return fmt.Sprintf("vector: hot index expects vectors of length %d, got %d", e.want, e.got)
}
