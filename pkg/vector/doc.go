// Package vector implements MRL (Matryoshka Representation Learning)
// two-phase search: cosine/dot/euclidean kernels, truncation to one of
// the supported MRL prefix lengths, and a hot-index (Phase 1,
// truncated vectors) + cold-rerank (Phase 2, full vectors from an
// injected provider) search pipeline.
//
// This is the one subsystem DESIGN.md records as a deliberate,
// considered stdlib choice rather than a last resort -- math.Sqrt is
// genuinely the best tool available for dot products and norms.
// Kernels accept both float32 and float64 inputs but always
// accumulate in float64 to keep cosineSimilarity bounded under large
// dimensions.
package vector
