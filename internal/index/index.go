package index

import "context"

// Hit is a single nearest-neighbor match: a chunk ID and its similarity score.
// Higher scores are better (cosine similarity).
type Hit struct {
	ChunkID string
	Score   float32
}

// Searcher defines the read side of a vector index. Implementations must be
// safe for concurrent Search calls; the index is loaded once per process and
// treated as read-only afterwards.
type Searcher interface {
	// Search returns up to k hits sorted by descending score.
	// A k larger than the index size returns all entries; k <= 0 is an error.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	// Size returns the number of indexed vectors.
	Size() int
	// Dimension returns the vector dimension of the index.
	Dimension() int
}
