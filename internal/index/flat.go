package index

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Flat is an exhaustive in-memory cosine-similarity index.
// It is immutable after construction and safe for concurrent Search calls.
type Flat struct {
	ids        []string
	vectors    [][]float32
	dimension  int
	encoderTag string
}

// NewFlat builds a flat index from parallel id/vector slices.
// encoderTag identifies the embedding model and dimension that produced the
// vectors; queries from a different encoder must not be served against it.
func NewFlat(ids []string, vectors [][]float32, dimension int, encoderTag string) (*Flat, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("id/vector length mismatch: %d ids, %d vectors", len(ids), len(vectors))
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be greater than 0")
	}
	for i, vec := range vectors {
		if len(vec) != dimension {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vec), dimension)
		}
	}
	return &Flat{
		ids:        ids,
		vectors:    vectors,
		dimension:  dimension,
		encoderTag: encoderTag,
	}, nil
}

// Search returns up to k hits sorted by descending cosine similarity.
// Ties in score are broken by ascending chunk ID so results are reproducible.
func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0, got %d", k)
	}
	if len(query) != f.dimension {
		return nil, fmt.Errorf("query has dimension %d, index has %d", len(query), f.dimension)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(f.vectors))
	for i := range f.vectors {
		hits = append(hits, Hit{
			ChunkID: f.ids[i],
			Score:   cosineSimilarity(query, f.vectors[i]),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Size returns the number of indexed vectors.
func (f *Flat) Size() int { return len(f.ids) }

// Dimension returns the vector dimension of the index.
func (f *Flat) Dimension() int { return f.dimension }

// EncoderTag returns the tag of the encoder that produced the indexed vectors.
func (f *Flat) EncoderTag() string { return f.encoderTag }

// cosineSimilarity computes the cosine similarity between two vectors of
// equal length. Returns a value between -1 and 1; 0 for zero-length vectors.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
