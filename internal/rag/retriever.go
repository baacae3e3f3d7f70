package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"healthrag/internal/contextutil"
	"healthrag/internal/index"
	"healthrag/internal/storage"
)

// QueryEncoder converts question text into the index's embedding space.
type QueryEncoder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// RetrieverConfig bounds the candidate search.
type RetrieverConfig struct {
	// SearchK is how many neighbors to request from the index, larger than
	// FinalK so threshold filtering has room to work.
	SearchK int
	// FinalK is the maximum number of candidates surfaced to the caller.
	FinalK int
	// ScoreThreshold drops candidates with a worse similarity. An empty
	// post-filter result is a normal outcome, not an error.
	ScoreThreshold float32
}

// Retriever turns a raw question into a ranked, filtered candidate list.
// For fixed index contents and query text the result is reproducible
// run-to-run.
type Retriever struct {
	encoder QueryEncoder
	index   index.Searcher
	chunks  storage.ChunkStore
	cfg     RetrieverConfig
}

// NewRetriever creates a Retriever.
func NewRetriever(encoder QueryEncoder, searcher index.Searcher, chunks storage.ChunkStore, cfg RetrieverConfig) *Retriever {
	if cfg.SearchK <= 0 {
		cfg.SearchK = 15
	}
	if cfg.FinalK <= 0 {
		cfg.FinalK = 5
	}
	if cfg.SearchK < cfg.FinalK {
		cfg.SearchK = cfg.FinalK
	}
	return &Retriever{
		encoder: encoder,
		index:   searcher,
		chunks:  chunks,
		cfg:     cfg,
	}
}

// Retrieve runs the retrieval pipeline: validate, encode, search, resolve,
// filter, truncate. An empty candidate list with a nil error means the
// question found no grounding in the corpus.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]Candidate, error) {
	logger := contextutil.LoggerFromContext(ctx)

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &ValidationError{Field: "message", Message: "cannot be empty"}
	}

	queryVector, err := r.encoder.EmbedText(ctx, question)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed question", "error", err)
		return nil, fmt.Errorf("%w: embedding failed: %v", ErrUpstream, err)
	}

	hits, err := r.index.Search(ctx, queryVector, r.cfg.SearchK)
	if err != nil {
		logger.ErrorContext(ctx, "vector search failed", "k", r.cfg.SearchK, "error", err)
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < r.cfg.ScoreThreshold {
			continue
		}
		chunk, err := r.chunks.GetByID(ctx, hit.ChunkID)
		if errors.Is(err, storage.ErrNotFound) {
			// The index and store are built together; a dangling ID means
			// the corpus needs a rebuild. Surface it, do not skip it.
			logger.ErrorContext(ctx, "chunk referenced by index missing from store", "chunk_id", hit.ChunkID)
			return nil, fmt.Errorf("%w: chunk %s", ErrIndexInconsistent, hit.ChunkID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve chunk %s: %w", hit.ChunkID, err)
		}
		candidates = append(candidates, Candidate{
			Chunk: *chunk,
			Score: hit.Score,
			Rank:  len(candidates),
		})
		if len(candidates) == r.cfg.FinalK {
			break
		}
	}

	logger.InfoContext(ctx, "retrieval completed",
		"hits", len(hits),
		"candidates", len(candidates),
		"threshold", r.cfg.ScoreThreshold,
	)
	return candidates, nil
}
