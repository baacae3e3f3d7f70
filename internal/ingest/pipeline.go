package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"healthrag/internal/contextutil"
	"healthrag/internal/index"
	"healthrag/internal/storage"
)

// embedBatchSize bounds how many chunk texts go into one embeddings request.
const embedBatchSize = 64

// BatchEncoder is the embedding surface the pipeline needs.
type BatchEncoder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EncoderTag() string
	Dimension() int
}

// Pipeline builds the chunk store and vector index from corpus documents.
// It runs offline; the serving process only ever reads its output.
type Pipeline struct {
	chunker *Chunker
	encoder BatchEncoder
	chunks  storage.ChunkStore
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(chunker *Chunker, encoder BatchEncoder, chunks storage.ChunkStore) *Pipeline {
	return &Pipeline{
		chunker: chunker,
		encoder: encoder,
		chunks:  chunks,
	}
}

// Run chunks the documents, persists every chunk, embeds the chunk texts and
// returns the index snapshot. Chunk positions are contiguous from 0 within
// each source; chunk IDs are minted here and shared between store and index.
// Embedding failures abort the build: a partially embedded corpus must not
// be served.
func (p *Pipeline) Run(ctx context.Context, docs []Document) (*index.Snapshot, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var ids []string
	var texts []string
	for _, doc := range docs {
		pieces := p.chunker.Split(doc.Text)
		for i, piece := range pieces {
			chunk := storage.Chunk{
				ID:            uuid.NewString(),
				Text:          piece,
				Source:        doc.Source,
				Position:      i,
				TotalInSource: len(pieces),
				CharLength:    len(piece),
				FileType:      doc.FileType,
			}
			if err := p.chunks.Insert(ctx, &chunk); err != nil {
				return nil, fmt.Errorf("failed to store chunk %d of %s: %w", i, doc.Source, err)
			}
			ids = append(ids, chunk.ID)
			texts = append(texts, chunk.Text)
		}
	}
	logger.InfoContext(ctx, "corpus chunked", "documents", len(docs), "chunks", len(ids))

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		batch, err := p.encoder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d..%d: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
		logger.InfoContext(ctx, "embedded batch", "done", end, "total", len(texts))
	}

	return &index.Snapshot{
		EncoderTag: p.encoder.EncoderTag(),
		Dimension:  p.encoder.Dimension(),
		IDs:        ids,
		Vectors:    vectors,
	}, nil
}
