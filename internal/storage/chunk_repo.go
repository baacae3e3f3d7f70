package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks healthrag/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ChunkStore defines the interface for chunk storage operations.
// At query time the store is read-only; Insert is used only by the
// offline ingestion pipeline.
type ChunkStore interface {
	// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*Chunk, error)
	// ListAll returns every chunk in the corpus, ordered by source and position.
	// Used only offline (index builds).
	ListAll(ctx context.Context) ([]Chunk, error)
	// Count returns the number of chunks in the corpus.
	Count(ctx context.Context) (int, error)
	// Insert inserts a single chunk. The chunk.ID must be set before calling.
	Insert(ctx context.Context, chunk *Chunk) error
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*Chunk, error) {
	var chunk Chunk
	err := r.db.QueryRowContext(ctx,
		"SELECT id, text, source, position, total_in_source, char_length, file_type FROM chunks WHERE id = ?",
		id,
	).Scan(&chunk.ID, &chunk.Text, &chunk.Source, &chunk.Position, &chunk.TotalInSource, &chunk.CharLength, &chunk.FileType)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}

	return &chunk, nil
}

// ListAll returns every chunk in the corpus, ordered by source and position.
func (r *ChunkRepo) ListAll(ctx context.Context) ([]Chunk, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, text, source, position, total_in_source, char_length, file_type FROM chunks ORDER BY source, position",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []Chunk
	for rows.Next() {
		var chunk Chunk
		if err := rows.Scan(&chunk.ID, &chunk.Text, &chunk.Source, &chunk.Position, &chunk.TotalInSource, &chunk.CharLength, &chunk.FileType); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// Count returns the number of chunks in the corpus.
func (r *ChunkRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Insert inserts a single chunk into the database.
// The chunk.ID must be set (UUID) before calling this method.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *Chunk) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chunks (id, text, source, position, total_in_source, char_length, file_type) VALUES (?, ?, ?, ?, ?, ?, ?)",
		chunk.ID, chunk.Text, chunk.Source, chunk.Position, chunk.TotalInSource, chunk.CharLength, chunk.FileType,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}
