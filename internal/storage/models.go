package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Chunk is the smallest retrievable unit of corpus text.
// Chunks are created once during offline ingestion and never mutated;
// retiring a chunk requires a full corpus rebuild.
type Chunk struct {
	// ID is a stable identifier, unique across the corpus (UUID).
	ID string
	// Text is the chunk's literal content.
	Text string
	// Source is the originating document path.
	Source string
	// Position is the 0-based ordinal of this chunk within its source document.
	Position int
	// TotalInSource is the number of chunks the source document was split into.
	TotalInSource int
	// CharLength is len(Text), used for context budget accounting.
	CharLength int
	// FileType is the source document type ("txt", "md", "csv"). May be empty.
	FileType string
}
