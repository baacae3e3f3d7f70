package index

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Snapshot is the on-disk representation of a flat index, produced offline by
// the ingestion pipeline and loaded once at server startup.
type Snapshot struct {
	// EncoderTag identifies the embedding model and dimension that produced
	// the vectors (e.g. "all-MiniLM-L6-v2/384").
	EncoderTag string
	Dimension  int
	IDs        []string
	Vectors    [][]float32
}

// SaveSnapshot gob-encodes the snapshot to path, replacing any existing file.
func SaveSnapshot(path string, snap *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot from path and builds a Flat index from it.
// It refuses to load a snapshot whose encoder tag does not match expectedTag:
// serving queries encoded by a different model against these vectors would
// produce meaningless similarity scores.
func LoadSnapshot(path, expectedTag string) (*Flat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var snap Snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	if snap.EncoderTag != expectedTag {
		return nil, fmt.Errorf("encoder mismatch: snapshot built with %q, server configured for %q; rebuild the index", snap.EncoderTag, expectedTag)
	}

	return NewFlat(snap.IDs, snap.Vectors, snap.Dimension, snap.EncoderTag)
}
