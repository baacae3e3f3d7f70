package index

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.gob")
	snap := &Snapshot{
		EncoderTag: "all-MiniLM-L6-v2/2",
		Dimension:  2,
		IDs:        []string{"a", "b"},
		Vectors:    [][]float32{{1, 0}, {0, 1}},
	}

	if err := SaveSnapshot(path, snap); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	idx, err := LoadSnapshot(path, "all-MiniLM-L6-v2/2")
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if idx.Size() != 2 {
		t.Errorf("Size() = %d, want 2", idx.Size())
	}
	if idx.Dimension() != 2 {
		t.Errorf("Dimension() = %d, want 2", idx.Dimension())
	}

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if hits[0].ChunkID != "a" {
		t.Errorf("top hit = %q, want %q", hits[0].ChunkID, "a")
	}
}

func TestLoadSnapshot_EncoderMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.gob")
	snap := &Snapshot{
		EncoderTag: "old-model/384",
		Dimension:  2,
		IDs:        []string{"a"},
		Vectors:    [][]float32{{1, 0}},
	}
	if err := SaveSnapshot(path, snap); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	_, err := LoadSnapshot(path, "new-model/384")
	if err == nil {
		t.Fatal("LoadSnapshot() expected error for encoder mismatch")
	}
	if !strings.Contains(err.Error(), "encoder mismatch") {
		t.Errorf("error = %v, want encoder mismatch", err)
	}
}

func TestLoadSnapshot_MissingFile(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.gob"), "tag"); err == nil {
		t.Error("LoadSnapshot() expected error for missing file")
	}
}
