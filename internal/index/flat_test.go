package index

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func newTestIndex(t *testing.T) *Flat {
	t.Helper()
	ids := []string{"a", "b", "c", "d"}
	vectors := [][]float32{
		{1, 0},
		{0.8, 0.6},
		{0, 1},
		{-1, 0},
	}
	idx, err := NewFlat(ids, vectors, 2, "test-encoder/2")
	if err != nil {
		t.Fatalf("NewFlat() error = %v", err)
	}
	return idx
}

func TestNewFlat_Validation(t *testing.T) {
	tests := []struct {
		name      string
		ids       []string
		vectors   [][]float32
		dimension int
	}{
		{
			name:      "length mismatch",
			ids:       []string{"a", "b"},
			vectors:   [][]float32{{1, 0}},
			dimension: 2,
		},
		{
			name:      "zero dimension",
			ids:       []string{"a"},
			vectors:   [][]float32{{}},
			dimension: 0,
		},
		{
			name:      "wrong vector dimension",
			ids:       []string{"a", "b"},
			vectors:   [][]float32{{1, 0}, {1, 0, 0}},
			dimension: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFlat(tt.ids, tt.vectors, tt.dimension, "tag"); err == nil {
				t.Error("NewFlat() expected error, got nil")
			}
		})
	}
}

func TestFlatSearch_SortedDescending(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 4 {
		t.Fatalf("Search() returned %d hits, want 4", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not sorted: hit %d score %f > hit %d score %f", i, hits[i].Score, i-1, hits[i-1].Score)
		}
	}
	if hits[0].ChunkID != "a" {
		t.Errorf("best hit = %q, want %q", hits[0].ChunkID, "a")
	}
}

func TestFlatSearch_SelfMatchTopOne(t *testing.T) {
	idx := newTestIndex(t)

	vectors := [][]float32{{1, 0}, {0.8, 0.6}, {0, 1}, {-1, 0}}
	ids := []string{"a", "b", "c", "d"}
	for i, vec := range vectors {
		hits, err := idx.Search(context.Background(), vec, 1)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if hits[0].ChunkID != ids[i] {
			t.Errorf("self query for %q returned %q as top hit", ids[i], hits[0].ChunkID)
		}
		if math.Abs(float64(hits[0].Score)-1) > 1e-5 {
			t.Errorf("self similarity for %q = %f, want ~1", ids[i], hits[0].Score)
		}
	}
}

func TestFlatSearch_TieBreakByID(t *testing.T) {
	// Two identical vectors must always come back in ID order.
	ids := []string{"zzz", "aaa", "mmm"}
	vectors := [][]float32{{1, 0}, {1, 0}, {1, 0}}
	idx, err := NewFlat(ids, vectors, 2, "tag")
	if err != nil {
		t.Fatalf("NewFlat() error = %v", err)
	}

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	got := []string{hits[0].ChunkID, hits[1].ChunkID, hits[2].ChunkID}
	want := []string{"aaa", "mmm", "zzz"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tie order = %v, want %v", got, want)
	}
}

func TestFlatSearch_KLargerThanSize(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 100)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != idx.Size() {
		t.Errorf("Search() returned %d hits, want %d", len(hits), idx.Size())
	}
}

func TestFlatSearch_InvalidArguments(t *testing.T) {
	idx := newTestIndex(t)

	if _, err := idx.Search(context.Background(), []float32{1, 0}, 0); err == nil {
		t.Error("Search() with k=0 expected error")
	}
	if _, err := idx.Search(context.Background(), []float32{1, 0}, -3); err == nil {
		t.Error("Search() with negative k expected error")
	}
	if _, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2); err == nil {
		t.Error("Search() with wrong query dimension expected error")
	}
}

func TestFlatSearch_Deterministic(t *testing.T) {
	idx := newTestIndex(t)
	query := []float32{0.5, 0.5}

	first, err := idx.Search(context.Background(), query, 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := idx.Search(context.Background(), query, 4)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differed: %v vs %v", i, again, first)
		}
	}
}

func TestFlatSearch_CancelledContext(t *testing.T) {
	idx := newTestIndex(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.Search(ctx, []float32{1, 0}, 2); err == nil {
		t.Error("Search() with cancelled context expected error")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("cosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}
