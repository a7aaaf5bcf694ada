package internal

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// memStore is a map-backed RecordStore for tests.
type memStore struct {
	recs map[string]*VectorRecord
}

func newMemStore() *memStore {
	return &memStore{recs: map[string]*VectorRecord{}}
}

func (m *memStore) Insert(ctx context.Context, rec *VectorRecord) error {
	if _, ok := m.recs[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	m.recs[rec.ID] = rec
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*VectorRecord, error) {
	rec, ok := m.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.recs[id]; !ok {
		return ErrNotFound
	}
	delete(m.recs, id)
	return nil
}

func (m *memStore) Count(ctx context.Context) (int64, error) {
	return int64(len(m.recs)), nil
}

func (m *memStore) Scan(ctx context.Context, fn func(*VectorRecord) error) error {
	for _, rec := range m.recs {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func TestQueryEngineHydratesResults(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	idx, err := NewFlatIndex(3, MetricCosine)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}

	vecs := map[string][]float32{
		"close": {1, 0, 0},
		"far":   {0, 1, 0},
	}
	for id, vec := range vecs {
		if err := store.Insert(ctx, &VectorRecord{ID: id, Vector: vec, Content: "doc " + id, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
		if err := idx.Add(ctx, id, vec); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	engine := NewQueryEngine(idx, store, nil)
	results, partial, err := engine.Search(ctx, []float32{1, 0.1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if partial {
		t.Error("unexpected partial flag")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "close" {
		t.Errorf("expected 'close' first, got %q", results[0].ID)
	}
	if results[0].Content != "doc close" {
		t.Errorf("expected hydrated content, got %q", results[0].Content)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("expected descending cosine scores, got %f then %f", results[0].Score, results[1].Score)
	}
}

func TestQueryEngineSkipsOrphanedIndexEntry(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	idx, err := NewFlatIndex(2, MetricCosine)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}

	if err := store.Insert(ctx, &VectorRecord{ID: "stored", Vector: []float32{1, 0}, Content: "ok", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := idx.Add(ctx, "stored", []float32{1, 0}); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Index-only entry with no backing record.
	if err := idx.Add(ctx, "orphan", []float32{0.9, 0.1}); err != nil {
		t.Fatalf("add orphan: %v", err)
	}

	engine := NewQueryEngine(idx, store, nil)
	results, _, err := engine.Search(ctx, []float32{1, 0}, 5, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected orphan skipped, got %d results", len(results))
	}
	if results[0].ID != "stored" {
		t.Errorf("expected 'stored', got %q", results[0].ID)
	}
}

func TestQueryEngineThreshold(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	idx, err := NewFlatIndex(2, MetricCosine)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}

	for id, vec := range map[string][]float32{
		"aligned":    {1, 0},
		"orthogonal": {0, 1},
	} {
		if err := store.Insert(ctx, &VectorRecord{ID: id, Vector: vec, Content: id, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := idx.Add(ctx, id, vec); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	threshold := 0.5
	engine := NewQueryEngine(idx, store, nil)
	results, _, err := engine.Search(ctx, []float32{1, 0}, 5, &threshold)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "aligned" {
		t.Errorf("expected only 'aligned' above threshold, got %+v", results)
	}
}
