package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mariotoffia/goannoy/builder"
	"github.com/mariotoffia/goannoy/interfaces"
)

const (
	// annoySnapshotFile holds the live vectors of an annoy collection.
	// The forest itself is never persisted; Load rebuilds it from the
	// snapshot.
	annoySnapshotFile = "annoy.json"

	// DefaultTrees is the build-time accuracy knob: more trees, better
	// recall, larger index.
	DefaultTrees = 10
	// DefaultSearchK asks goannoy to pick the candidate-list size from
	// the tree count.
	DefaultSearchK = -1
)

var _ VectorIndex = (*AnnoyIndex)(nil)

// AnnoyIndex is the approximate index, backed by goannoy's angular
// forest. It may miss true neighbors in exchange for sublinear search;
// trees and searchK are the recall/latency knobs. Only cosine
// collections can use it (the forest is built on angular distance).
//
// goannoy forests are write-once: AddItem after Build panics, a second
// Build on the same instance panics, and Save flips the instance into
// a read-only loaded state. The index therefore keeps the live vectors
// itself and every Build constructs a fresh forest from them; Add and
// Remove invalidate the current forest until the next Build.
type AnnoyIndex struct {
	mu        sync.RWMutex
	dimension int
	trees     int
	searchK   int
	basePath  string

	vectors map[string][]float32
	forest  interfaces.AnnoyIndex[float32, uint32]
	keys    []string
	built   bool
}

type annoySnapshot struct {
	Dimension int                  `json:"dimension"`
	Vectors   map[string][]float32 `json:"vectors"`
}

func NewAnnoyIndex(basePath string, dimension int, metric Metric, trees, searchK int) (*AnnoyIndex, error) {
	if metric != MetricCosine {
		return nil, fmt.Errorf("annoy index supports the cosine metric only, got %q", metric)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	if trees <= 0 {
		trees = DefaultTrees
	}
	if searchK == 0 {
		searchK = DefaultSearchK
	}

	return &AnnoyIndex{
		dimension: dimension,
		trees:     trees,
		searchK:   searchK,
		basePath:  basePath,
		vectors:   make(map[string][]float32),
	}, nil
}

func (a *AnnoyIndex) Add(ctx context.Context, id string, vec []float32) error {
	if len(vec) != a.dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, a.dimension, len(vec))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cp := make([]float32, a.dimension)
	copy(cp, vec)
	a.vectors[id] = cp
	a.built = false
	return nil
}

func (a *AnnoyIndex) Remove(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.vectors[id]; !ok {
		return ErrNotFound
	}
	delete(a.vectors, id)
	a.built = false
	return nil
}

func (a *AnnoyIndex) Search(ctx context.Context, query []float32, opts SearchOptions) (Results, error) {
	if err := ctx.Err(); err != nil {
		return Results{Partial: true}, nil
	}
	if len(query) != a.dimension {
		return Results{}, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, a.dimension, len(query))
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if opts.K <= 0 || len(a.vectors) == 0 {
		return Results{}, nil
	}
	if !a.built || a.forest == nil {
		return Results{}, ErrIndexNotBuilt
	}

	want := opts.K
	if want > len(a.keys) {
		want = len(a.keys)
	}

	searchCtx := a.forest.CreateContext()
	items, distances := a.forest.GetNnsByVector(query, want, a.searchK, searchCtx)

	hits := make([]Hit, 0, len(items))
	for i, item := range items {
		if i >= len(distances) {
			break
		}
		// Angular distance d = sqrt(2 - 2*cos), so cos = 1 - d^2/2.
		d := float64(distances[i])
		score := 1 - d*d/2
		if opts.Threshold != nil && !MetricCosine.WithinThreshold(score, *opts.Threshold) {
			continue
		}
		hits = append(hits, Hit{ID: a.keys[item], Score: score})
	}

	rankHits(MetricCosine, hits)
	if opts.K < len(hits) {
		hits = hits[:opts.K]
	}
	return Results{Hits: hits}, nil
}

// Build replaces the forest with one constructed from the live
// vectors. Must be called after the last mutation before searching.
func (a *AnnoyIndex) Build(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rebuildLocked()
}

func (a *AnnoyIndex) rebuildLocked() error {
	if a.forest != nil {
		_ = a.forest.Close()
		a.forest = nil
	}
	a.keys = a.keys[:0]

	if len(a.vectors) == 0 {
		a.built = true
		return nil
	}

	forest := builder.Index[float32, uint32]().
		AngularDistance(a.dimension).
		UseMultiWorkerPolicy().
		IndexNumHint(len(a.vectors)).
		Build()

	for id, vec := range a.vectors {
		forest.AddItem(uint32(len(a.keys)), vec)
		a.keys = append(a.keys, id)
	}
	forest.Build(a.trees, -1)

	a.forest = forest
	a.built = true
	return nil
}

func (a *AnnoyIndex) Contains(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.vectors[id]
	return ok
}

func (a *AnnoyIndex) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.vectors)
}

// Save writes the live vectors as a JSON snapshot.
func (a *AnnoyIndex) Save(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	data, err := json.Marshal(annoySnapshot{Dimension: a.dimension, Vectors: a.vectors})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(a.basePath, annoySnapshotFile), data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load replaces the index contents from the snapshot and rebuilds the
// forest. A missing snapshot leaves the index empty.
func (a *AnnoyIndex) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(a.basePath, annoySnapshotFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var snap annoySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Dimension != 0 && snap.Dimension != a.dimension {
		return fmt.Errorf("%w: snapshot has dimension %d, expected %d", ErrDimensionMismatch, snap.Dimension, a.dimension)
	}
	if snap.Vectors == nil {
		snap.Vectors = make(map[string][]float32)
	}
	for id, vec := range snap.Vectors {
		if len(vec) != a.dimension {
			return fmt.Errorf("%w: snapshot vector %q has length %d, expected %d", ErrIndexCorrupt, id, len(vec), a.dimension)
		}
	}

	a.vectors = snap.Vectors
	return a.rebuildLocked()
}
