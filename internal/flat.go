package internal

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// cancelCheckStride is how many candidates a flat search scores between
// context checks.
const cancelCheckStride = 256

var _ VectorIndex = (*FlatIndex)(nil)

// FlatIndex is the exact brute-force index: every query scores every
// live vector. It is the correctness baseline and the default; the
// approximate AnnoyIndex is an explicit opt-in.
type FlatIndex struct {
	mu        sync.RWMutex
	dimension int
	metric    Metric
	ids       []string
	vecs      [][]float32
	pos       map[string]int
	path      string
}

func NewFlatIndex(dimension int, metric Metric) (*FlatIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	return &FlatIndex{
		dimension: dimension,
		metric:    metric,
		pos:       make(map[string]int),
	}, nil
}

// WithPath sets the file used by Save and Load.
func (f *FlatIndex) WithPath(path string) *FlatIndex {
	f.path = path
	return f
}

func (f *FlatIndex) Add(ctx context.Context, id string, vec []float32) error {
	if len(vec) != f.dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, f.dimension, len(vec))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Copy so a concurrent reader never observes caller mutations.
	cp := make([]float32, f.dimension)
	copy(cp, vec)

	if i, ok := f.pos[id]; ok {
		f.vecs[i] = cp
		return nil
	}

	f.pos[id] = len(f.ids)
	f.ids = append(f.ids, id)
	f.vecs = append(f.vecs, cp)
	return nil
}

func (f *FlatIndex) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.pos[id]
	if !ok {
		return ErrNotFound
	}

	last := len(f.ids) - 1
	if i != last {
		f.ids[i] = f.ids[last]
		f.vecs[i] = f.vecs[last]
		f.pos[f.ids[i]] = i
	}
	f.ids = f.ids[:last]
	f.vecs = f.vecs[:last]
	delete(f.pos, id)
	return nil
}

func (f *FlatIndex) Search(ctx context.Context, query []float32, opts SearchOptions) (Results, error) {
	if len(query) != f.dimension {
		return Results{}, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, f.dimension, len(query))
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if opts.K <= 0 || len(f.ids) == 0 {
		return Results{}, nil
	}

	hits := make([]Hit, 0, len(f.ids))
	partial := false

	for i := range f.vecs {
		if i%cancelCheckStride == 0 && ctx.Err() != nil {
			partial = true
			break
		}
		score, err := f.metric.Score(query, f.vecs[i])
		if err != nil {
			// Zero-magnitude candidates have no defined cosine angle.
			continue
		}
		if opts.Threshold != nil && !f.metric.WithinThreshold(score, *opts.Threshold) {
			continue
		}
		hits = append(hits, Hit{ID: f.ids[i], Score: score})
	}

	rankHits(f.metric, hits)
	if opts.K < len(hits) {
		hits = hits[:opts.K]
	}
	return Results{Hits: hits, Partial: partial}, nil
}

// Build is a no-op: a flat index is always queryable.
func (f *FlatIndex) Build(ctx context.Context) error { return nil }

func (f *FlatIndex) Contains(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.pos[id]
	return ok
}

func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Save writes the index as dimension(u32), count(u32), then per entry
// idLen(u32), id bytes, vector float32s, all little-endian.
func (f *FlatIndex) Save(ctx context.Context) error {
	if f.path == "" {
		return nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	out, err := os.Create(f.path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer out.Close()

	if err := binary.Write(out, binary.LittleEndian, uint32(f.dimension)); err != nil {
		return fmt.Errorf("write dimension: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, uint32(len(f.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range f.ids {
		if err := binary.Write(out, binary.LittleEndian, uint32(len(id))); err != nil {
			return fmt.Errorf("write id length: %w", err)
		}
		if _, err := out.Write([]byte(id)); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := binary.Write(out, binary.LittleEndian, f.vecs[i]); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load replaces the index contents from the Save file. A missing file
// leaves the index empty.
func (f *FlatIndex) Load(ctx context.Context) error {
	if f.path == "" {
		return nil
	}

	in, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer in.Close()

	var dim, count uint32
	if err := binary.Read(in, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimension: %w", err)
	}
	if int(dim) != f.dimension {
		return fmt.Errorf("%w: index file has dimension %d, expected %d", ErrDimensionMismatch, dim, f.dimension)
	}
	if err := binary.Read(in, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	ids := make([]string, 0, count)
	vecs := make([][]float32, 0, count)
	pos := make(map[string]int, count)
	for i := uint32(0); i < count; i++ {
		var idLen uint32
		if err := binary.Read(in, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read id length: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(in, idBytes); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		vec := make([]float32, f.dimension)
		if err := binary.Read(in, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		pos[string(idBytes)] = len(ids)
		ids = append(ids, string(idBytes))
		vecs = append(vecs, vec)
	}

	f.mu.Lock()
	f.ids, f.vecs, f.pos = ids, vecs, pos
	f.mu.Unlock()
	return nil
}

// rankHits orders hits best-first under the metric, breaking score ties
// by id ascending so results are deterministic.
func rankHits(metric Metric, hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		ri, rj := metric.Rank(hits[i].Score), metric.Rank(hits[j].Score)
		if ri != rj {
			return ri > rj
		}
		return hits[i].ID < hits[j].ID
	})
}
