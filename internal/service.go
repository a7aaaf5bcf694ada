package internal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentService orchestrates the write and read paths: embed text,
// persist the record, keep the similarity index in step, answer
// queries. The store is the source of truth; the index is derived and
// rebuildable from it.
type DocumentService struct {
	mu       sync.Mutex
	db       *SQLiteDB
	embedder Embedder
	cfg      *Config
	log      *zap.Logger

	col    *Collection
	store  RecordStore
	index  VectorIndex
	engine *QueryEngine
}

func NewDocumentService(db *SQLiteDB, embedder Embedder, cfg *Config, log *zap.Logger) *DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentService{db: db, embedder: embedder, cfg: cfg, log: log}
}

// Create embeds content, persists it under a fresh time-ordered id,
// and adds it to the index. The collection is created on first write.
func (s *DocumentService) Create(ctx context.Context, content string) (*VectorRecord, error) {
	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(ctx, true); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	rec := NewVectorRecord(id.String(), vec, content)

	// Durable write first: a crash after this point leaves the index
	// stale but rebuildable, never the store missing an indexed id.
	if err := s.store.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("store insert: %w", err)
	}
	if err := s.index.Add(ctx, rec.ID, rec.Vector); err != nil {
		return nil, fmt.Errorf("index add: %w", err)
	}
	if err := s.commitIndex(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// Search embeds the query text and returns up to k hydrated results,
// best-first. Searching a collection that does not exist yet returns
// ErrCollectionNotFound with an empty result set.
func (s *DocumentService) Search(ctx context.Context, query string, k int, threshold *float64) ([]QueryResult, bool, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, false, fmt.Errorf("embed query: %w", err)
	}
	return s.SearchVector(ctx, vec, k, threshold)
}

// SearchVector is Search with a caller-supplied query vector.
func (s *DocumentService) SearchVector(ctx context.Context, vec []float32, k int, threshold *float64) ([]QueryResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(ctx, false); err != nil {
		return nil, false, err
	}
	return s.engine.Search(ctx, vec, k, threshold)
}

// Get returns a stored record by id.
func (s *DocumentService) Get(ctx context.Context, id string) (*VectorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(ctx, false); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Delete removes a record from the store and the index.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(ctx, false); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.index.Remove(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("index remove: %w", err)
	}
	return s.commitIndex(ctx)
}

// Count returns the number of live records. A collection that does not
// exist yet counts zero.
func (s *DocumentService) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.ensureOpen(ctx, false)
	if errors.Is(err, ErrCollectionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return s.store.Count(ctx)
}

// Collections lists every collection with its live record count.
func (s *DocumentService) Collections(ctx context.Context) ([]CollectionInfo, error) {
	return s.db.ListCollections(ctx)
}

// RebuildReport describes a rebuild pass: how many records were
// indexed and which ids had to be skipped.
type RebuildReport struct {
	Indexed int
	Skipped []string
}

// Rebuild reconstructs the index by replaying every stored record.
// Records that fail to index are skipped and reported; the rebuild
// continues past them. A count mismatch after the pass is reported as
// index corruption but the rebuilt index is still installed.
func (s *DocumentService) Rebuild(ctx context.Context) (*RebuildReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(ctx, false); err != nil {
		return nil, err
	}

	fresh, err := s.newIndex(s.col)
	if err != nil {
		return nil, err
	}

	report := &RebuildReport{}
	err = s.store.Scan(ctx, func(rec *VectorRecord) error {
		if err := fresh.Add(ctx, rec.ID, rec.Vector); err != nil {
			s.log.Warn("skipping record during rebuild",
				zap.String("id", rec.ID), zap.Error(err))
			report.Skipped = append(report.Skipped, rec.ID)
			return nil
		}
		report.Indexed++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan store: %w", err)
	}

	if err := fresh.Build(ctx); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	if err := fresh.Save(ctx); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}

	if total, err := s.store.Count(ctx); err == nil {
		if total != int64(report.Indexed+len(report.Skipped)) {
			s.log.Error("record count mismatch after rebuild",
				zap.Int64("store", total),
				zap.Int("indexed", report.Indexed),
				zap.Int("skipped", len(report.Skipped)),
				zap.Error(ErrIndexCorrupt))
		}
	}

	s.index = fresh
	s.engine = NewQueryEngine(s.index, s.store, s.log)
	return report, nil
}

// Close releases the embedder. The database handle is owned by the
// caller that opened it.
func (s *DocumentService) Close() error {
	if s.embedder != nil {
		return s.embedder.Close()
	}
	return nil
}

// ensureOpen binds the service to its collection, store, and index.
// With create set, a missing collection is created using the embedder's
// dimension and the configured metric.
func (s *DocumentService) ensureOpen(ctx context.Context, create bool) error {
	if s.store != nil {
		return nil
	}

	name := s.cfg.Collection.Name
	metric, err := ParseMetric(s.cfg.Collection.Metric)
	if err != nil {
		return err
	}

	col, err := s.db.GetCollection(ctx, name)
	if errors.Is(err, ErrCollectionNotFound) {
		if !create {
			return err
		}
		col, err = s.db.EnsureCollection(ctx, name, s.embedder.Dimension(), metric)
	}
	if err != nil {
		return err
	}

	index, err := s.newIndex(col)
	if err != nil {
		return err
	}
	store := s.db.Records(col)

	if err := s.hydrateIndex(ctx, index, store); err != nil {
		return err
	}

	s.col = col
	s.store = store
	s.index = index
	s.engine = NewQueryEngine(index, store, s.log)
	return nil
}

func (s *DocumentService) newIndex(col *Collection) (VectorIndex, error) {
	switch s.cfg.Index.Kind {
	case "annoy":
		dir := s.cfg.Index.Dir
		if dir == "" {
			dir = filepath.Join(filepath.Dir(s.cfg.Database), "index", col.Name)
		}
		return NewAnnoyIndex(dir, col.Dimension, col.Metric, s.cfg.Index.Trees, s.cfg.Index.SearchK)
	case "flat", "":
		return NewFlatIndex(col.Dimension, col.Metric)
	}
	return nil, fmt.Errorf("unknown index kind %q", s.cfg.Index.Kind)
}

// hydrateIndex brings a fresh index up to date: load its on-disk state
// when it has one, otherwise replay the store.
func (s *DocumentService) hydrateIndex(ctx context.Context, index VectorIndex, store RecordStore) error {
	if err := index.Load(ctx); err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	if index.Len() > 0 {
		return nil
	}

	err := store.Scan(ctx, func(rec *VectorRecord) error {
		if err := index.Add(ctx, rec.ID, rec.Vector); err != nil {
			s.log.Warn("skipping record during index hydration",
				zap.String("id", rec.ID), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("hydrate index: %w", err)
	}
	if index.Len() > 0 {
		return index.Build(ctx)
	}
	return nil
}

// commitIndex persists index state after a mutation. The flat index
// keeps nothing on disk and replays the store instead; the annoy index
// rebuilds its forest and saves.
func (s *DocumentService) commitIndex(ctx context.Context) error {
	if err := s.index.Build(ctx); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := s.index.Save(ctx); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}
