package internal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// QueryResult is one ranked search hit with its payload attached.
type QueryResult struct {
	ID      string
	Score   float64
	Content string
}

// QueryEngine runs a similarity query against the index and hydrates
// each hit's payload from the record store.
type QueryEngine struct {
	index VectorIndex
	store RecordStore
	log   *zap.Logger
}

func NewQueryEngine(index VectorIndex, store RecordStore, log *zap.Logger) *QueryEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &QueryEngine{index: index, store: store, log: log}
}

// Search returns at most k hydrated results, best-first. An id present
// in the index but missing from the store is a consistency anomaly: it
// is skipped and logged, never fatal. The partial flag is set when a
// cancelled search returned only the ranking accumulated so far.
func (q *QueryEngine) Search(ctx context.Context, query []float32, k int, threshold *float64) ([]QueryResult, bool, error) {
	res, err := q.index.Search(ctx, query, SearchOptions{K: k, Threshold: threshold})
	if err != nil {
		return nil, false, fmt.Errorf("index search: %w", err)
	}

	out := make([]QueryResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		rec, err := q.store.Get(ctx, hit.ID)
		if errors.Is(err, ErrNotFound) {
			q.log.Warn("index entry missing from store, skipping",
				zap.String("id", hit.ID))
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("hydrate %s: %w", hit.ID, err)
		}
		out = append(out, QueryResult{ID: hit.ID, Score: hit.Score, Content: rec.Content})
	}
	return out, res.Partial, nil
}
