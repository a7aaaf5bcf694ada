package internal

import "context"

// Hit is one index match. Score is in the collection metric's natural
// units; hits are always delivered best-first.
type Hit struct {
	ID    string
	Score float64
}

// Results is an ordered set of hits. Partial is set when a cancelled
// search returned only the best matches accumulated so far.
type Results struct {
	Hits    []Hit
	Partial bool
}

// SearchOptions bound a similarity query. Threshold, when non-nil, is
// in natural metric units and is applied before top-k truncation.
type SearchOptions struct {
	K         int
	Threshold *float64
}

// VectorIndex is the similarity-search capability. Exact (FlatIndex)
// and approximate (AnnoyIndex) implementations are interchangeable
// behind it; callers consume a uniform better-first ordering.
//
// Add with an existing id is an upsert: the new vector replaces the
// old one. Remove of an absent id returns ErrNotFound and leaves the
// index unchanged.
type VectorIndex interface {
	Add(ctx context.Context, id string, vec []float32) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query []float32, opts SearchOptions) (Results, error)
	Build(ctx context.Context) error
	Save(ctx context.Context) error
	Load(ctx context.Context) error
	Contains(id string) bool
	Len() int
}
