package internal

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateID        = errors.New("duplicate record id")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrIndexCorrupt       = errors.New("index corrupt")
	ErrIndexNotBuilt      = errors.New("index not built")
)

// VectorRecord is one stored document: a stable id, the embedding
// vector, and the text the vector was computed from.
type VectorRecord struct {
	ID        string
	Vector    []float32
	Content   string
	CreatedAt time.Time
}

func NewVectorRecord(id string, vec []float32, content string) *VectorRecord {
	return &VectorRecord{
		ID:        id,
		Vector:    vec,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Collection groups records sharing one dimensionality and one distance
// metric. Both are fixed at creation time.
type Collection struct {
	Name      string
	Dimension int
	Metric    Metric
	CreatedAt time.Time
}

// CollectionInfo is a Collection plus its live record count, as shown
// by the collections listing.
type CollectionInfo struct {
	Collection
	Records int64
}
