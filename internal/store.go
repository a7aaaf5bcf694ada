package internal

import "context"

// RecordStore is the durable side of a collection. It is the source of
// truth: the similarity index must be reconstructible by replaying
// Scan, so every durable write happens before the matching index
// update is considered committed.
type RecordStore interface {
	// Insert persists a record. Duplicate ids fail with ErrDuplicateID;
	// vectors whose length disagrees with the collection dimension fail
	// with ErrDimensionMismatch.
	Insert(ctx context.Context, rec *VectorRecord) error

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*VectorRecord, error)

	// Delete removes the record with the given id, or ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Count returns the number of live records.
	Count(ctx context.Context) (int64, error)

	// Scan streams every live record through fn in id order. Calling
	// Scan again restarts from the beginning. A non-nil error from fn
	// stops the scan and is returned.
	Scan(ctx context.Context, fn func(*VectorRecord) error) error
}
