package internal

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteDB is the durable persistence backend: a single SQLite file
// holding the collection registry and every collection's records.
// The modernc driver keeps the build pure Go.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLiteDB opens or creates the database at path and initializes
// the schema. Parent directories are created if absent.
func OpenSQLiteDB(path string) (*SQLiteDB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers in the pool; the modernc driver
	// surfaces SQLITE_BUSY to a second writer instead of queueing it.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		metric TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL REFERENCES collections(name),
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// EnsureCollection returns the named collection, creating it with the
// given dimension and metric if absent. Create-if-absent is idempotent;
// an existing collection's dimension and metric are fixed, and a
// conflicting request fails.
func (s *SQLiteDB) EnsureCollection(ctx context.Context, name string, dimension int, metric Metric) (*Collection, error) {
	// The conflict clause makes concurrent first writers race-free: every
	// caller inserts-or-noops and then reads back the winning row.
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, metric, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		name, dimension, string(metric), now,
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	col, err := s.GetCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if col.Dimension != dimension {
		return nil, fmt.Errorf("%w: collection %q has dimension %d, requested %d",
			ErrDimensionMismatch, name, col.Dimension, dimension)
	}
	if col.Metric != metric {
		return nil, fmt.Errorf("collection %q uses metric %q, requested %q", name, col.Metric, metric)
	}
	return col, nil
}

// GetCollection returns the named collection or ErrCollectionNotFound.
func (s *SQLiteDB) GetCollection(ctx context.Context, name string) (*Collection, error) {
	var col Collection
	var metric string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, dimension, metric, created_at FROM collections WHERE name = ?`, name,
	).Scan(&col.Name, &col.Dimension, &metric, &col.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	col.Metric = Metric(metric)
	return &col, nil
}

// ListCollections returns every collection with its live record count.
func (s *SQLiteDB) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, c.dimension, c.metric, c.created_at, COUNT(r.id)
		FROM collections c
		LEFT JOIN records r ON r.collection = c.name
		GROUP BY c.name
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []CollectionInfo
	for rows.Next() {
		var info CollectionInfo
		var metric string
		if err := rows.Scan(&info.Name, &info.Dimension, &metric, &info.CreatedAt, &info.Records); err != nil {
			return nil, err
		}
		info.Metric = Metric(metric)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Records returns the RecordStore bound to a collection.
func (s *SQLiteDB) Records(col *Collection) *SQLiteStore {
	return &SQLiteStore{db: s.db, col: col}
}

var _ RecordStore = (*SQLiteStore)(nil)

// SQLiteStore implements RecordStore for one collection.
type SQLiteStore struct {
	db  *sql.DB
	col *Collection
}

func (s *SQLiteStore) Insert(ctx context.Context, rec *VectorRecord) error {
	if len(rec.Vector) != s.col.Dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, s.col.Dimension, len(rec.Vector))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM records WHERE id = ?`, rec.ID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check id: %w", err)
	}

	blob := EncodeVector(rec.Vector)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (id, collection, content, embedding, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, s.col.Name, rec.Content, blob, rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*VectorRecord, error) {
	var rec VectorRecord
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, content, embedding, created_at FROM records WHERE id = ? AND collection = ?`,
		id, s.col.Name,
	).Scan(&rec.ID, &rec.Content, &blob, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	rec.Vector, err = DecodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("decode embedding for %s: %w", id, err)
	}
	return &rec, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE id = ? AND collection = ?`, id, s.col.Name)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, s.col.Name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Scan(ctx context.Context, fn func(*VectorRecord) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, embedding, created_at FROM records WHERE collection = ? ORDER BY id`,
		s.col.Name)
	if err != nil {
		return fmt.Errorf("scan records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec VectorRecord
		var blob []byte
		if err := rows.Scan(&rec.ID, &rec.Content, &blob, &rec.CreatedAt); err != nil {
			return err
		}
		rec.Vector, err = DecodeVector(blob)
		if err != nil {
			return fmt.Errorf("decode embedding for %s: %w", rec.ID, err)
		}
		if err := fn(&rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// EncodeVector encodes a vector as a little-endian sequence of IEEE 754
// float32 values; the length is derived from the blob size on decode.
func EncodeVector(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DecodeVector decodes a blob produced by EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
