package v1

import (
	"context"
	"fmt"

	"github.com/aqora-io/vector-search-playground/internal"
	"go.uber.org/zap"
)

// Client provides programmatic access to the document store.
type Client struct {
	db  *internal.SQLiteDB
	svc *internal.DocumentService
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		database:   "vsp.db",
		collection: internal.DefaultCollectionName,
		metric:     string(internal.MetricCosine),
		index:      "flat",
		dimension:  internal.DefaultDimension,
		threshold:  internal.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	embedder := cfg.embedder
	if embedder == nil {
		embedder = internal.NewHashEmbedder(cfg.dimension)
	}

	db, err := internal.OpenSQLiteDB(cfg.database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	svcCfg := internal.DefaultConfig()
	svcCfg.Database = cfg.database
	svcCfg.Collection.Name = cfg.collection
	svcCfg.Collection.Metric = cfg.metric
	svcCfg.Index.Kind = cfg.index
	svcCfg.Threshold = cfg.threshold

	return &Client{
		db:  db,
		svc: internal.NewDocumentService(db, embedder, svcCfg, zap.NewNop()),
	}, nil
}

// Create embeds content and stores it, returning the new document.
func (c *Client) Create(ctx context.Context, content string) (*Document, error) {
	rec, err := c.svc.Create(ctx, content)
	if err != nil {
		return nil, err
	}
	return &Document{ID: rec.ID, Content: rec.Content, CreatedAt: rec.CreatedAt}, nil
}

// Search returns the k most similar documents to the query text.
// A nil threshold disables threshold filtering.
func (c *Client) Search(ctx context.Context, query string, k int, threshold *float64) ([]SearchResult, error) {
	results, _, err := c.svc.Search(ctx, query, k, threshold)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{ID: r.ID, Score: r.Score, Content: r.Content})
	}
	return out, nil
}

// Get returns a stored document by id.
func (c *Client) Get(ctx context.Context, id string) (*Document, error) {
	rec, err := c.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Document{ID: rec.ID, Content: rec.Content, CreatedAt: rec.CreatedAt}, nil
}

// Delete removes a document by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.svc.Delete(ctx, id)
}

// Count returns the number of live documents in the collection.
func (c *Client) Count(ctx context.Context) (int64, error) {
	return c.svc.Count(ctx)
}

// Collections lists every collection in the database.
func (c *Client) Collections(ctx context.Context) ([]CollectionInfo, error) {
	infos, err := c.svc.Collections(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CollectionInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, CollectionInfo{
			Name:      info.Name,
			Dimension: info.Dimension,
			Metric:    string(info.Metric),
			Records:   info.Records,
		})
	}
	return out, nil
}

// Close releases the embedder and the database handle.
func (c *Client) Close() error {
	if err := c.svc.Close(); err != nil {
		_ = c.db.Close()
		return err
	}
	return c.db.Close()
}
