package v1

import "github.com/aqora-io/vector-search-playground/internal"

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	database   string
	collection string
	metric     string
	index      string
	dimension  int
	threshold  float64
	embedder   internal.Embedder
}

// WithDatabase sets the SQLite database path.
func WithDatabase(path string) Option {
	return func(c *clientConfig) {
		c.database = path
	}
}

// WithCollection sets the collection name.
func WithCollection(name string) Option {
	return func(c *clientConfig) {
		c.collection = name
	}
}

// WithMetric sets the distance metric for a new collection
// ("cosine" or "l2").
func WithMetric(metric string) Option {
	return func(c *clientConfig) {
		c.metric = metric
	}
}

// WithIndex selects the similarity index kind ("flat" or "annoy").
func WithIndex(kind string) Option {
	return func(c *clientConfig) {
		c.index = kind
	}
}

// WithDimension sets the embedding dimension.
func WithDimension(dim int) Option {
	return func(c *clientConfig) {
		c.dimension = dim
	}
}

// WithEmbedder supplies the embedding provider. Defaults to the
// deterministic hash embedder.
func WithEmbedder(e internal.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}
