package internal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultCollectionName matches the single collection the tool
	// manages unless told otherwise.
	DefaultCollectionName = "search"
	// DefaultDimension is the all-MiniLM-L6-v2 embedding width.
	DefaultDimension = 384
	// DefaultThreshold is the minimum cosine similarity a search hit
	// must reach.
	DefaultThreshold = 0.6
	// DefaultTopK bounds search results unless --top-k is given.
	DefaultTopK = 10
)

type EmbeddingsConfig struct {
	Backend   string `yaml:"backend"`
	Model     string `yaml:"model,omitempty"`
	Dimension int    `yaml:"dimension"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
	CacheSize int    `yaml:"cache_size,omitempty"`
}

type IndexConfig struct {
	// Kind selects the similarity index: "flat" (exact, default) or
	// "annoy" (approximate, cosine only).
	Kind string `yaml:"kind"`
	// Dir holds on-disk index files for the annoy kind.
	Dir string `yaml:"dir,omitempty"`
	// Trees and SearchK are the annoy recall/latency knobs.
	Trees   int `yaml:"trees,omitempty"`
	SearchK int `yaml:"search_k,omitempty"`
}

type CollectionConfig struct {
	Name   string `yaml:"name"`
	Metric string `yaml:"metric"`
}

type Config struct {
	Database   string           `yaml:"database"`
	Collection CollectionConfig `yaml:"collection"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Index      IndexConfig      `yaml:"index"`
	Threshold  float64          `yaml:"threshold"`
	TopK       int              `yaml:"top_k"`
}

func DefaultConfig() *Config {
	return &Config{
		Database: "vsp.db",
		Collection: CollectionConfig{
			Name:   DefaultCollectionName,
			Metric: string(MetricCosine),
		},
		Embeddings: EmbeddingsConfig{
			Backend:   "hash",
			Dimension: DefaultDimension,
		},
		Index: IndexConfig{
			Kind:    "flat",
			Trees:   DefaultTrees,
			SearchK: DefaultSearchK,
		},
		Threshold: DefaultThreshold,
		TopK:      DefaultTopK,
	}
}

// LoadConfig reads a YAML config from path, falling back to defaults
// when the file does not exist. Fields absent from the file keep their
// default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
