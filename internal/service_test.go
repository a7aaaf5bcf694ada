package internal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// cannedEmbedder maps known texts to fixed vectors so ranking is
// predictable.
type cannedEmbedder struct {
	dim  int
	vecs map[string][]float32
}

func (e *cannedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.vecs[text]; ok {
		return vec, nil
	}
	return make([]float32, e.dim), nil
}

func (e *cannedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *cannedEmbedder) Dimension() int { return e.dim }
func (e *cannedEmbedder) Close() error   { return nil }

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Database = filepath.Join(t.TempDir(), "svc.db")
	cfg.Embeddings.Dimension = 3
	return cfg
}

func newTestService(t *testing.T, cfg *Config, emb Embedder) *DocumentService {
	t.Helper()
	db, err := OpenSQLiteDB(cfg.Database)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewDocumentService(db, emb, cfg, nil)
}

func petsEmbedder() *cannedEmbedder {
	return &cannedEmbedder{dim: 3, vecs: map[string][]float32{
		"cats are wonderful pets":   {0.9, 0.1, 0},
		"dogs are loyal companions": {0.8, 0.2, 0},
		"the stock market fell":     {0, 0, 1},
		"tell me about pets":        {1, 0, 0},
	}}
}

func TestServiceCreateAndSearch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testConfig(t), petsEmbedder())

	contents := []string{
		"cats are wonderful pets",
		"dogs are loyal companions",
		"the stock market fell",
	}
	ids := map[string]string{}
	for _, c := range contents {
		rec, err := svc.Create(ctx, c)
		if err != nil {
			t.Fatalf("create %q: %v", c, err)
		}
		if rec.ID == "" {
			t.Fatal("expected generated id")
		}
		ids[c] = rec.ID
	}

	results, partial, err := svc.Search(ctx, "tell me about pets", 2, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if partial {
		t.Error("unexpected partial flag")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Content != "cats are wonderful pets" {
		t.Errorf("expected cats first, got %q", results[0].Content)
	}
	if results[1].Content != "dogs are loyal companions" {
		t.Errorf("expected dogs second, got %q", results[1].Content)
	}
	for _, r := range results {
		if r.Content == "the stock market fell" {
			t.Error("unrelated document must not rank in top 2")
		}
	}
}

func TestServiceSearchThresholdExcludesUnrelated(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testConfig(t), petsEmbedder())

	for _, c := range []string{"cats are wonderful pets", "the stock market fell"} {
		if _, err := svc.Create(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	threshold := DefaultThreshold
	results, _, err := svc.Search(ctx, "tell me about pets", 10, &threshold)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result above threshold, got %d", len(results))
	}
	if results[0].Content != "cats are wonderful pets" {
		t.Errorf("got %q", results[0].Content)
	}
}

func TestServiceSearchMissingCollection(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testConfig(t), petsEmbedder())

	_, _, err := svc.Search(ctx, "tell me about pets", 5, nil)
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestServiceGetAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testConfig(t), petsEmbedder())

	rec, err := svc.Create(ctx, "cats are wonderful pets")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "cats are wonderful pets" {
		t.Errorf("got %q", got.Content)
	}

	if err := svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	// Deleted records never surface in search.
	results, _, err := svc.Search(ctx, "tell me about pets", 5, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range results {
		if r.ID == rec.ID {
			t.Error("deleted id appeared in search results")
		}
	}
}

func TestServiceCountMissingCollection(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testConfig(t), petsEmbedder())

	n, err := svc.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}

func TestServiceCount(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testConfig(t), petsEmbedder())

	for _, c := range []string{"cats are wonderful pets", "dogs are loyal companions"} {
		if _, err := svc.Create(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := svc.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
}

func TestServiceCollections(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	svc := newTestService(t, cfg, petsEmbedder())

	if _, err := svc.Create(ctx, "cats are wonderful pets"); err != nil {
		t.Fatalf("create: %v", err)
	}

	infos, err := svc.Collections(ctx)
	if err != nil {
		t.Fatalf("collections: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 collection, got %d", len(infos))
	}
	if infos[0].Name != cfg.Collection.Name {
		t.Errorf("got %q", infos[0].Name)
	}
	if infos[0].Records != 1 {
		t.Errorf("expected 1 record, got %d", infos[0].Records)
	}
	if infos[0].Dimension != 3 {
		t.Errorf("expected dimension 3, got %d", infos[0].Dimension)
	}
}

func TestServiceRebuild(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testConfig(t), petsEmbedder())

	for _, c := range []string{"cats are wonderful pets", "dogs are loyal companions"} {
		if _, err := svc.Create(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	report, err := svc.Rebuild(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if report.Indexed != 2 {
		t.Errorf("expected 2 indexed, got %d", report.Indexed)
	}
	if len(report.Skipped) != 0 {
		t.Errorf("expected no skipped ids, got %v", report.Skipped)
	}

	// The rebuilt index still answers queries.
	results, _, err := svc.Search(ctx, "tell me about pets", 2, nil)
	if err != nil {
		t.Fatalf("search after rebuild: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestServiceAnnoyIndex(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Index.Kind = "annoy"
	cfg.Index.Trees = 2
	svc := newTestService(t, cfg, petsEmbedder())

	for _, c := range []string{"cats are wonderful pets", "the stock market fell"} {
		if _, err := svc.Create(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	results, _, err := svc.Search(ctx, "tell me about pets", 1, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Content != "cats are wonderful pets" {
		t.Errorf("expected cats, got %+v", results)
	}
}

func TestServiceIndexSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	svc := newTestService(t, cfg, petsEmbedder())
	if _, err := svc.Create(ctx, "cats are wonderful pets"); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A fresh service over the same database hydrates its index from
	// the store.
	reopened := newTestService(t, cfg, petsEmbedder())
	results, _, err := reopened.Search(ctx, "tell me about pets", 5, nil)
	if err != nil {
		t.Fatalf("search after reopen: %v", err)
	}
	if len(results) != 1 || results[0].Content != "cats are wonderful pets" {
		t.Errorf("expected hydrated result, got %+v", results)
	}
}
