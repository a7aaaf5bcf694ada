package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestIngestible(t *testing.T) {
	cases := map[string]bool{
		"notes.txt":  true,
		"README.md":  true,
		"UPPER.TXT":  true,
		"image.png":  false,
		"archive":    false,
		"partial.tm": false,
	}
	for path, want := range cases {
		if got := Ingestible(path); got != want {
			t.Errorf("Ingestible(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestIngestFile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testConfig(t), NewHashEmbedder(3))
	in := NewIngestor(svc, nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("  some document text\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	rec, err := in.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if rec.Content != "some document text" {
		t.Errorf("expected trimmed content, got %q", rec.Content)
	}

	n, err := svc.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

func TestIngestFileEmpty(t *testing.T) {
	svc := newTestService(t, testConfig(t), NewHashEmbedder(3))
	in := NewIngestor(svc, nil)

	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("   \n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := in.IngestFile(context.Background(), path); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestIngestDir(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, testConfig(t), NewHashEmbedder(3))
	in := NewIngestor(svc, nil)

	dir := t.TempDir()
	files := map[string]string{
		"a.txt":      "first document",
		"b.md":       "second document",
		"ignore.png": "binary stuff",
		"empty.txt":  "",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	n, err := in.IngestDir(ctx, dir)
	if err != nil {
		t.Fatalf("ingest dir: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 ingested files, got %d", n)
	}

	count, err := svc.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 records, got %d", count)
	}
}
