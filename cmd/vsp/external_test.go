package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeBinary(t *testing.T, dir, name string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), mode); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestResolveExternal(t *testing.T) {
	dir := t.TempDir()
	writeBinary(t, dir, "vsp-hello", 0755)
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	path, err := resolveExternal("hello")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if path != filepath.Join(dir, "vsp-hello") {
		t.Errorf("path = %q", path)
	}

	if _, err := resolveExternal("definitely-not-installed"); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestExternalNames(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	writeBinary(t, first, "vsp-beta", 0755)
	writeBinary(t, first, "vsp-alpha", 0755)
	writeBinary(t, first, "vsp-noexec", 0644)
	writeBinary(t, first, "unrelated", 0755)
	// Duplicate in a later PATH entry and one extra name.
	writeBinary(t, second, "vsp-alpha", 0755)
	writeBinary(t, second, "vsp-gamma", 0755)

	t.Setenv("PATH", first+string(os.PathListSeparator)+second)

	got := externalNames()
	want := []string{"alpha", "beta", "gamma"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("externalNames() = %v, want %v", got, want)
	}
}

func TestExternalNameEntry(t *testing.T) {
	dir := t.TempDir()
	writeBinary(t, dir, "vsp-ok", 0755)
	writeBinary(t, dir, "vsp-plain", 0644)
	writeBinary(t, dir, "other", 0755)
	writeBinary(t, dir, "vsp-", 0755)
	if err := os.Mkdir(filepath.Join(dir, "vsp-subdir"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	want := map[string]string{
		"vsp-ok":     "ok",
		"vsp-plain":  "",
		"other":      "",
		"vsp-":       "",
		"vsp-subdir": "",
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		name, ok := externalName(entry)
		expected := want[entry.Name()]
		if ok != (expected != "") || name != expected {
			t.Errorf("externalName(%q) = %q, %v; want %q", entry.Name(), name, ok, expected)
		}
	}
}

func TestExternalEnv(t *testing.T) {
	env := externalEnv("2.0.0")
	if len(env) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(env))
	}
	if env[0] != "VSP_VERSION=2.0.0" {
		t.Errorf("version entry = %q", env[0])
	}
	for _, prefix := range []string{"VSP_BIN=", "VSP_ROOT="} {
		found := false
		for _, e := range env {
			if strings.HasPrefix(e, prefix) && len(e) > len(prefix) {
				found = true
			}
		}
		if !found {
			t.Errorf("expected non-empty %s entry", prefix)
		}
	}
}
