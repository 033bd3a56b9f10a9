package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestImportCopiesUnderFreshName(t *testing.T) {
	s, err := NewVideoStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	src := filepath.Join(t.TempDir(), "render.mp4")
	if err := os.WriteFile(src, []byte("frames"), 0600); err != nil {
		t.Fatal(err)
	}

	first, err := s.Import(src)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	second, err := s.Import(src)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if first == second {
		t.Error("two imports produced the same path")
	}
	if !strings.HasPrefix(first, s.Dir()) {
		t.Errorf("artifact outside store dir: %s", first)
	}
	if filepath.Ext(first) != ".mp4" {
		t.Errorf("extension not preserved: %s", first)
	}

	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "frames" {
		t.Errorf("content mismatch: %q", data)
	}
}

func TestImportMissingSource(t *testing.T) {
	s, err := NewVideoStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := s.Import(filepath.Join(t.TempDir(), "nope.mp4")); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestRemoveMissingIsNoError(t *testing.T) {
	s, err := NewVideoStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Remove(filepath.Join(s.Dir(), "gone.mp4")); err != nil {
		t.Errorf("remove missing: %v", err)
	}
}
