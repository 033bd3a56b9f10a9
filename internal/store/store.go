// Package store persists Scene and ExportJob records as one JSON document
// per id on the local filesystem. Documents are listed by modification time
// (newest first) and filtered client-side, so a record is always recoverable
// by scanning the directory even after a process restart.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrSceneNotFound  = errors.New("scene not found")
	ErrExportNotFound = errors.New("export job not found")
)

type Store struct {
	scenesDir  string
	exportsDir string
}

// New creates a Store rooted at baseDir, ensuring the record directories exist.
func New(baseDir string) (*Store, error) {
	s := &Store{
		scenesDir:  filepath.Join(baseDir, "scenes"),
		exportsDir: filepath.Join(baseDir, "export_jobs"),
	}
	for _, dir := range []string{s.scenesDir, s.exportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
		}
	}
	return s, nil
}

// writeDoc serializes v and writes it atomically: a concurrent reader sees
// either the previous document or the new one, never a partial write. This is
// what makes the queue's last-writer-wins policy safe.
func writeDoc(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close record: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit record: %w", err)
	}
	return nil
}

func readDoc(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// listDocs returns the JSON document paths in dir sorted by modification
// time, newest first. Temp files from in-flight writes are skipped.
func listDocs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	type docInfo struct {
		path  string
		mtime int64
	}
	docs := make([]docInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		docs = append(docs, docInfo{
			path:  filepath.Join(dir, e.Name()),
			mtime: info.ModTime().UnixNano(),
		})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].mtime > docs[j].mtime })

	paths := make([]string, len(docs))
	for i, d := range docs {
		paths[i] = d.path
	}
	return paths, nil
}
