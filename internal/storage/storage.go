package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// VideoStore manages rendered video artifacts on local disk. Every stored
// artifact gets a fresh uuid-based filename so callers can never collide
// or overwrite each other's output.
type VideoStore struct {
	dir string
}

// NewVideoStore creates the artifact directory if it doesn't exist.
func NewVideoStore(dir string) (*VideoStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "animator", "videos")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create video directory: %w", err)
	}

	return &VideoStore{dir: dir}, nil
}

// Dir returns the artifact directory path.
func (s *VideoStore) Dir() string {
	return s.dir
}

// Import copies the file at srcPath into the store under a fresh uuid name,
// preserving the source extension. Returns the managed path.
func (s *VideoStore) Import(srcPath string) (string, error) {
	src, err := os.Open(srcPath) // #nosec G304 - path comes from the render pipeline
	if err != nil {
		return "", fmt.Errorf("open source video: %w", err)
	}
	defer src.Close()

	ext := filepath.Ext(srcPath)
	if ext == "" {
		ext = ".mp4"
	}
	dstPath := filepath.Join(s.dir, uuid.New().String()+ext)

	dst, err := os.Create(dstPath) // #nosec G304 - uuid filename inside our own dir
	if err != nil {
		return "", fmt.Errorf("create managed video: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("copy video: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("close managed video: %w", err)
	}

	return dstPath, nil
}

// Remove deletes a managed artifact. Missing files are not an error.
func (s *VideoStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove video %s: %w", path, err)
	}
	return nil
}
