package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/bobarin/animator/internal/models"
)

func (s *Store) scenePath(id string) string {
	return filepath.Join(s.scenesDir, id+".json")
}

// CreateScene writes a new scene document.
func (s *Store) CreateScene(scene *models.Scene) error {
	if err := writeDoc(s.scenePath(scene.ID), scene); err != nil {
		return fmt.Errorf("failed to create scene %s: %w", scene.ID, err)
	}
	log.Printf("[Store] Created scene %s", scene.ID)
	return nil
}

// GetScene loads a scene by id. Returns ErrSceneNotFound if no document exists.
func (s *Store) GetScene(id string) (*models.Scene, error) {
	var scene models.Scene
	if err := readDoc(s.scenePath(id), &scene); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSceneNotFound
		}
		return nil, fmt.Errorf("failed to load scene %s: %w", id, err)
	}
	return &scene, nil
}

// UpdateScene persists the scene, bumping its updated timestamp. Writes the
// whole document; concurrent pipeline runs against the same id resolve as
// last-writer-wins.
func (s *Store) UpdateScene(scene *models.Scene) error {
	scene.UpdatedAt = time.Now().UTC()
	if err := writeDoc(s.scenePath(scene.ID), scene); err != nil {
		return fmt.Errorf("failed to update scene %s: %w", scene.ID, err)
	}
	return nil
}

// ListScenes returns a page of scenes ordered newest first. If ownerID is
// non-empty, only scenes whose metadata carries that owner are returned;
// filtering happens before pagination so page counts stay consistent.
func (s *Store) ListScenes(page, pageSize int, ownerID string) (*models.SceneListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	paths, err := listDocs(s.scenesDir)
	if err != nil {
		return nil, err
	}

	scenes := make([]*models.Scene, 0, len(paths))
	for _, path := range paths {
		var scene models.Scene
		if err := readDoc(path, &scene); err != nil {
			// A record mid-write or corrupted; skip rather than fail the listing.
			log.Printf("[Store] Skipping unreadable scene document %s: %v", path, err)
			continue
		}
		if ownerID != "" && scene.OwnerID() != ownerID {
			continue
		}
		scenes = append(scenes, &scene)
	}

	total := len(scenes)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &models.SceneListResponse{
		Scenes:     scenes[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// DeleteScene removes the scene document and its rendered video, if any.
func (s *Store) DeleteScene(id string) error {
	scene, err := s.GetScene(id)
	if err != nil {
		return err
	}

	if err := os.Remove(s.scenePath(id)); err != nil {
		return fmt.Errorf("failed to delete scene %s: %w", id, err)
	}

	if scene.VideoPath != nil {
		if err := os.Remove(*scene.VideoPath); err != nil && !os.IsNotExist(err) {
			log.Printf("[Store] Could not remove video for scene %s: %v", id, err)
		}
	}

	log.Printf("[Store] Deleted scene %s", id)
	return nil
}
