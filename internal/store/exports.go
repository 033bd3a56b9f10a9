package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bobarin/animator/internal/models"
)

func (s *Store) exportPath(id string) string {
	return filepath.Join(s.exportsDir, id+".json")
}

// SaveExportJob persists the full job record. Called after every state
// change so a status query always reflects the latest durable state.
func (s *Store) SaveExportJob(job *models.ExportJob) error {
	if err := writeDoc(s.exportPath(job.ID), job); err != nil {
		return fmt.Errorf("failed to save export job %s: %w", job.ID, err)
	}
	return nil
}

// GetExportJob loads an export job by id. Returns ErrExportNotFound if no
// document exists, which lets status queries survive process restarts.
func (s *Store) GetExportJob(id string) (*models.ExportJob, error) {
	var job models.ExportJob
	if err := readDoc(s.exportPath(id), &job); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrExportNotFound
		}
		return nil, fmt.Errorf("failed to load export job %s: %w", id, err)
	}
	return &job, nil
}

// ListExportJobs returns all export jobs, newest first.
func (s *Store) ListExportJobs() ([]*models.ExportJob, error) {
	paths, err := listDocs(s.exportsDir)
	if err != nil {
		return nil, err
	}

	jobs := make([]*models.ExportJob, 0, len(paths))
	for _, path := range paths {
		var job models.ExportJob
		if err := readDoc(path, &job); err != nil {
			continue
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}
