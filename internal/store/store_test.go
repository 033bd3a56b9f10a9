package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobarin/animator/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestSceneCreateGet(t *testing.T) {
	s := newTestStore(t)
	scene := models.NewScene("a pendulum", models.LibraryManim, 5, models.ResolutionFullHD)

	if err := s.CreateScene(scene); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	loaded, err := s.GetScene(scene.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if loaded.Prompt != "a pendulum" || loaded.Status != models.SceneStatusPending {
		t.Errorf("loaded scene mismatch: %+v", loaded)
	}
}

func TestSceneGetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetScene("missing"); err != ErrSceneNotFound {
		t.Errorf("expected ErrSceneNotFound, got %v", err)
	}
}

func TestSceneUpdateBumpsTimestamp(t *testing.T) {
	s := newTestStore(t)
	scene := models.NewScene("x", models.LibraryManim, 5, models.ResolutionFullHD)
	_ = s.CreateScene(scene)

	before := scene.UpdatedAt
	time.Sleep(10 * time.Millisecond)
	scene.Status = models.SceneStatusProcessing
	if err := s.UpdateScene(scene); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	loaded, _ := s.GetScene(scene.ID)
	if !loaded.UpdatedAt.After(before) {
		t.Error("update must bump UpdatedAt")
	}
	if loaded.Status != models.SceneStatusProcessing {
		t.Errorf("expected processing, got %s", loaded.Status)
	}
}

func TestListScenesPaginationAndOwnerFilter(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		scene := models.NewScene("scene", models.LibraryManim, 5, models.ResolutionFullHD)
		if i%2 == 0 {
			scene.Metadata["owner_id"] = "alice"
		} else {
			scene.Metadata["owner_id"] = "bob"
		}
		if err := s.CreateScene(scene); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		// Distinct mtimes so ordering is deterministic
		time.Sleep(5 * time.Millisecond)
	}

	all, err := s.ListScenes(1, 3, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if all.Total != 5 || len(all.Scenes) != 3 || all.TotalPages != 2 {
		t.Errorf("expected total=5 page=3 pages=2, got %d/%d/%d", all.Total, len(all.Scenes), all.TotalPages)
	}

	page2, _ := s.ListScenes(2, 3, "")
	if len(page2.Scenes) != 2 {
		t.Errorf("expected 2 scenes on page 2, got %d", len(page2.Scenes))
	}

	alice, _ := s.ListScenes(1, 10, "alice")
	if alice.Total != 3 {
		t.Errorf("expected 3 scenes for alice, got %d", alice.Total)
	}
	for _, sc := range alice.Scenes {
		if sc.OwnerID() != "alice" {
			t.Errorf("owner filter leaked scene owned by %q", sc.OwnerID())
		}
	}
}

func TestListScenesNewestFirst(t *testing.T) {
	s := newTestStore(t)

	first := models.NewScene("first", models.LibraryManim, 5, models.ResolutionFullHD)
	_ = s.CreateScene(first)
	time.Sleep(10 * time.Millisecond)
	second := models.NewScene("second", models.LibraryManim, 5, models.ResolutionFullHD)
	_ = s.CreateScene(second)

	list, _ := s.ListScenes(1, 10, "")
	if len(list.Scenes) != 2 || list.Scenes[0].ID != second.ID {
		t.Error("expected newest scene first")
	}
}

func TestDeleteSceneRemovesVideo(t *testing.T) {
	s := newTestStore(t)
	scene := models.NewScene("x", models.LibraryManim, 5, models.ResolutionFullHD)
	_ = s.CreateScene(scene)

	videoPath := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	scene.MarkCompleted(videoPath)
	_ = s.UpdateScene(scene)

	if err := s.DeleteScene(scene.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.GetScene(scene.ID); err != ErrSceneNotFound {
		t.Error("scene document should be gone")
	}
	if _, err := os.Stat(videoPath); !os.IsNotExist(err) {
		t.Error("video file should be gone")
	}
}

func TestExportJobSaveLoadSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)

	job := models.NewExportJob([]string{"a.mp4", "b.mp4"}, "My Film", models.FormatMP4, models.ResolutionFullHD, true, 0.5)
	job.Advance(models.ExportStatusCombining, 30)
	if err := s.SaveExportJob(job); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Simulate a restart: a brand-new store over the same directory
	restarted, _ := New(dir)
	loaded, err := restarted.GetExportJob(job.ID)
	if err != nil {
		t.Fatalf("load after restart failed: %v", err)
	}
	if loaded.Status != models.ExportStatusCombining || loaded.Progress != 30 {
		t.Errorf("restart lost state: %s/%d", loaded.Status, loaded.Progress)
	}
	if len(loaded.ScenePaths) != 2 || loaded.ScenePaths[0] != "a.mp4" {
		t.Error("restart lost clip ordering")
	}
}

func TestExportJobNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetExportJob("missing"); err != ErrExportNotFound {
		t.Errorf("expected ErrExportNotFound, got %v", err)
	}
}
