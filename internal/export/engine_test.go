package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bobarin/animator/internal/models"
	"github.com/bobarin/animator/internal/services"
	"github.com/bobarin/animator/internal/store"
)

// fakeVideoTool stands in for ffmpeg. It writes real output files so the
// engine's filesystem handling is exercised.
type fakeVideoTool struct {
	mu sync.Mutex

	probeErr       error
	noVideoStream  bool
	transitionsErr error
	concatErr      error
	optimizeErr    error
	intensity      float64

	concatCalls      int
	transitionsCalls int
}

func (f *fakeVideoTool) Probe(ctx context.Context, path string) (*services.ProbeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	if f.noVideoStream {
		return &services.ProbeResult{
			Streams: []services.ProbeStream{{CodecType: "audio", CodecName: "aac"}},
			Format:  services.ProbeFormat{Duration: "5.0"},
		}, nil
	}
	return &services.ProbeResult{
		Streams: []services.ProbeStream{{CodecType: "video", CodecName: "h264", Width: 1280, Height: 720}},
		Format:  services.ProbeFormat{Duration: "5.0"},
	}, nil
}

func (f *fakeVideoTool) Concat(ctx context.Context, inputs []string, outputPath string) error {
	f.mu.Lock()
	f.concatCalls++
	err := f.concatErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("combined"), 0600)
}

func (f *fakeVideoTool) ConcatWithTransitions(ctx context.Context, inputs []string, durations []float64, transition float64, outputPath string) error {
	f.mu.Lock()
	f.transitionsCalls++
	err := f.transitionsErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("combined+fades"), 0600)
}

func (f *fakeVideoTool) Optimize(ctx context.Context, inputPath, outputPath, dimensions string) error {
	f.mu.Lock()
	err := f.optimizeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("optimized"), 0600)
}

func (f *fakeVideoTool) MeanFrameIntensity(ctx context.Context, path string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.intensity == 0 {
		return 128, nil
	}
	return f.intensity, nil
}

func (f *fakeVideoTool) calls() (transitions, concat int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transitionsCalls, f.concatCalls
}

func newTestEngine(t *testing.T, tool *fakeVideoTool) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	eng, err := New(st, tool, t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return eng, st
}

func writeClips(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, "clip"+string(rune('a'+i))+".mp4")
		if err := os.WriteFile(paths[i], []byte("video"), 0600); err != nil {
			t.Fatalf("write clip: %v", err)
		}
	}
	return paths
}

func waitForJob(t *testing.T, eng *Engine, id string) *models.ExportJob {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := eng.GetStatus(id)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal status")
	return nil
}

func TestCreateJobAppliesDefaults(t *testing.T) {
	tool := &fakeVideoTool{}
	eng, _ := newTestEngine(t, tool)

	job, err := eng.CreateJob(context.Background(), JobParams{
		ScenePaths: writeClips(t, 1),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.OutputFormat != models.FormatMP4 {
		t.Errorf("format = %s, want %s", job.OutputFormat, models.FormatMP4)
	}
	if job.Resolution != models.ResolutionFullHD {
		t.Errorf("resolution = %s, want %s", job.Resolution, models.ResolutionFullHD)
	}
	waitForJob(t, eng, job.ID)
}

func TestExportCompletesPlainConcat(t *testing.T) {
	tool := &fakeVideoTool{}
	eng, _ := newTestEngine(t, tool)

	job, err := eng.CreateJob(context.Background(), JobParams{
		ScenePaths:  writeClips(t, 2),
		ProjectName: "My Project!",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got := waitForJob(t, eng, job.ID)
	if got.Status != models.ExportStatusCompleted {
		t.Fatalf("status = %s, error = %v", got.Status, got.ErrorMessage)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100", got.Progress)
	}
	if got.OutputPath == nil {
		t.Fatal("no output path")
	}
	if _, err := os.Stat(*got.OutputPath); err != nil {
		t.Errorf("output file missing: %v", err)
	}
	if base := filepath.Base(*got.OutputPath); base[:11] != "My_Project_" {
		t.Errorf("project name not sanitized: %s", base)
	}
	if transitions, _ := tool.calls(); transitions != 0 {
		t.Error("transitions used without being requested")
	}
}

func TestExportTransitionFailureFallsBackToConcat(t *testing.T) {
	tool := &fakeVideoTool{transitionsErr: errors.New("xfade graph error")}
	eng, _ := newTestEngine(t, tool)

	job, err := eng.CreateJob(context.Background(), JobParams{
		ScenePaths:         writeClips(t, 3),
		IncludeTransitions: true,
		TransitionDuration: 0.5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got := waitForJob(t, eng, job.ID)
	if got.Status != models.ExportStatusCompleted {
		t.Fatalf("fallback did not complete: %s (%v)", got.Status, got.ErrorMessage)
	}
	if transitions, concat := tool.calls(); transitions != 1 || concat != 1 {
		t.Errorf("transitions=%d concat=%d, want 1 and 1", transitions, concat)
	}
}

func TestExportUsesTransitionsWhenRequested(t *testing.T) {
	tool := &fakeVideoTool{}
	eng, _ := newTestEngine(t, tool)

	job, _ := eng.CreateJob(context.Background(), JobParams{
		ScenePaths:         writeClips(t, 2),
		IncludeTransitions: true,
		TransitionDuration: 1,
	})

	got := waitForJob(t, eng, job.ID)
	if got.Status != models.ExportStatusCompleted {
		t.Fatalf("status = %s", got.Status)
	}
	if transitions, concat := tool.calls(); transitions != 1 || concat != 0 {
		t.Errorf("transitions=%d concat=%d, want 1 and 0", transitions, concat)
	}
}

func TestExportFailsOnMissingClip(t *testing.T) {
	tool := &fakeVideoTool{}
	eng, _ := newTestEngine(t, tool)

	clips := writeClips(t, 2)
	clips = append(clips, filepath.Join(t.TempDir(), "nope.mp4"))

	job, err := eng.CreateJob(context.Background(), JobParams{ScenePaths: clips})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got := waitForJob(t, eng, job.ID)
	if got.Status != models.ExportStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ErrorMessage == nil {
		t.Fatal("failed job has no error message")
	}
	if got.OutputPath != nil {
		t.Error("failed job has an output path")
	}
}

func TestExportFailsOnNonVideoInput(t *testing.T) {
	tool := &fakeVideoTool{noVideoStream: true}
	eng, _ := newTestEngine(t, tool)

	job, _ := eng.CreateJob(context.Background(), JobParams{ScenePaths: writeClips(t, 1)})

	got := waitForJob(t, eng, job.ID)
	if got.Status != models.ExportStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
}

func TestExportOptimizeFailureIsNonFatal(t *testing.T) {
	tool := &fakeVideoTool{optimizeErr: errors.New("unsupported codec")}
	eng, _ := newTestEngine(t, tool)

	job, _ := eng.CreateJob(context.Background(), JobParams{ScenePaths: writeClips(t, 2)})

	got := waitForJob(t, eng, job.ID)
	if got.Status != models.ExportStatusCompleted {
		t.Fatalf("status = %s (%v)", got.Status, got.ErrorMessage)
	}
	data, err := os.ReadFile(*got.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "combined" {
		t.Errorf("expected raw combined output, got %q", data)
	}
}

func TestExportRejectsBadParams(t *testing.T) {
	eng, _ := newTestEngine(t, &fakeVideoTool{})
	ctx := context.Background()

	if _, err := eng.CreateJob(ctx, JobParams{}); err == nil {
		t.Error("empty scene paths accepted")
	}
	if _, err := eng.CreateJob(ctx, JobParams{ScenePaths: []string{"a"}, OutputFormat: "avi"}); err == nil {
		t.Error("bad format accepted")
	}
	if _, err := eng.CreateJob(ctx, JobParams{ScenePaths: []string{"a"}, TransitionDuration: 3}); err == nil {
		t.Error("out-of-range transition duration accepted")
	}
}

func TestExportStatusSurvivesRestart(t *testing.T) {
	tool := &fakeVideoTool{}
	eng, st := newTestEngine(t, tool)

	job, _ := eng.CreateJob(context.Background(), JobParams{ScenePaths: writeClips(t, 1)})
	waitForJob(t, eng, job.ID)

	// A fresh engine over the same store has an empty registry and must
	// fall back to disk.
	eng2, err := New(st, tool, t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	got, err := eng2.GetStatus(job.ID)
	if err != nil {
		t.Fatalf("status after restart: %v", err)
	}
	if got.Status != models.ExportStatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
}

func TestGetOutputPathOnlyWhenCompleted(t *testing.T) {
	tool := &fakeVideoTool{}
	eng, st := newTestEngine(t, tool)

	pending := models.NewExportJob([]string{"x"}, "p", models.FormatMP4, models.ResolutionHD, false, 0)
	if err := st.SaveExportJob(pending); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := eng.GetOutputPath(pending.ID); err == nil {
		t.Error("output path returned for pending job")
	}

	if _, err := eng.GetOutputPath("missing"); !errors.Is(err, store.ErrExportNotFound) {
		t.Errorf("expected ErrExportNotFound, got %v", err)
	}
}
