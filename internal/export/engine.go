package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/bobarin/animator/internal/models"
	"github.com/bobarin/animator/internal/services"
	"github.com/bobarin/animator/internal/store"
)

// Frames darker than this mean the export is probably black. Warn, never fail.
const blankFrameThreshold = 5.0

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Engine combines rendered scene clips into a single exported video. Jobs
// run in the background; status lives in a memory registry with the JSON
// store as the durable copy, so status queries survive a restart.
type Engine struct {
	store     *store.Store
	video     services.VideoTool
	outputDir string
	tempDir   string

	mu   sync.RWMutex
	jobs map[string]*models.ExportJob
	wg   sync.WaitGroup
}

// New creates the engine and its output directory.
func New(st *store.Store, video services.VideoTool, outputDir, tempDir string) (*Engine, error) {
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Engine{
		store:     st,
		video:     video,
		outputDir: outputDir,
		tempDir:   tempDir,
		jobs:      make(map[string]*models.ExportJob),
	}, nil
}

// JobParams is a fully resolved export request: scene ids already mapped
// to video paths and defaults applied by the caller.
type JobParams struct {
	ScenePaths         []string
	ProjectName        string
	OutputFormat       models.VideoFormat
	Resolution         models.Resolution
	IncludeTransitions bool
	TransitionDuration float64
}

// CreateJob validates the parameters, persists a pending job and starts
// processing in the background. Returns immediately with the job id.
func (e *Engine) CreateJob(ctx context.Context, params JobParams) (*models.ExportJob, error) {
	if len(params.ScenePaths) == 0 {
		return nil, fmt.Errorf("export requires at least one scene video")
	}
	format := params.OutputFormat
	if format == "" {
		format = models.FormatMP4
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("unsupported output format %q", params.OutputFormat)
	}
	resolution := params.Resolution
	if resolution == "" {
		resolution = models.ResolutionFullHD
	}
	if !resolution.IsValid() {
		return nil, fmt.Errorf("unsupported resolution %q", params.Resolution)
	}
	if params.TransitionDuration < models.MinTransitionDuration || params.TransitionDuration > models.MaxTransitionDuration {
		return nil, fmt.Errorf("transition duration must be between %v and %v seconds",
			models.MinTransitionDuration, models.MaxTransitionDuration)
	}

	job := models.NewExportJob(params.ScenePaths, params.ProjectName, format, resolution,
		params.IncludeTransitions, params.TransitionDuration)

	e.mu.Lock()
	e.jobs[job.ID] = job
	snap := snapshot(job)
	e.mu.Unlock()

	if err := e.store.SaveExportJob(snap); err != nil {
		return nil, fmt.Errorf("persist export job: %w", err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		// Detached from the caller's context: the job outlives the HTTP
		// request that created it.
		e.process(context.Background(), job)
	}()

	log.Printf("[Export] Job %s created (%d clips, format=%s, transitions=%v)",
		snap.ID, len(snap.ScenePaths), snap.OutputFormat, snap.IncludeTransitions)

	return snap, nil
}

// GetStatus returns the current job state: memory registry first, then the
// durable store for jobs from before a restart.
func (e *Engine) GetStatus(id string) (*models.ExportJob, error) {
	e.mu.RLock()
	job, ok := e.jobs[id]
	var snap *models.ExportJob
	if ok {
		snap = snapshot(job)
	}
	e.mu.RUnlock()

	if ok {
		return snap, nil
	}
	return e.store.GetExportJob(id)
}

// GetOutputPath returns the exported file path for a completed job.
func (e *Engine) GetOutputPath(id string) (string, error) {
	job, err := e.GetStatus(id)
	if err != nil {
		return "", err
	}
	if job.Status != models.ExportStatusCompleted || job.OutputPath == nil {
		return "", fmt.Errorf("export %s is not completed (status: %s)", id, job.Status)
	}
	return *job.OutputPath, nil
}

// Wait blocks until all in-flight jobs finish. Used during shutdown.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) process(ctx context.Context, job *models.ExportJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Export] Panic in job %s: %v", job.ID, r)
			e.fail(job, fmt.Sprintf("internal error: %v", r))
		}
	}()

	e.advance(job, models.ExportStatusProcessing, 10)

	if err := e.validateClips(ctx, job); err != nil {
		e.fail(job, err.Error())
		return
	}

	e.advance(job, models.ExportStatusCombining, 20)

	combined := filepath.Join(e.tempDir, fmt.Sprintf("export_%s_combined.mp4", job.ID))
	defer os.Remove(combined)

	if err := e.combine(ctx, job, combined); err != nil {
		e.fail(job, fmt.Sprintf("failed to combine clips: %v", err))
		return
	}

	e.advance(job, models.ExportStatusFinalizing, 30)

	outputPath := filepath.Join(e.outputDir, e.outputFilename(job))
	if err := e.video.Optimize(ctx, combined, outputPath, job.Resolution.Dimensions()); err != nil {
		// Optimization is best-effort; ship the combined file as-is.
		log.Printf("[Export] Job %s: optimize failed, keeping combined output: %v", job.ID, err)
		if err := copyFile(combined, outputPath); err != nil {
			e.fail(job, fmt.Sprintf("failed to write output: %v", err))
			return
		}
	}

	e.advance(job, models.ExportStatusFinalizing, 90)

	e.verify(ctx, job, outputPath)

	e.mu.Lock()
	job.MarkCompleted(outputPath)
	e.mu.Unlock()
	e.persist(job)

	log.Printf("[Export] Job %s completed: %s", job.ID, outputPath)
}

// validateClips checks every input exists and probes as a playable video.
func (e *Engine) validateClips(ctx context.Context, job *models.ExportJob) error {
	for _, path := range job.ScenePaths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("scene video missing: %s", path)
		}

		probe, err := e.video.Probe(ctx, path)
		if err != nil {
			return fmt.Errorf("scene video unreadable: %s: %v", path, err)
		}
		vs := probe.VideoStream()
		if vs == nil {
			return fmt.Errorf("scene video has no video stream: %s", path)
		}
		if vs.CodecName == "" {
			return fmt.Errorf("scene video has no codec: %s", path)
		}
		if probe.DurationSeconds() <= 0.1 {
			return fmt.Errorf("scene video too short: %s", path)
		}
		if vs.Width < 100 || vs.Height < 100 {
			return fmt.Errorf("scene video dimensions too small (%dx%d): %s", vs.Width, vs.Height, path)
		}
	}
	return nil
}

// combine stitches the clips. Transitions are attempted when requested; any
// probe or filter failure falls back to a plain concat so the export still
// produces a watchable video.
func (e *Engine) combine(ctx context.Context, job *models.ExportJob, outputPath string) error {
	if job.IncludeTransitions && job.TransitionDuration > 0 && len(job.ScenePaths) > 1 {
		durations, err := e.clipDurations(ctx, job.ScenePaths)
		if err == nil {
			err = e.video.ConcatWithTransitions(ctx, job.ScenePaths, durations, job.TransitionDuration, outputPath)
			if err == nil {
				return nil
			}
		}
		log.Printf("[Export] Job %s: transitions failed, falling back to plain concat: %v", job.ID, err)
	}

	return e.video.Concat(ctx, job.ScenePaths, outputPath)
}

func (e *Engine) clipDurations(ctx context.Context, paths []string) ([]float64, error) {
	durations := make([]float64, len(paths))
	for i, path := range paths {
		probe, err := e.video.Probe(ctx, path)
		if err != nil {
			return nil, err
		}
		d := probe.DurationSeconds()
		if d <= 0 {
			return nil, fmt.Errorf("no duration for %s", path)
		}
		durations[i] = d
	}
	return durations, nil
}

// verify samples a frame from the output and warns when it looks blank.
// Diagnostics only; the job completes either way.
func (e *Engine) verify(ctx context.Context, job *models.ExportJob, outputPath string) {
	intensity, err := e.video.MeanFrameIntensity(ctx, outputPath)
	if err != nil {
		log.Printf("[Export] Job %s: frame verification skipped: %v", job.ID, err)
		return
	}
	if intensity <= blankFrameThreshold {
		log.Printf("[Export] Job %s: output may be blank (mean frame intensity %.2f)", job.ID, intensity)
	}
}

func (e *Engine) outputFilename(job *models.ExportJob) string {
	name := unsafeNameRe.ReplaceAllString(job.ProjectName, "_")
	if name == "" || name == "_" {
		name = "animation"
	}
	return fmt.Sprintf("%s_%d.%s", name, time.Now().Unix(), job.OutputFormat)
}

func (e *Engine) advance(job *models.ExportJob, status models.ExportStatus, progress int) {
	e.mu.Lock()
	job.Advance(status, progress)
	e.mu.Unlock()
	e.persist(job)
}

func (e *Engine) fail(job *models.ExportJob, msg string) {
	e.mu.Lock()
	job.MarkFailed(msg)
	e.mu.Unlock()
	e.persist(job)
	log.Printf("[Export] Job %s failed: %s", job.ID, msg)
}

func (e *Engine) persist(job *models.ExportJob) {
	e.mu.RLock()
	snap := snapshot(job)
	e.mu.RUnlock()
	if err := e.store.SaveExportJob(snap); err != nil {
		log.Printf("[Export] Failed to persist job %s: %v", snap.ID, err)
	}
}

// snapshot copies the job so callers never share the mutable instance with
// the background goroutine. Caller must hold at least a read lock when the
// job is in the registry.
func snapshot(job *models.ExportJob) *models.ExportJob {
	cp := *job
	cp.ScenePaths = append([]string(nil), job.ScenePaths...)
	return &cp
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - both paths are engine-owned
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst) // #nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
