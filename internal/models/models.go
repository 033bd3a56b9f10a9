package models

import (
	"time"

	"github.com/google/uuid"
)

// Enums

// AnimationLibrary identifies the renderer backend a scene targets.
type AnimationLibrary string

const (
	LibraryManim   AnimationLibrary = "manim"
	LibraryThreeJS AnimationLibrary = "threejs"
	LibraryP5JS    AnimationLibrary = "p5js"
)

// IsValid returns true if the library is one of the supported backends.
func (l AnimationLibrary) IsValid() bool {
	return l == LibraryManim || l == LibraryThreeJS || l == LibraryP5JS
}

type SceneStatus string

const (
	SceneStatusPending        SceneStatus = "pending"
	SceneStatusProcessing     SceneStatus = "processing"
	SceneStatusGeneratingCode SceneStatus = "generating_code"
	SceneStatusRendering      SceneStatus = "rendering"
	SceneStatusCompleted      SceneStatus = "completed"
	SceneStatusFailed         SceneStatus = "failed"
)

// IsTerminal returns true when the scene has reached a final state.
func (s SceneStatus) IsTerminal() bool {
	return s == SceneStatusCompleted || s == SceneStatusFailed
}

type VideoFormat string

const (
	FormatMP4  VideoFormat = "mp4"
	FormatWebM VideoFormat = "webm"
	FormatGIF  VideoFormat = "gif"
)

func (f VideoFormat) IsValid() bool {
	return f == FormatMP4 || f == FormatWebM || f == FormatGIF
}

type Resolution string

const (
	ResolutionHD      Resolution = "720p"
	ResolutionFullHD  Resolution = "1080p"
	ResolutionUltraHD Resolution = "4K"
)

func (r Resolution) IsValid() bool {
	return r == ResolutionHD || r == ResolutionFullHD || r == ResolutionUltraHD
}

// Dimensions returns the "WxH" string ffmpeg expects for this resolution.
func (r Resolution) Dimensions() string {
	switch r {
	case ResolutionHD:
		return "1280x720"
	case ResolutionUltraHD:
		return "3840x2160"
	default:
		return "1920x1080"
	}
}

type ExportStatus string

const (
	ExportStatusPending    ExportStatus = "pending"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusCombining  ExportStatus = "combining"
	ExportStatusFinalizing ExportStatus = "finalizing"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
)

func (s ExportStatus) IsTerminal() bool {
	return s == ExportStatusCompleted || s == ExportStatusFailed
}

// Duration limits for a single scene, in seconds.
const (
	MinSceneDuration = 1
	MaxSceneDuration = 30
)

// Transition duration bounds for exports, in seconds.
const (
	MinTransitionDuration = 0.0
	MaxTransitionDuration = 2.0
)

// Models

// Scene is one animation generation/render unit: prompt → code → video.
// The scene pipeline owns all mutation after creation; the API and export
// layers only read it.
type Scene struct {
	ID             string                 `json:"id"`
	Prompt         string                 `json:"prompt"`                    // Prompt sent to the code generator (possibly enhanced)
	OriginalPrompt *string                `json:"original_prompt,omitempty"` // Preserved for regeneration
	Library        AnimationLibrary       `json:"library"`
	Duration       int                    `json:"duration"` // Seconds
	Resolution     Resolution             `json:"resolution"`
	Status         SceneStatus            `json:"status"`
	GeneratedCode  *string                `json:"generated_code,omitempty"`
	VideoPath      *string                `json:"video_path,omitempty"` // Set only on completion
	Metadata       map[string]interface{} `json:"metadata,omitempty"`   // Carries owner_id and style options
	Error          *string                `json:"error,omitempty"`      // Set only on failure
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// NewScene creates a pending scene with a fresh id.
func NewScene(prompt string, library AnimationLibrary, duration int, resolution Resolution) *Scene {
	now := time.Now().UTC()
	return &Scene{
		ID:         uuid.New().String(),
		Prompt:     prompt,
		Library:    library,
		Duration:   duration,
		Resolution: resolution,
		Status:     SceneStatusPending,
		Metadata:   map[string]interface{}{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkCompleted sets the terminal success state. Error is cleared so the
// completed ⇔ video_path invariant holds.
func (s *Scene) MarkCompleted(videoPath string) {
	s.Status = SceneStatusCompleted
	s.VideoPath = &videoPath
	s.Error = nil
}

// MarkFailed sets the terminal failure state. VideoPath is cleared so the
// failed ⇔ error invariant holds.
func (s *Scene) MarkFailed(errMsg string) {
	s.Status = SceneStatusFailed
	s.Error = &errMsg
	s.VideoPath = nil
}

// ResetForRegeneration puts a terminal scene back into the pending state,
// clearing the previous run's outputs while preserving the identity and the
// original prompt. The caller re-enqueues the scene afterwards.
func (s *Scene) ResetForRegeneration() {
	s.Status = SceneStatusPending
	s.Error = nil
	s.GeneratedCode = nil
	s.VideoPath = nil
}

// OwnerID returns the owner recorded in metadata, or "" if none.
func (s *Scene) OwnerID() string {
	if s.Metadata == nil {
		return ""
	}
	if owner, ok := s.Metadata["owner_id"].(string); ok {
		return owner
	}
	return ""
}

// Style returns the style options recorded in metadata, or nil.
func (s *Scene) Style() map[string]interface{} {
	if s.Metadata == nil {
		return nil
	}
	if style, ok := s.Metadata["style"].(map[string]interface{}); ok {
		return style
	}
	return nil
}

// ExportJob is one request to combine multiple scene videos into a single
// output video. Configuration fields are immutable after creation; only
// status/progress/error/output mutate, and only the export engine writes them.
type ExportJob struct {
	ID                 string       `json:"id"`
	ScenePaths         []string     `json:"scene_paths"` // Animation sequence order — significant
	ProjectName        string       `json:"project_name"`
	OutputFormat       VideoFormat  `json:"output_format"`
	Resolution         Resolution   `json:"resolution"`
	IncludeTransitions bool         `json:"include_transitions"`
	TransitionDuration float64      `json:"transition_duration"` // Seconds, 0-2
	Status             ExportStatus `json:"status"`
	Progress           int          `json:"progress"` // 0-100, non-decreasing
	ErrorMessage       *string      `json:"error_message,omitempty"`
	OutputPath         *string      `json:"output_path,omitempty"` // Set only on completion
	CreatedAt          time.Time    `json:"created_at"`
	CompletedAt        *time.Time   `json:"completed_at,omitempty"`
}

// NewExportJob creates a pending export job with a fresh id.
func NewExportJob(scenePaths []string, projectName string, format VideoFormat, resolution Resolution, transitions bool, transitionDuration float64) *ExportJob {
	if projectName == "" {
		projectName = "animation"
	}
	return &ExportJob{
		ID:                 uuid.New().String(),
		ScenePaths:         scenePaths,
		ProjectName:        projectName,
		OutputFormat:       format,
		Resolution:         resolution,
		IncludeTransitions: transitions,
		TransitionDuration: transitionDuration,
		Status:             ExportStatusPending,
		Progress:           0,
		CreatedAt:          time.Now().UTC(),
	}
}

// Advance moves the job to a non-terminal stage, never letting progress go
// backwards.
func (j *ExportJob) Advance(status ExportStatus, progress int) {
	j.Status = status
	if progress > j.Progress {
		j.Progress = progress
	}
}

// MarkCompleted sets the terminal success state with the final output path.
func (j *ExportJob) MarkCompleted(outputPath string) {
	now := time.Now().UTC()
	j.Status = ExportStatusCompleted
	j.Progress = 100
	j.OutputPath = &outputPath
	j.ErrorMessage = nil
	j.CompletedAt = &now
}

// MarkFailed sets the terminal failure state. OutputPath stays nil.
func (j *ExportJob) MarkFailed(errMsg string) {
	j.Status = ExportStatusFailed
	j.ErrorMessage = &errMsg
	j.OutputPath = nil
}

// DTOs for API requests and responses

type SceneRequest struct {
	Prompt     string                 `json:"prompt"`
	Library    *AnimationLibrary      `json:"library,omitempty"`    // Default: manim
	Duration   *int                   `json:"duration,omitempty"`   // Default: 5
	Resolution *Resolution            `json:"resolution,omitempty"` // Default: 1080p
	Style      map[string]interface{} `json:"style,omitempty"`
	OwnerID    *string                `json:"owner_id,omitempty"`
}

type SceneResponse struct {
	ID             string      `json:"id"`
	Status         SceneStatus `json:"status"`
	Message        string      `json:"message"`
	VideoURL       *string     `json:"video_url,omitempty"`
	Code           *string     `json:"code,omitempty"`
	Error          *string     `json:"error,omitempty"`
	OriginalPrompt *string     `json:"original_prompt,omitempty"`
}

type SceneListResponse struct {
	Scenes     []*Scene `json:"scenes"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
}

type ExportRequest struct {
	SceneIDs           []string     `json:"scene_ids"`
	ProjectName        string       `json:"project_name"`
	Format             *VideoFormat `json:"format,omitempty"`     // Default: mp4
	Resolution         *Resolution  `json:"resolution,omitempty"` // Default: 1080p
	IncludeTransitions *bool        `json:"include_transitions,omitempty"`
	TransitionDuration *float64     `json:"transition_duration,omitempty"` // Default: 0.5
}

type ExportStatusResponse struct {
	ExportID     string       `json:"export_id"`
	Status       ExportStatus `json:"status"`
	Progress     int          `json:"progress"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	OutputPath   *string      `json:"output_path,omitempty"`
	DownloadURL  *string      `json:"download_url,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

type CreateExportResponse struct {
	ExportID string       `json:"export_id"`
	Status   ExportStatus `json:"status"`
}
