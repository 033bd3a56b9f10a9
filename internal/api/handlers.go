package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bobarin/animator/internal/export"
	"github.com/bobarin/animator/internal/models"
	"github.com/bobarin/animator/internal/queue"
	"github.com/bobarin/animator/internal/store"
)

type Handler struct {
	store   *store.Store
	queue   queue.Queue
	exports *export.Engine
}

func NewHandler(st *store.Store, q queue.Queue, exports *export.Engine) *Handler {
	return &Handler{
		store:   st,
		queue:   q,
		exports: exports,
	}
}

// CreateScene handles POST /v1/scenes
func (h *Handler) CreateScene(w http.ResponseWriter, r *http.Request) {
	var req models.SceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Prompt == "" {
		respondError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	library := models.LibraryManim
	if req.Library != nil {
		library = *req.Library
	}
	if !library.IsValid() {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported library %q", library))
		return
	}

	duration := 5
	if req.Duration != nil {
		duration = *req.Duration
	}
	if duration < models.MinSceneDuration || duration > models.MaxSceneDuration {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("Duration must be between %d and %d seconds", models.MinSceneDuration, models.MaxSceneDuration))
		return
	}

	resolution := models.ResolutionFullHD
	if req.Resolution != nil {
		resolution = *req.Resolution
	}
	if !resolution.IsValid() {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported resolution %q", resolution))
		return
	}

	scene := models.NewScene(req.Prompt, library, duration, resolution)
	if req.OwnerID != nil && *req.OwnerID != "" {
		scene.Metadata["owner_id"] = *req.OwnerID
	}
	if len(req.Style) > 0 {
		scene.Metadata["style"] = req.Style
	}

	if err := h.store.CreateScene(scene); err != nil {
		log.Printf("[API] Failed to create scene: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to create scene")
		return
	}

	if err := h.queue.Enqueue(r.Context(), scene.ID); err != nil {
		log.Printf("[API] Failed to enqueue scene %s: %v", scene.ID, err)
		respondError(w, http.StatusInternalServerError, "Failed to queue scene for processing")
		return
	}

	respondJSON(w, http.StatusAccepted, models.SceneResponse{
		ID:      scene.ID,
		Status:  scene.Status,
		Message: "Scene queued for generation",
	})
}

// ListScenes handles GET /v1/scenes
func (h *Handler) ListScenes(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	ownerID := r.URL.Query().Get("owner_id")

	list, err := h.store.ListScenes(page, pageSize, ownerID)
	if err != nil {
		log.Printf("[API] Failed to list scenes: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list scenes")
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// GetScene handles GET /v1/scenes/{id}
func (h *Handler) GetScene(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.loadScene(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, scene)
}

// DeleteScene handles DELETE /v1/scenes/{id}
func (h *Handler) DeleteScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteScene(id); err != nil {
		if errors.Is(err, store.ErrSceneNotFound) {
			respondError(w, http.StatusNotFound, "Scene not found")
			return
		}
		log.Printf("[API] Failed to delete scene %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "Failed to delete scene")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Scene deleted"})
}

// GetSceneVideo handles GET /v1/scenes/{id}/video
func (h *Handler) GetSceneVideo(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.loadScene(w, r)
	if !ok {
		return
	}

	if scene.Status != models.SceneStatusCompleted || scene.VideoPath == nil {
		respondError(w, http.StatusConflict,
			fmt.Sprintf("Scene video is not ready (status: %s)", scene.Status))
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, *scene.VideoPath)
}

// GetSceneCode handles GET /v1/scenes/{id}/code
func (h *Handler) GetSceneCode(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.loadScene(w, r)
	if !ok {
		return
	}

	if scene.GeneratedCode == nil {
		respondError(w, http.StatusConflict,
			fmt.Sprintf("Scene has no generated code yet (status: %s)", scene.Status))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"scene_id": scene.ID,
		"library":  scene.Library,
		"code":     *scene.GeneratedCode,
	})
}

// RegenerateScene handles POST /v1/scenes/{id}/regenerate
func (h *Handler) RegenerateScene(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.loadScene(w, r)
	if !ok {
		return
	}

	// Optional body with a replacement prompt.
	var req struct {
		Prompt *string `json:"prompt,omitempty"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if req.Prompt != nil && *req.Prompt != "" {
		if scene.OriginalPrompt == nil {
			original := scene.Prompt
			scene.OriginalPrompt = &original
		}
		scene.Prompt = *req.Prompt
	} else if scene.OriginalPrompt != nil {
		// Re-run from the raw prompt so enhancement starts fresh.
		scene.Prompt = *scene.OriginalPrompt
	}

	scene.ResetForRegeneration()

	if err := h.store.UpdateScene(scene); err != nil {
		log.Printf("[API] Failed to reset scene %s: %v", scene.ID, err)
		respondError(w, http.StatusInternalServerError, "Failed to reset scene")
		return
	}

	if err := h.queue.Enqueue(r.Context(), scene.ID); err != nil {
		log.Printf("[API] Failed to re-enqueue scene %s: %v", scene.ID, err)
		respondError(w, http.StatusInternalServerError, "Failed to queue scene for processing")
		return
	}

	respondJSON(w, http.StatusAccepted, models.SceneResponse{
		ID:             scene.ID,
		Status:         scene.Status,
		Message:        "Scene queued for regeneration",
		OriginalPrompt: scene.OriginalPrompt,
	})
}

// CreateExport handles POST /v1/exports
func (h *Handler) CreateExport(w http.ResponseWriter, r *http.Request) {
	var req models.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.SceneIDs) == 0 {
		respondError(w, http.StatusBadRequest, "At least one scene id is required")
		return
	}

	// Resolve scene ids to video paths, preserving request order.
	scenePaths := make([]string, 0, len(req.SceneIDs))
	for _, id := range req.SceneIDs {
		scene, err := h.store.GetScene(id)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Scene %s not found", id))
			return
		}
		if scene.Status != models.SceneStatusCompleted || scene.VideoPath == nil {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("Scene %s has no rendered video (status: %s)", id, scene.Status))
			return
		}
		scenePaths = append(scenePaths, *scene.VideoPath)
	}

	params := export.JobParams{
		ScenePaths:         scenePaths,
		ProjectName:        req.ProjectName,
		TransitionDuration: 0.5,
	}
	if req.Format != nil {
		params.OutputFormat = *req.Format
	}
	if req.Resolution != nil {
		params.Resolution = *req.Resolution
	}
	if req.IncludeTransitions != nil {
		params.IncludeTransitions = *req.IncludeTransitions
	}
	if req.TransitionDuration != nil {
		params.TransitionDuration = *req.TransitionDuration
	}

	job, err := h.exports.CreateJob(r.Context(), params)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, models.CreateExportResponse{
		ExportID: job.ID,
		Status:   job.Status,
	})
}

// GetExport handles GET /v1/exports/{id}
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.exports.GetStatus(id)
	if err != nil {
		if errors.Is(err, store.ErrExportNotFound) {
			respondError(w, http.StatusNotFound, "Export not found")
			return
		}
		log.Printf("[API] Failed to get export %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "Failed to get export status")
		return
	}

	resp := models.ExportStatusResponse{
		ExportID:     job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		ErrorMessage: job.ErrorMessage,
		OutputPath:   job.OutputPath,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
	}
	if job.Status == models.ExportStatusCompleted {
		url := fmt.Sprintf("/v1/exports/%s/download", job.ID)
		resp.DownloadURL = &url
	}

	respondJSON(w, http.StatusOK, resp)
}

// DownloadExport handles GET /v1/exports/{id}/download
func (h *Handler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	path, err := h.exports.GetOutputPath(id)
	if err != nil {
		if errors.Is(err, store.ErrExportNotFound) {
			respondError(w, http.StatusNotFound, "Export not found")
			return
		}
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadScene fetches the scene from the path id, writing the error response
// itself when the scene is missing.
func (h *Handler) loadScene(w http.ResponseWriter, r *http.Request) (*models.Scene, bool) {
	id := chi.URLParam(r, "id")
	scene, err := h.store.GetScene(id)
	if err != nil {
		if errors.Is(err, store.ErrSceneNotFound) {
			respondError(w, http.StatusNotFound, "Scene not found")
		} else {
			log.Printf("[API] Failed to load scene %s: %v", id, err)
			respondError(w, http.StatusInternalServerError, "Failed to load scene")
		}
		return nil, false
	}
	return scene, true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
