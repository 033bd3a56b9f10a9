package worker

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/bobarin/animator/internal/models"
	"github.com/bobarin/animator/internal/queue"
	"github.com/bobarin/animator/internal/services"
	"github.com/bobarin/animator/internal/store"
)

// Renderer turns generated code into a stored video file.
type Renderer interface {
	Validate(code string) error
	ExtractSceneName(code string) string
	Render(ctx context.Context, code, sceneName string) (string, error)
}

// Pool runs the scene pipeline: N workers pull scene ids off the queue and
// drive each scene through code generation and rendering, persisting the
// scene document at every status transition.
type Pool struct {
	store     *store.Store
	queue     queue.Queue
	codegen   services.CodeGenerator
	enhancer  services.PromptEnhancer
	renderers map[models.AnimationLibrary]Renderer
	count     int

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a pool. renderers maps each renderable library to its adapter;
// scenes requesting an unmapped library fail at the render step. enhancer
// may be nil, in which case raw prompts go straight to code generation.
func New(st *store.Store, q queue.Queue, cg services.CodeGenerator, enhancer services.PromptEnhancer, renderers map[models.AnimationLibrary]Renderer, count int) *Pool {
	if count <= 0 {
		count = 3
	}
	return &Pool{
		store:     st,
		queue:     q,
		codegen:   cg,
		enhancer:  enhancer,
		renderers: renderers,
		count:     count,
	}
}

// Start launches the worker goroutines. Non-blocking.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.group, ctx = errgroup.WithContext(ctx)

	log.Printf("[Worker] Starting %d scene workers", p.count)
	for i := 0; i < p.count; i++ {
		id := i
		p.group.Go(func() error {
			p.run(ctx, id)
			return nil
		})
	}
}

// Stop cancels the workers and waits for in-flight scenes to finish their
// current step.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	if p.group != nil {
		_ = p.group.Wait()
	}
	log.Printf("[Worker] All scene workers stopped")
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		sceneID, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return
			}
			log.Printf("[Worker %d] Dequeue error: %v", id, err)
			continue
		}

		p.processScene(ctx, id, sceneID)
	}
}

// processScene drives one scene through the pipeline. A panic in any step
// marks the scene failed instead of killing the worker.
func (p *Pool) processScene(ctx context.Context, workerID int, sceneID string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Worker %d] Panic processing scene %s: %v", workerID, sceneID, r)
			p.failScene(sceneID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	scene, err := p.store.GetScene(sceneID)
	if err != nil {
		// The scene may have been deleted while queued.
		log.Printf("[Worker %d] Skipping scene %s: %v", workerID, sceneID, err)
		return
	}

	log.Printf("[Worker %d] Processing scene %s (library=%s, duration=%ds)",
		workerID, scene.ID, scene.Library, scene.Duration)

	if !p.transition(scene, models.SceneStatusProcessing) {
		return
	}

	// Enrich the prompt before generation, keeping the raw prompt for
	// later regeneration. Failures fall back to the raw prompt.
	if p.enhancer != nil {
		raw := scene.Prompt
		enhanced, err := p.enhancer.EnhancePrompt(ctx, raw, scene.Library)
		if err != nil {
			log.Printf("[Worker %d] Prompt enhancement failed for scene %s, using raw prompt: %v", workerID, scene.ID, err)
		} else if enhanced != "" && enhanced != raw {
			if scene.OriginalPrompt == nil {
				scene.OriginalPrompt = &raw
			}
			scene.Prompt = enhanced
			if err := p.store.UpdateScene(scene); err != nil {
				log.Printf("[Worker %d] Failed to persist enhanced prompt for scene %s: %v", workerID, scene.ID, err)
				return
			}
		}
	}

	if !p.transition(scene, models.SceneStatusGeneratingCode) {
		return
	}

	code, err := p.codegen.GenerateCode(ctx, scene.Prompt, scene.Library, scene.Duration, scene.Style())
	if err != nil {
		log.Printf("[Worker %d] Code generation failed for scene %s: %v", workerID, scene.ID, err)
		p.markFailed(scene, fmt.Sprintf("code generation failed: %v", err))
		return
	}

	scene.GeneratedCode = &code
	if err := p.store.UpdateScene(scene); err != nil {
		log.Printf("[Worker %d] Failed to persist generated code for scene %s: %v", workerID, scene.ID, err)
		return
	}

	renderer, ok := p.renderers[scene.Library]
	if !ok {
		p.markFailed(scene, fmt.Sprintf("rendering is not supported for library %s", scene.Library))
		return
	}

	if err := renderer.Validate(code); err != nil {
		p.markFailed(scene, fmt.Sprintf("generated code failed validation: %v", err))
		return
	}

	if !p.transition(scene, models.SceneStatusRendering) {
		return
	}

	sceneName := renderer.ExtractSceneName(code)
	videoPath, err := renderer.Render(ctx, code, sceneName)
	if err != nil {
		log.Printf("[Worker %d] Render failed for scene %s: %v", workerID, scene.ID, err)
		msg := err.Error()
		if errors.Is(err, services.ErrLaTeXRequired) {
			msg = services.LaTeXHint
		}
		p.markFailed(scene, msg)
		return
	}

	scene.MarkCompleted(videoPath)
	if err := p.store.UpdateScene(scene); err != nil {
		log.Printf("[Worker %d] Failed to persist completed scene %s: %v", workerID, scene.ID, err)
		return
	}

	log.Printf("[Worker %d] Scene %s completed: %s", workerID, scene.ID, videoPath)
}

// transition sets the status and persists. Returns false when persistence
// fails; the pipeline stops rather than continue with unrecorded state.
func (p *Pool) transition(scene *models.Scene, status models.SceneStatus) bool {
	scene.Status = status
	if err := p.store.UpdateScene(scene); err != nil {
		log.Printf("[Worker] Failed to persist scene %s status %s: %v", scene.ID, status, err)
		return false
	}
	return true
}

func (p *Pool) markFailed(scene *models.Scene, msg string) {
	scene.MarkFailed(msg)
	if err := p.store.UpdateScene(scene); err != nil {
		log.Printf("[Worker] Failed to persist failure for scene %s: %v", scene.ID, err)
	}
}

// failScene is the panic-recovery path: reload and fail the scene by id.
func (p *Pool) failScene(sceneID, msg string) {
	scene, err := p.store.GetScene(sceneID)
	if err != nil {
		return
	}
	p.markFailed(scene, msg)
}
