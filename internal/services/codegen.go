package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobarin/animator/internal/models"
)

// ErrUnsupportedLibrary is returned when no prompt template exists for the
// requested animation library.
var ErrUnsupportedLibrary = errors.New("unsupported animation library")

// GenerationError wraps a provider/transport failure from the completion
// call. The pipeline treats it as terminal for the run; no retries.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s code generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// CodeGenerator produces renderer source code from an animation request.
// Implementations are swappable providers behind this one interface; each
// applies the same deterministic post-processing to its raw output.
type CodeGenerator interface {
	GenerateCode(ctx context.Context, prompt string, library models.AnimationLibrary, duration int, style map[string]interface{}) (string, error)
}

// PromptEnhancer rewrites a raw animation request into a richer prompt
// before code generation. Enhancement is best-effort: callers keep the raw
// prompt when it fails.
type PromptEnhancer interface {
	EnhancePrompt(ctx context.Context, prompt string, library models.AnimationLibrary) (string, error)
}
