package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bobarin/animator/internal/storage"
)

// ErrLaTeXRequired is returned when rendering fails because the generated
// code pulled in LaTeX, which is not installed in the render environment.
var ErrLaTeXRequired = errors.New("latex dependencies are not available")

// LaTeXHint is the user-facing guidance recorded on scenes that failed with
// ErrLaTeXRequired.
const LaTeXHint = "Animation contains LaTeX dependencies that are not available. Please try a simpler animation using basic shapes and text."

var sceneClassRe = regexp.MustCompile(`class\s+(\w+)\s*\([^)]*Scene[^)]*\):`)

// Manim writes rendered output under media_dir using the quality profile
// in the directory name. -qm renders at 720p30.
const manimQualityDir = "720p30"

// ManimRenderer executes generated Manim code as a subprocess and imports
// the resulting clip into the artifact store.
type ManimRenderer struct {
	binary  string
	timeout time.Duration
	videos  *storage.VideoStore
}

// NewManimRenderer creates a renderer. binary defaults to "manim" on PATH;
// timeout bounds the subprocess wall clock.
func NewManimRenderer(binary string, timeout time.Duration, videos *storage.VideoStore) *ManimRenderer {
	if binary == "" {
		binary = "manim"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ManimRenderer{
		binary:  binary,
		timeout: timeout,
		videos:  videos,
	}
}

// Validate is a cheap structural pre-check run before spending a render
// subprocess on the code.
func (r *ManimRenderer) Validate(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("generated code is empty")
	}
	if !strings.Contains(code, "from manim import") && !strings.Contains(code, "import manim") {
		return fmt.Errorf("generated code does not import manim")
	}
	if !sceneClassRe.MatchString(code) {
		return fmt.Errorf("generated code has no Scene class")
	}
	if !strings.Contains(code, "def construct(self)") {
		return fmt.Errorf("generated code has no construct method")
	}
	return nil
}

// ExtractSceneName returns the first Scene subclass name found in the code,
// or AnimationScene when no class declaration matches.
func (r *ManimRenderer) ExtractSceneName(code string) string {
	if m := sceneClassRe.FindStringSubmatch(code); m != nil {
		return m[1]
	}
	return "AnimationScene"
}

// Render executes the code in a fresh temp workdir and returns the managed
// path of the produced video. The workdir is removed regardless of outcome.
func (r *ManimRenderer) Render(ctx context.Context, code, sceneName string) (string, error) {
	workDir, err := os.MkdirTemp("", "manim-render-*")
	if err != nil {
		return "", fmt.Errorf("create render workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	scriptPath := filepath.Join(workDir, "scene.py")
	if err := os.WriteFile(scriptPath, []byte(code), 0600); err != nil {
		return "", fmt.Errorf("write scene file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary,
		"-qm",
		"--format", "mp4",
		"--disable_caching",
		"--media_dir", workDir,
		scriptPath,
		sceneName,
	)
	cmd.Dir = workDir

	log.Printf("[Manim] Rendering scene %s (timeout=%v)", sceneName, r.timeout)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("render timed out after %v", r.timeout)
		}
		return "", classifyRenderError(err, string(output))
	}

	outputPath := filepath.Join(workDir, "videos", "scene", manimQualityDir, sceneName+".mp4")
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("render produced no output at %s: %w", outputPath, err)
	}

	managed, err := r.videos.Import(outputPath)
	if err != nil {
		return "", fmt.Errorf("store rendered video: %w", err)
	}

	log.Printf("[Manim] Scene %s rendered to %s", sceneName, managed)

	return managed, nil
}

// classifyRenderError turns known failure signatures into actionable errors.
// LaTeX errors are the common case: the model snuck in MathTex/Tex despite
// the prompt and the render host has no TeX distribution.
func classifyRenderError(err error, output string) error {
	lower := strings.ToLower(output)
	if strings.Contains(lower, "latex") ||
		strings.Contains(lower, "mathtex") ||
		strings.Contains(lower, "tex error") ||
		strings.Contains(lower, "dvisvgm") {
		return ErrLaTeXRequired
	}

	// Keep the tail of the subprocess output; manim prints the traceback last.
	const maxOutput = 1000
	if len(output) > maxOutput {
		output = "..." + output[len(output)-maxOutput:]
	}
	return fmt.Errorf("manim render failed: %w (output: %s)", err, strings.TrimSpace(output))
}
