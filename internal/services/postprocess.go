package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bobarin/animator/internal/models"
)

// ---------------------------------------------------------------------------
// Code post-processing
// Deterministic cleanup applied to every provider's raw output before it is
// stored. All transforms are idempotent: running CleanCode on its own output
// yields the same string.
// ---------------------------------------------------------------------------

var (
	waitCallRe   = regexp.MustCompile(`self\.wait\(\s*(-?\d+(?:\.\d+)?)\s*\)`)
	textAssignRe = regexp.MustCompile(`^(\s*)(\w+)\s*=\s*Text\(`)
)

// CleanCode normalizes raw model output into storable animation source.
// Markdown fences are stripped for every library; the wait and text-overlap
// fixes only apply to Manim code.
func CleanCode(raw string, library models.AnimationLibrary) string {
	code := stripMarkdownFences(raw)

	if library == models.LibraryManim {
		code = fixZeroWaits(code)
		code = fixTextOverlap(code)
	}

	return code
}

// stripMarkdownFences removes a leading ```python/```html style fence and a
// trailing ``` if the model wrapped its answer despite instructions.
func stripMarkdownFences(raw string) string {
	code := strings.TrimSpace(raw)

	if strings.HasPrefix(code, "```") {
		if idx := strings.IndexByte(code, '\n'); idx >= 0 {
			code = code[idx+1:]
		} else {
			code = strings.TrimPrefix(code, "```")
		}
	}
	if strings.HasSuffix(code, "```") {
		code = strings.TrimSuffix(code, "```")
	}

	return strings.TrimSpace(code)
}

// fixZeroWaits rewrites self.wait calls with a zero or negative duration to
// a 0.5 second pause. Manim raises on non-positive wait times at render.
func fixZeroWaits(code string) string {
	return waitCallRe.ReplaceAllStringFunc(code, func(match string) string {
		sub := waitCallRe.FindStringSubmatch(match)
		v, err := strconv.ParseFloat(sub[1], 64)
		if err != nil || v > 0 {
			return match
		}
		return "self.wait(0.5)"
	})
}

// fixTextOverlap inserts a FadeOut of the previously assigned Text mobject
// before each subsequent top-level Text assignment, so successive captions
// do not stack on top of each other. "Top-level" means the indentation of
// the first Text assignment in the file; nested assignments (inside loops
// or conditionals) are left alone.
func fixTextOverlap(code string) string {
	lines := strings.Split(code, "\n")

	baseIndent := ""
	foundFirst := false
	prevVar := ""
	prevLine := -1

	var out []string
	for i, line := range lines {
		m := textAssignRe.FindStringSubmatch(line)
		if m != nil {
			indent, name := m[1], m[2]
			if !foundFirst {
				foundFirst = true
				baseIndent = indent
				prevVar = name
				prevLine = i
			} else if indent == baseIndent {
				if prevVar != "" && !fadeOutPresent(lines[prevLine:i], prevVar) {
					out = append(out, fmt.Sprintf("%sself.play(FadeOut(%s))", indent, prevVar))
				}
				prevVar = name
				prevLine = i
			}
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

// fadeOutPresent reports whether a FadeOut of the named mobject already
// appears in the given lines. Keeps the transform idempotent and respects
// fade-outs the model wrote itself.
func fadeOutPresent(lines []string, name string) bool {
	needle := "FadeOut(" + name
	for _, line := range lines {
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}
