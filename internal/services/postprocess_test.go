package services

import (
	"strings"
	"testing"

	"github.com/bobarin/animator/internal/models"
)

func TestCleanCodeStripsMarkdownFences(t *testing.T) {
	raw := "```python\nfrom manim import *\n\nclass Demo(Scene):\n    def construct(self):\n        pass\n```"
	code := CleanCode(raw, models.LibraryManim)

	if strings.Contains(code, "```") {
		t.Errorf("fences not stripped: %q", code)
	}
	if !strings.HasPrefix(code, "from manim import *") {
		t.Errorf("unexpected prefix: %q", code)
	}
}

func TestCleanCodeStripsBareFences(t *testing.T) {
	raw := "```\nlet x = 1;\n```"
	code := CleanCode(raw, models.LibraryP5JS)
	if code != "let x = 1;" {
		t.Errorf("got %q", code)
	}
}

func TestCleanCodeFixesZeroAndNegativeWaits(t *testing.T) {
	raw := "self.wait(0)\nself.wait(-1)\nself.wait(0.0)\nself.wait(2)\nself.wait(0.25)"
	code := CleanCode(raw, models.LibraryManim)

	if strings.Contains(code, "self.wait(0)") || strings.Contains(code, "self.wait(-1)") || strings.Contains(code, "self.wait(0.0)") {
		t.Errorf("non-positive waits remain: %q", code)
	}
	if !strings.Contains(code, "self.wait(2)") {
		t.Errorf("positive wait was rewritten: %q", code)
	}
	if !strings.Contains(code, "self.wait(0.25)") {
		t.Errorf("short positive wait was rewritten: %q", code)
	}
	if strings.Count(code, "self.wait(0.5)") != 3 {
		t.Errorf("expected 3 rewritten waits, got %d in %q", strings.Count(code, "self.wait(0.5)"), code)
	}
}

func TestCleanCodeLeavesWaitsAloneForOtherLibraries(t *testing.T) {
	raw := "self.wait(0)"
	code := CleanCode(raw, models.LibraryThreeJS)
	if code != "self.wait(0)" {
		t.Errorf("threejs code rewritten: %q", code)
	}
}

const overlappingText = `from manim import *

class Demo(Scene):
    def construct(self):
        title = Text("First")
        self.play(Write(title))
        self.wait(1)
        subtitle = Text("Second")
        self.play(Write(subtitle))
        self.wait(1)
`

func TestCleanCodeInsertsFadeOutBetweenTexts(t *testing.T) {
	code := CleanCode(overlappingText, models.LibraryManim)

	fadeIdx := strings.Index(code, "self.play(FadeOut(title))")
	secondIdx := strings.Index(code, `subtitle = Text("Second")`)
	if fadeIdx < 0 {
		t.Fatalf("no FadeOut inserted:\n%s", code)
	}
	if fadeIdx > secondIdx {
		t.Errorf("FadeOut inserted after second assignment:\n%s", code)
	}
}

func TestCleanCodeRespectsExistingFadeOut(t *testing.T) {
	raw := strings.Replace(overlappingText,
		"        self.wait(1)\n        subtitle",
		"        self.wait(1)\n        self.play(FadeOut(title))\n        subtitle", 1)

	code := CleanCode(raw, models.LibraryManim)
	if strings.Count(code, "FadeOut(title)") != 1 {
		t.Errorf("duplicate FadeOut inserted:\n%s", code)
	}
}

func TestCleanCodeIdempotent(t *testing.T) {
	once := CleanCode(overlappingText, models.LibraryManim)
	twice := CleanCode(once, models.LibraryManim)
	if once != twice {
		t.Errorf("CleanCode not idempotent:\nfirst:\n%s\nsecond:\n%s", once, twice)
	}
}

func TestCleanCodeIgnoresNestedTextAssignments(t *testing.T) {
	raw := `from manim import *

class Demo(Scene):
    def construct(self):
        title = Text("First")
        for i in range(3):
            label = Text("loop")
        self.wait(1)
`
	code := CleanCode(raw, models.LibraryManim)
	if strings.Contains(code, "FadeOut") {
		t.Errorf("FadeOut inserted for nested assignment:\n%s", code)
	}
}

func TestCleanCodeSingleTextNoFadeOut(t *testing.T) {
	raw := "title = Text(\"only\")\nself.play(Write(title))"
	code := CleanCode(raw, models.LibraryManim)
	if strings.Contains(code, "FadeOut") {
		t.Errorf("FadeOut inserted with a single text:\n%s", code)
	}
}
