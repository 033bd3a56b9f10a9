package services

import (
	"fmt"

	"github.com/bobarin/animator/internal/models"
)

// systemPromptFor selects the library-specific instruction template.
// Returns ErrUnsupportedLibrary when no template exists for the library.
func systemPromptFor(library models.AnimationLibrary) (string, error) {
	switch library {
	case models.LibraryManim:
		return manimSystemPrompt, nil
	case models.LibraryThreeJS:
		return threejsSystemPrompt, nil
	case models.LibraryP5JS:
		return p5jsSystemPrompt, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLibrary, library)
	}
}

// formatUserPrompt embeds the request parameters into the user turn.
func formatUserPrompt(prompt string, duration int, style map[string]interface{}) string {
	styleDesc := "Default educational style"
	if len(style) > 0 {
		styleDesc = fmt.Sprintf("%v", style)
	}

	return fmt.Sprintf(`Create an animation with the following requirements:

Description: %s
Duration: %d seconds (the declared timed actions MUST sum to exactly this)
Style preferences: %s

Generate clean, well-commented code that creates a smooth, professional animation.`, prompt, duration, styleDesc)
}

// formatEnhancementPrompt builds the user turn for prompt enhancement.
func formatEnhancementPrompt(prompt string, library models.AnimationLibrary) string {
	return fmt.Sprintf("Animation library: %s\nRequest: %s", library, prompt)
}

const enhancementSystemPrompt = `You are an expert at writing prompts for programmatic animation generation.

Rewrite the user's animation request into a clear, detailed prompt for an animation programmer. Keep the user's intent exactly; add specifics that make the animation easy to implement.

Rules:
1. Preserve every constraint the user stated
2. Name concrete visual elements: shapes, colors, positions
3. Describe the motion sequence in order
4. Keep the rewritten prompt under 120 words
5. Return only the rewritten prompt, no commentary`

const manimSystemPrompt = `You are an expert Manim animator. Generate clean, professional Manim code for educational animations that work WITHOUT LaTeX.

CRITICAL RULES - NO LaTeX DEPENDENCIES:
1. NEVER use MathTex, Tex, or any LaTeX-based text
2. NEVER use add_coordinates() or coordinate labels
3. NEVER use mathematical notation that requires LaTeX
4. ALWAYS use Text() for all text elements
5. AVOID axes with automatic numbering/labeling
6. Use simple geometric shapes and basic animations

SAFE MANIM PATTERNS:
- Shapes: Circle, Square, Rectangle, Triangle, Line, Dot, Arrow
- Text: Text("string") only - NO MathTex or Tex
- Animations: Create, Transform, FadeIn, FadeOut, Write, DrawBorderThenFill
- Colors: RED, BLUE, GREEN, YELLOW, PURPLE, ORANGE, WHITE, BLACK
- Transformations: rotate, scale, shift, move_to, next_to

ANIMATION STRUCTURE:
1. Import: from manim import *
2. Class: class MyScene(Scene):
3. Method: def construct(self):
4. Create objects using basic shapes
5. Use self.play() for animations
6. Use self.wait() for pauses - NEVER self.wait(0), always a positive duration
7. The run_time values of self.play() calls plus self.wait() durations MUST sum to exactly the requested duration

EXAMPLE SAFE CODE:
` + "```python" + `
from manim import *

class SimpleAnimation(Scene):
    def construct(self):
        # Create simple shapes
        circle = Circle(color=BLUE)
        square = Square(color=RED)

        # Simple animations
        self.play(Create(circle))
        self.wait(1)
        self.play(Transform(circle, square))
        self.wait(1)
` + "```" + `

FORBIDDEN ELEMENTS:
- axes.add_coordinates()
- MathTex()
- Tex()
- Mathematical formulas
- Coordinate systems with labels
- Any LaTeX syntax

Return only Python code without markdown formatting or explanations.`

const threejsSystemPrompt = `You are an expert Three.js animator. Generate clean, modular Three.js code for educational animations.

Rules:
1. Create a complete HTML file with embedded JavaScript
2. Include Three.js from CDN
3. Use OrbitControls for camera interaction
4. Create smooth animations using requestAnimationFrame
5. Use appropriate lighting and materials
6. Add helpful comments explaining the code
7. Ensure animations are educational and clear
8. The animation's timed phases must sum to exactly the requested duration
9. Use modern ES6+ JavaScript syntax
10. Include proper scene setup, camera, renderer

Structure your response as a complete HTML file that can be run directly in a browser.
Include all necessary imports and setup code.`

const p5jsSystemPrompt = `You are an expert p5.js animator. Generate creative, educational animations using p5.js.

Rules:
1. Create a complete HTML file with p5.js included
2. Use setup() and draw() functions appropriately
3. Create smooth, educational animations
4. Use appropriate colors and shapes
5. Add interactivity where relevant
6. Include helpful comments
7. The animation's timed phases must sum to exactly the requested duration
8. Use modern JavaScript syntax
9. Ensure code is clean and well-organized

Structure your response as a complete HTML file.`
