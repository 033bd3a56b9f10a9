package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"github.com/bobarin/animator/internal/models"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider generates animation code via the Google Gen AI SDK.
type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider creates a provider backed by the Gemini API.
// model defaults to gemini-2.0-flash when empty.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{
		apiKey: apiKey,
		model:  model,
	}
}

func (s *GeminiProvider) GenerateCode(ctx context.Context, prompt string, library models.AnimationLibrary, duration int, style map[string]interface{}) (string, error) {
	systemPrompt, err := systemPromptFor(library)
	if err != nil {
		return "", err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", &GenerationError{Provider: "gemini", Err: fmt.Errorf("failed to create genai client: %w", err)}
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
	}

	resp, err := client.Models.GenerateContent(ctx, s.model,
		genai.Text(formatUserPrompt(prompt, duration, style)), config)
	if err != nil {
		return "", &GenerationError{Provider: "gemini", Err: err}
	}

	raw := resp.Text()
	if raw == "" {
		return "", &GenerationError{Provider: "gemini", Err: fmt.Errorf("empty response from gemini")}
	}

	code := CleanCode(raw, library)

	log.Printf("[Gemini] Generated %s code (%d chars, model=%s)", library, len(code), s.model)

	return code, nil
}

// EnhancePrompt rewrites the raw request into a more detailed prompt for
// code generation.
func (s *GeminiProvider) EnhancePrompt(ctx context.Context, prompt string, library models.AnimationLibrary) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", &GenerationError{Provider: "gemini", Err: fmt.Errorf("failed to create genai client: %w", err)}
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(enhancementSystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
	}

	resp, err := client.Models.GenerateContent(ctx, s.model,
		genai.Text(formatEnhancementPrompt(prompt, library)), config)
	if err != nil {
		return "", &GenerationError{Provider: "gemini", Err: err}
	}

	enhanced := strings.TrimSpace(resp.Text())
	if enhanced == "" {
		return "", &GenerationError{Provider: "gemini", Err: fmt.Errorf("empty response from gemini")}
	}

	log.Printf("[Gemini] Enhanced prompt (%d -> %d chars)", len(prompt), len(enhanced))

	return enhanced, nil
}
