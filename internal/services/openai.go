package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bobarin/animator/internal/models"
)

// OpenAIProvider generates animation code via the OpenAI chat completion
// API. Azure OpenAI works through the same client by pointing BaseURL at
// the Azure deployment endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider backed by the OpenAI API.
// baseURL is optional; when set it overrides the default endpoint.
func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	if model == "" {
		model = "gpt-4"
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (s *OpenAIProvider) GenerateCode(ctx context.Context, prompt string, library models.AnimationLibrary, duration int, style map[string]interface{}) (string, error) {
	systemPrompt, err := systemPromptFor(library)
	if err != nil {
		return "", err
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: formatUserPrompt(prompt, duration, style),
			},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", &GenerationError{Provider: "openai", Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &GenerationError{Provider: "openai", Err: fmt.Errorf("no response from openai")}
	}

	raw := resp.Choices[0].Message.Content
	code := CleanCode(raw, library)

	log.Printf("[OpenAI] Generated %s code (%d chars, model=%s)", library, len(code), s.model)

	return code, nil
}

// EnhancePrompt rewrites the raw request into a more detailed prompt for
// code generation.
func (s *OpenAIProvider) EnhancePrompt(ctx context.Context, prompt string, library models.AnimationLibrary) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: enhancementSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: formatEnhancementPrompt(prompt, library),
			},
		},
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		return "", &GenerationError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Provider: "openai", Err: fmt.Errorf("no response from openai")}
	}

	enhanced := strings.TrimSpace(resp.Choices[0].Message.Content)
	log.Printf("[OpenAI] Enhanced prompt (%d -> %d chars)", len(prompt), len(enhanced))

	return enhanced, nil
}
