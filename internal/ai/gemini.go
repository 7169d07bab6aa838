// Package ai talks to the Google Gemini API on behalf of a user, using the
// API key stored in that user's profile.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-flash-latest"

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 60 * time.Second

// Generator produces a model reply for a prompt using the caller's API key.
type Generator interface {
	Generate(ctx context.Context, apiKey, prompt string) (string, error)
}

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// GeminiClient implements Generator on top of the genai SDK.
type GeminiClient struct {
	model   string
	timeout time.Duration
}

// NewGeminiClient creates a GeminiClient. Zero values select the defaults.
func NewGeminiClient(model string, timeout time.Duration) *GeminiClient {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GeminiClient{model: model, timeout: timeout}
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

func (c *GeminiClient) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

// Generate sends prompt to the configured model and returns the reply text.
func (c *GeminiClient) Generate(ctx context.Context, apiKey, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := c.client(ctx, apiKey)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	log.Debug().Str("model", c.model).Dur("elapsed", time.Since(start)).Msg("Gemini call completed")

	text := responseText(resp)
	if text == "" {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}
	return text, nil
}

// ListModels returns the names of the models visible to apiKey.
func (c *GeminiClient) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := c.client(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	var names []string
	for model, err := range client.Models.All(ctx) {
		if err != nil {
			return names, fmt.Errorf("list models: %w", err)
		}
		names = append(names, model.Name)
	}
	return names, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
