package extract

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Completer sends one extraction request to a language model and returns the raw completion
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// GeminiCompleter is a Completer backed by the Gemini API
type GeminiCompleter struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiCompleter creates a Gemini client for the given model
func NewGeminiCompleter(ctx context.Context, apiKey, model string, temperature float32) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiCompleter{
		client:      client,
		model:       model,
		temperature: temperature,
	}, nil
}

// Complete asks the model for a JSON answer to user, under the system instruction
func (g *GeminiCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	result, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(user),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr(g.temperature),
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	return result.Text(), nil
}
