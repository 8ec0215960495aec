// Package vision covers the image side of a diagnosis attempt: the Gemini
// subject gate, the CNN classifier client, and verdict normalization.
package vision

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"lechuga_bot_backend/platform/apperr"
	"lechuga_bot_backend/platform/config"
)

// GeminiClient wraps the genai SDK for single-prompt multimodal calls.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini client. Returns nil when no API key is
// configured so callers can fall back to local behavior.
func NewGeminiClient(ctx context.Context, cfg config.GateConfig) (*GeminiClient, error) {
	if cfg.GetGeminiAPIKey() == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: cfg.GetGateModel()}, nil
}

// GenerateText runs a text-only prompt and returns the trimmed response text.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if g == nil {
		return "", apperr.Capability("gemini client not configured")
	}

	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{genai.NewPartFromText(prompt)},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.KindCapability, "gemini request failed", err).WithOp("vision.GenerateText")
	}
	return strings.TrimSpace(resp.Text()), nil
}

// GenerateWithImage runs a prompt alongside inline image data.
func (g *GeminiClient) GenerateWithImage(ctx context.Context, prompt string, imageData []byte, mimeType string) (string, error) {
	if g == nil {
		return "", apperr.Capability("gemini client not configured")
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
			genai.NewPartFromText(prompt),
		},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.KindCapability, "gemini request failed", err).WithOp("vision.GenerateWithImage")
	}
	return strings.TrimSpace(resp.Text()), nil
}
