package validate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiChecker: оценщик на Google GenAI SDK.
type GeminiChecker struct {
	client *genai.Client
	model  string
}

// NewGeminiChecker создаёт клиента Gemini API.
func NewGeminiChecker(ctx context.Context, apiKey, model string) (*GeminiChecker, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiChecker{client: client, model: model}, nil
}

func (c *GeminiChecker) Check(ctx context.Context, field, value, criterion string) (bool, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(qualityPrompt(criterion), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0),
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(value), cfg)
	if err != nil {
		return false, &CheckerError{Provider: "gemini", Model: c.model, Err: err}
	}
	ok, err := parseEvaluation(resp.Text())
	if err != nil {
		return false, &CheckerError{Provider: "gemini", Model: c.model, Err: err}
	}
	return ok, nil
}
