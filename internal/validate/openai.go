package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIConfig настраивает OpenAI-совместимый оценщик.
type OpenAIConfig struct {
	BaseURL string // например "https://api.openai.com/v1"
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAIChecker: оценщик поверх /chat/completions.
// Подходит любой совместимый провайдер (OpenAI, DeepSeek, Groq, OpenRouter).
type OpenAIChecker struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// CheckerError: сбой внешнего оценщика.
type CheckerError struct {
	Provider string
	Model    string
	Err      error
}

func (e *CheckerError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *CheckerError) Unwrap() error { return e.Err }

func NewOpenAIChecker(cfg OpenAIConfig) *OpenAIChecker {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIChecker{
		baseURL: base,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *OpenAIChecker) Check(ctx context.Context, field, value, criterion string) (bool, error) {
	if c.apiKey == "" {
		return false, ErrNoAPIKey
	}
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: qualityPrompt(criterion)},
			{Role: "user", Content: value},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return false, c.fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return false, c.fail(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, c.fail(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, c.fail(err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, c.fail(fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(raw), 200)))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, c.fail(fmt.Errorf("decoding response: %w", err))
	}
	if len(out.Choices) == 0 {
		return false, c.fail(fmt.Errorf("no choices in response"))
	}
	ok, err := parseEvaluation(out.Choices[0].Message.Content)
	if err != nil {
		return false, c.fail(err)
	}
	return ok, nil
}

func (c *OpenAIChecker) fail(err error) error {
	return &CheckerError{Provider: "openai", Model: c.model, Err: err}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
