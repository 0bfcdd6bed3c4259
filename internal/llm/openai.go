package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const openAIBaseURL = "https://api.openai.com/v1"

// openAIClient implements the Client interface for the OpenAI chat API.
type openAIClient struct {
	httpClient *http.Client
	cfg        Config
}

func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	cfg = cfg.withDefaults("gpt-4o-mini")
	if cfg.BaseURL == "" {
		cfg.BaseURL = openAIBaseURL
	}
	return &openAIClient{cfg: cfg, httpClient: newHTTPClient()}, nil
}

// Complete sends one system and one user message.
func (c *openAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	body := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
	}

	var response openAIResponse
	err := postJSON(ctx, c.httpClient, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}, body, &response)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
}
