// Package llm generates social captions through an OpenAI-compatible
// chat-completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsPublisher/internal/config"
	"NewsPublisher/internal/ports"
)

// Captioner implements ports.CaptionClient against Groq/OpenAI-style
// endpoints.
type Captioner struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.CaptionClient = (*Captioner)(nil)

// NewCaptioner builds a client from configuration.
func NewCaptioner(cfg config.CaptionConfig) *Captioner {
	return &Captioner{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Caption asks the model for a single caption for the given story.
func (c *Captioner) Caption(ctx context.Context, headline, body string) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("caption client misconfigured")
	}

	user := fmt.Sprintf("Headline: %s\n\nStory: %s", headline, truncate(body, 1200))
	payload, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": user},
		},
		"temperature": 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("marshal caption payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("caption request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("caption error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode caption response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("caption response has no choices")
	}

	caption := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if caption == "" {
		return "", fmt.Errorf("caption response is empty")
	}
	return caption, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a news editor writing concise, factual social media captions."
	}
	return prompt
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
