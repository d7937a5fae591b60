// Package moderation scores headline sensitivity through a remote model.
// The safety battery treats this adapter as optional and fails open when
// it is unavailable.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"NewsPublisher/internal/ports"
	"NewsPublisher/internal/ratelimit"
)

const sensitivityPrompt = `Rate this news headline for sensitive or graphic content on a scale 0-100.
0-30 is safe for social media, 61-100 is violence or graphic content.
Headline: %s
Respond with ONLY a number 0-100.`

// Client implements ports.RiskScorer over an OpenAI-compatible endpoint.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	quota    *ratelimit.Quota
	http     *http.Client
}

var _ ports.RiskScorer = (*Client)(nil)

// NewClient creates a reusable HTTP client with a short timeout; a slow
// moderation call should never stall a cycle. quota may be nil.
func NewClient(endpoint, model, apiKey string, quota *ratelimit.Quota) *Client {
	return &Client{
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		quota:    quota,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

// RiskScore asks the model for a 0-100 sensitivity rating. Scores at or
// below 30 are treated as no contribution.
func (c *Client) RiskScore(ctx context.Context, text string) (int, error) {
	if !c.quota.Allow() {
		return 0, fmt.Errorf("moderation call quota exhausted")
	}
	payload, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": fmt.Sprintf(sensitivityPrompt, truncate(text, 200))},
		},
		"temperature": 0.2,
		"max_tokens":  10,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal moderation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("moderation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("moderation status %s", resp.Status)
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decode moderation response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return 0, fmt.Errorf("moderation response has no choices")
	}

	score, err := parseScore(decoded.Choices[0].Message.Content)
	if err != nil {
		return 0, err
	}
	if score <= 30 {
		return 0, nil
	}
	return score, nil
}

func parseScore(content string) (int, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, content)
	if digits == "" {
		return 0, fmt.Errorf("moderation response %q has no score", strings.TrimSpace(content))
	}
	score, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("parse moderation score: %w", err)
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
