// Package platform publishes items through the Instagram Graph API. The
// two-phase flow (create a media container, then publish it) is the
// irreversible boundary of a coordinator cycle.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsPublisher/internal/config"
	"NewsPublisher/internal/ports"
)

// Error is a typed publish failure. Permanent errors (policy rejections,
// invalid media) must not be retried; everything else is transient.
type Error struct {
	Permanent bool
	Code      int
	Message   string
}

// Error renders the failure for logs and attempt records.
func (e *Error) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("instagram %s error %d: %s", kind, e.Code, e.Message)
}

// Retryable implements the breaker retry contract.
func (e *Error) Retryable() bool { return !e.Permanent }

// InstagramClient implements ports.PlatformClient against the Graph API.
type InstagramClient struct {
	baseURL    string
	accountID  string
	token      string
	httpClient *http.Client
}

var _ ports.PlatformClient = (*InstagramClient)(nil)

// NewInstagramClient builds a client from configuration.
func NewInstagramClient(cfg config.InstagramConfig) *InstagramClient {
	base := cfg.BaseURL
	if base == "" {
		base = "https://graph.facebook.com/" + cfg.APIVersion
	}
	return &InstagramClient{
		baseURL:    strings.TrimRight(base, "/"),
		accountID:  cfg.BusinessAccountID,
		token:      cfg.AccessToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Publish creates a media container and publishes it, returning the
// platform post id.
func (c *InstagramClient) Publish(ctx context.Context, mediaURL, caption string) (string, error) {
	if c.token == "" || c.accountID == "" {
		return "", &Error{Permanent: true, Message: "instagram client misconfigured"}
	}

	containerID, err := c.createContainer(ctx, mediaURL, caption)
	if err != nil {
		return "", err
	}
	return c.publishContainer(ctx, containerID)
}

func (c *InstagramClient) createContainer(ctx context.Context, mediaURL, caption string) (string, error) {
	form := url.Values{}
	form.Set("image_url", mediaURL)
	form.Set("caption", caption)
	form.Set("access_token", c.token)

	endpoint := fmt.Sprintf("%s/%s/media", c.baseURL, c.accountID)
	return c.postForID(ctx, endpoint, form)
}

func (c *InstagramClient) publishContainer(ctx context.Context, containerID string) (string, error) {
	form := url.Values{}
	form.Set("creation_id", containerID)
	form.Set("access_token", c.token)

	endpoint := fmt.Sprintf("%s/%s/media_publish", c.baseURL, c.accountID)
	return c.postForID(ctx, endpoint, form)
}

func (c *InstagramClient) postForID(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Code: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return "", classify(resp.StatusCode, body)
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &Error{Code: resp.StatusCode, Message: "unparseable response"}
	}
	if decoded.ID == "" {
		return "", &Error{Code: resp.StatusCode, Message: "response missing id"}
	}
	return decoded.ID, nil
}

// classify maps Graph API failures onto the transient/permanent split.
// 4xx responses other than rate limiting are content or credential
// problems a retry cannot fix.
func classify(status int, body []byte) *Error {
	message := graphErrorMessage(body)
	switch {
	case status == http.StatusTooManyRequests:
		return &Error{Code: status, Message: message}
	case status >= 400 && status < 500:
		return &Error{Permanent: true, Code: status, Message: message}
	default:
		return &Error{Code: status, Message: message}
	}
}

func graphErrorMessage(body []byte) string {
	var decoded struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error.Message != "" {
		return decoded.Error.Message
	}
	return strings.TrimSpace(string(body))
}
