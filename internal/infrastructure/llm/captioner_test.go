package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"NewsPublisher/internal/config"
)

func testCaptioner(endpoint string) *Captioner {
	return NewCaptioner(config.CaptionConfig{
		Endpoint: endpoint,
		Model:    "llama-3.3-70b-versatile",
		APIKey:   "test-key",
	})
}

func TestCaptionDecodesChoice(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "llama-3.3-70b-versatile", payload.Model)
		require.Len(t, payload.Messages, 2)
		require.Contains(t, payload.Messages[1].Content, "Headline: Markets rally")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Markets surge on rate cut hopes.  "}}]}`))
	}))
	defer srv.Close()

	caption, err := testCaptioner(srv.URL).Caption(context.Background(), "Markets rally", "Traders reacted quickly.")
	require.NoError(t, err)
	require.Equal(t, "Markets surge on rate cut hopes.", caption)
}

func TestCaptionErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limit reached"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testCaptioner(srv.URL).Caption(context.Background(), "Markets rally", "body")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestCaptionEmptyChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := testCaptioner(srv.URL).Caption(context.Background(), "Markets rally", "body")
	require.Error(t, err)
}

func TestCaptionMisconfigured(t *testing.T) {
	t.Parallel()

	c := NewCaptioner(config.CaptionConfig{})
	_, err := c.Caption(context.Background(), "Markets rally", "body")
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", truncate("abc", 5))
	require.Equal(t, "ab", truncate("abcdef", 2))
}
