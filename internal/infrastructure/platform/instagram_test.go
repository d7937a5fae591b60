package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"NewsPublisher/internal/config"
)

func testClient(baseURL string) *InstagramClient {
	return NewInstagramClient(config.InstagramConfig{
		BaseURL:           baseURL,
		BusinessAccountID: "17890000000000000",
		AccessToken:       "test-token",
	})
}

func TestPublishTwoPhase(t *testing.T) {
	t.Parallel()

	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "test-token", r.FormValue("access_token"))
		calls = append(calls, r.URL.Path)

		switch r.URL.Path {
		case "/17890000000000000/media":
			require.Equal(t, "https://img.example.com/1.jpg", r.FormValue("image_url"))
			require.Equal(t, "a caption", r.FormValue("caption"))
			_, _ = w.Write([]byte(`{"id":"container-1"}`))
		case "/17890000000000000/media_publish":
			require.Equal(t, "container-1", r.FormValue("creation_id"))
			_, _ = w.Write([]byte(`{"id":"post-77"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	postID, err := testClient(srv.URL).Publish(context.Background(), "https://img.example.com/1.jpg", "a caption")
	require.NoError(t, err)
	require.Equal(t, "post-77", postID)
	require.Equal(t, []string{"/17890000000000000/media", "/17890000000000000/media_publish"}, calls)
}

func TestPublishPermanentOn4xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid image URL"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Publish(context.Background(), "https://img.example.com/bad.jpg", "caption")

	var pubErr *Error
	require.ErrorAs(t, err, &pubErr)
	require.True(t, pubErr.Permanent)
	require.False(t, pubErr.Retryable())
	require.Contains(t, pubErr.Message, "Invalid image URL")
}

func TestPublishTransientOn429And5xx(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusTooManyRequests, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := testClient(srv.URL).Publish(context.Background(), "https://img.example.com/1.jpg", "caption")
		srv.Close()

		var pubErr *Error
		require.ErrorAs(t, err, &pubErr)
		require.False(t, pubErr.Permanent, "status %d must stay retryable", status)
		require.True(t, pubErr.Retryable())
	}
}

func TestPublishNetworkErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := testClient(srv.URL).Publish(context.Background(), "https://img.example.com/1.jpg", "caption")

	var pubErr *Error
	require.ErrorAs(t, err, &pubErr)
	require.True(t, pubErr.Retryable())
}

func TestPublishMisconfigured(t *testing.T) {
	t.Parallel()

	c := NewInstagramClient(config.InstagramConfig{APIVersion: "v19.0"})
	_, err := c.Publish(context.Background(), "https://img.example.com/1.jpg", "caption")

	var pubErr *Error
	require.True(t, errors.As(err, &pubErr))
	require.True(t, pubErr.Permanent)
}

func TestGraphErrorMessageFallsBackToBody(t *testing.T) {
	t.Parallel()

	require.Equal(t, "plain failure", graphErrorMessage([]byte(" plain failure ")))
	require.Equal(t, "oops", graphErrorMessage([]byte(`{"error":{"message":"oops"}}`)))
}
