package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsPublisher/internal/domain"
)

func rawItem(title string) domain.RawItem {
	return domain.RawItem{
		Title:    title,
		Body:     "A calm and factual body text long enough to pass validation.",
		Source:   "Example Wire",
		URL:      "https://news.example.com/story",
		MediaURL: "https://img.example.com/story.jpg",
	}
}

func TestIngestAcceptsAndClassifies(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing := NewIngestor(store, nil)

	outcome, err := ing.Ingest(context.Background(), rawItem("Parliament passes new budget measures"))
	require.NoError(t, err)
	require.Equal(t, domain.IngestAccepted, outcome)

	require.Len(t, store.candidates, 1)
	for _, c := range store.candidates {
		require.Equal(t, domain.StatePending, c.State)
		require.Equal(t, "politics", c.Category)
		require.NotEmpty(t, c.Fingerprint)
		require.NotEmpty(t, c.EventSignature)
		require.False(t, c.IngestedAt.IsZero())
	}
}

func TestIngestDetectsDuplicates(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing := NewIngestor(store, nil)
	ctx := context.Background()

	first, err := ing.Ingest(ctx, rawItem("Parliament passes new budget measures"))
	require.NoError(t, err)
	require.Equal(t, domain.IngestAccepted, first)

	// Same headline modulo case and punctuation from the same source.
	second, err := ing.Ingest(ctx, rawItem("PARLIAMENT passes new budget measures!"))
	require.NoError(t, err)
	require.Equal(t, domain.IngestDuplicate, second)
	require.Len(t, store.candidates, 1)
}

func TestIngestRejectsMalformedItems(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing := NewIngestor(store, nil)
	ctx := context.Background()

	cases := []domain.RawItem{
		{Title: "too short", Body: "A calm and factual body text long enough to pass validation."},
		{Title: "A reasonable headline of a fine length", Body: "tiny"},
		func() domain.RawItem {
			item := rawItem("A reasonable headline of a fine length")
			item.URL = "::not a url::"
			return item
		}(),
	}
	for _, raw := range cases {
		outcome, err := ing.Ingest(ctx, raw)
		require.NoError(t, err)
		require.Equal(t, domain.IngestRejected, outcome)
	}
	require.Empty(t, store.candidates)
}

func TestIngestStripsHTML(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing := NewIngestor(store, nil)

	item := rawItem("Markets <b>rally</b> after surprise rate cut")
	item.Body = "<p>Traders reacted within minutes of the announcement on Friday.</p>"
	outcome, err := ing.Ingest(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, domain.IngestAccepted, outcome)

	for _, c := range store.candidates {
		require.Equal(t, "Markets rally after surprise rate cut", c.Headline)
		require.NotContains(t, c.Body, "<p>")
	}
}

func TestIngestBatchSummary(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing := NewIngestor(store, nil)

	items := []domain.RawItem{
		rawItem("Parliament passes new budget measures"),
		rawItem("Parliament passes new budget measures"),
		rawItem("Central bank holds interest rates steady"),
		{Title: "short", Body: "x"},
	}
	summary, err := ing.IngestBatch(context.Background(), items)
	require.NoError(t, err)
	require.Equal(t, IngestSummary{Accepted: 2, Duplicates: 1, Rejected: 1}, summary)
}

func TestIngestKeepsFeedTimestamp(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing := NewIngestor(store, nil)

	published := time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)
	item := rawItem("Parliament passes new budget measures")
	item.PublishedAt = published

	_, err := ing.Ingest(context.Background(), item)
	require.NoError(t, err)
	for _, c := range store.candidates {
		require.True(t, c.IngestedAt.Equal(published))
	}
}
