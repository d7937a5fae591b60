package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"NewsPublisher/internal/classify"
	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

const (
	minHeadlineLen = 10
	maxHeadlineLen = 200
	minBodyLen     = 30
)

// Ingestor is the feed ingestion boundary: it normalizes, fingerprints,
// classifies, and persists raw items. Ingestion is idempotent under feed
// overlap; a fingerprint collision is a duplicate, not an error.
type Ingestor struct {
	store  ports.CandidateStore
	logger *slog.Logger
}

// NewIngestor wires the store.
func NewIngestor(store ports.CandidateStore, logger *slog.Logger) *Ingestor {
	return &Ingestor{store: store, logger: logger}
}

// IngestSummary totals the per-item outcomes of one batch.
type IngestSummary struct {
	Accepted   int
	Duplicates int
	Rejected   int
}

// Ingest processes one raw item and reports its outcome. Only store
// failures surface as errors.
func (i *Ingestor) Ingest(ctx context.Context, raw domain.RawItem) (domain.IngestOutcome, error) {
	headline := classify.StripHTML(raw.Title)
	body := classify.StripHTML(raw.Body)

	if reason := validateItem(headline, body, raw.URL); reason != "" {
		i.debug("item rejected", "reason", reason, "source", raw.Source)
		return domain.IngestRejected, nil
	}

	ingestedAt := raw.PublishedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now().UTC()
	}

	candidate := domain.Candidate{
		ID:             uuid.NewString(),
		Fingerprint:    classify.Fingerprint(headline, raw.Source),
		Category:       classify.Category(headline, body),
		Region:         classify.Region(headline, body, raw.Source),
		EventSignature: classify.EventSignature(headline),
		Headline:       headline,
		Body:           body,
		Source:         raw.Source,
		URL:            raw.URL,
		MediaURL:       raw.MediaURL,
		State:          domain.StatePending,
		IngestedAt:     ingestedAt,
	}

	err := i.store.Insert(ctx, candidate)
	if errors.Is(err, domain.ErrDuplicate) {
		i.debug("duplicate item", "fingerprint", candidate.Fingerprint, "source", raw.Source)
		return domain.IngestDuplicate, nil
	}
	if err != nil {
		return "", fmt.Errorf("ingest item %q: %w", headline, err)
	}

	i.debug("item accepted", "id", candidate.ID, "category", candidate.Category, "region", candidate.Region)
	return domain.IngestAccepted, nil
}

// IngestBatch processes a sequence of raw items; the first store failure
// aborts the batch.
func (i *Ingestor) IngestBatch(ctx context.Context, items []domain.RawItem) (IngestSummary, error) {
	var summary IngestSummary
	for _, raw := range items {
		outcome, err := i.Ingest(ctx, raw)
		if err != nil {
			return summary, err
		}
		switch outcome {
		case domain.IngestAccepted:
			summary.Accepted++
		case domain.IngestDuplicate:
			summary.Duplicates++
		case domain.IngestRejected:
			summary.Rejected++
		}
	}
	return summary, nil
}

func validateItem(headline, body, rawURL string) string {
	switch {
	case len(headline) < minHeadlineLen:
		return "headline too short"
	case len(headline) > maxHeadlineLen:
		return "headline too long"
	case len(body) < minBodyLen:
		return "body too short"
	}
	if rawURL != "" {
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return "unparseable url"
		}
	}
	return ""
}

func (i *Ingestor) debug(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Debug(msg, args...)
	}
}
