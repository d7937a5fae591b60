package domain

import "time"

// RawItem is one entry handed over by the external feed fetcher.
type RawItem struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	MediaURL    string    `json:"media_url"`
	PublishedAt time.Time `json:"published_at"`
}

// CandidateState enumerates the lifecycle of an ingested item.
type CandidateState string

const (
	StatePending   CandidateState = "pending"
	StateClaimed   CandidateState = "claimed"
	StatePublished CandidateState = "published"
	StateRejected  CandidateState = "rejected"
	StateFailed    CandidateState = "failed"
)

// Candidate is a content item awaiting the publish decision.
type Candidate struct {
	ID          string
	Fingerprint string
	Category    string
	Region      string
	Headline    string
	Body        string
	Source      string
	URL         string
	MediaURL    string

	// EventSignature groups differently worded coverage of one event.
	EventSignature string

	State CandidateState

	// Score is nil until the candidate has been gated.
	Score *int

	IngestedAt     time.Time
	ClaimedAt      *time.Time
	ClaimExpiry    *time.Time
	PublishedAt    *time.Time
	PlatformPostID string
}

// Gated reports whether the quality gate has already scored the candidate.
func (c Candidate) Gated() bool {
	return c.Score != nil
}

// AttemptOutcome classifies a publish attempt for the audit trail.
type AttemptOutcome string

const (
	OutcomeSuccess       AttemptOutcome = "success"
	OutcomePlatformError AttemptOutcome = "platform_error"
	OutcomeRateLimited   AttemptOutcome = "rate_limited"
	OutcomeRejected      AttemptOutcome = "rejected"
)

// PublishAttempt is an append-only audit record; never mutated after insert.
type PublishAttempt struct {
	CandidateID string
	Outcome     AttemptOutcome
	ErrorDetail string
	Violations  []string
	OccurredAt  time.Time
}

// PublishedSummary is the slice of a published candidate the diversity
// window needs; the store returns these in reverse publication order.
type PublishedSummary struct {
	Category       string
	Region         string
	EventSignature string
	PublishedAt    time.Time
}

// IngestOutcome is the per-item verdict at the feed boundary.
type IngestOutcome string

const (
	IngestAccepted  IngestOutcome = "accepted"
	IngestDuplicate IngestOutcome = "duplicate"
	IngestRejected  IngestOutcome = "rejected"
)
