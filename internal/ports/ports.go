package ports

import (
	"context"
	"time"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ratelimit"
)

// CandidateStore is the transactional persistence boundary. All
// cross-invoker coordination happens through its atomic operations.
type CandidateStore interface {
	// Insert persists a new pending candidate; returns domain.ErrDuplicate
	// on a fingerprint collision.
	Insert(ctx context.Context, c domain.Candidate) error

	// SelectBest returns the highest-scored pending candidate, oldest
	// first on ties, skipping the given ids. domain.ErrNoCandidate when
	// none remain.
	SelectBest(ctx context.Context, exclude []string) (domain.Candidate, error)

	// Claim atomically transitions pending->claimed, reserving
	// rate-limiter capacity in the same transaction. Returns
	// domain.ErrRateLimited or domain.ErrClaimConflict.
	Claim(ctx context.Context, id string, lease time.Duration, caps ratelimit.Caps) error

	// Release moves a claimed candidate to pending, rejected, or failed.
	Release(ctx context.Context, id string, to domain.CandidateState) error

	// MarkPublished commits the terminal published state. Idempotent by
	// candidate id; published_at is set once and never cleared.
	MarkPublished(ctx context.Context, id, platformPostID string) error

	// SetGating persists the composite score and classification tags.
	SetGating(ctx context.Context, id string, score int, category, region string) error

	// ReclaimExpired returns lease-expired claims to pending.
	ReclaimExpired(ctx context.Context) (int64, error)

	// RequeueFailed is the explicit recovery policy: failed candidates
	// older than the cutoff go back to pending.
	RequeueFailed(ctx context.Context, olderThan time.Duration) (int64, error)

	// AppendAttempt appends one audit record.
	AppendAttempt(ctx context.Context, a domain.PublishAttempt) error

	// RecentPublished returns the diversity window snapshot.
	RecentPublished(ctx context.Context, window time.Duration) ([]domain.PublishedSummary, error)
}

// CaptionClient generates the social caption for a candidate.
type CaptionClient interface {
	Caption(ctx context.Context, headline, body string) (string, error)
}

// PlatformClient publishes one item to the social platform.
type PlatformClient interface {
	Publish(ctx context.Context, mediaURL, caption string) (postID string, err error)
}

// RiskScorer optionally contributes a remote moderation verdict; adapters
// fail open so an outage never blocks the safety battery.
type RiskScorer interface {
	RiskScore(ctx context.Context, text string) (int, error)
}

// AlertNotifier surfaces permanent publish failures and breaker-open
// events to operators; everything else stays local.
type AlertNotifier interface {
	Alert(ctx context.Context, subject, detail string) error
}

// Scheduler drives recurring coordinator cycles in loop mode.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
