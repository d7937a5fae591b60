package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsPublisher/internal/breaker"
	"NewsPublisher/internal/classify"
	"NewsPublisher/internal/diversity"
	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/gate"
	"NewsPublisher/internal/ports"
	"NewsPublisher/internal/ratelimit"
	"NewsPublisher/internal/safety"
)

// CycleStatus is the terminal outcome of one coordinator invocation.
type CycleStatus int

const (
	// CyclePublished means exactly one candidate reached the platform.
	CyclePublished CycleStatus = iota
	// CycleSkipped is a silent success: nothing admissible, rate limited,
	// or every claim race lost.
	CycleSkipped
	// CycleFailed means a downstream dependency or the store failed.
	CycleFailed
)

// CycleResult reports what one cycle did.
type CycleResult struct {
	Status         CycleStatus
	Reason         string
	CandidateID    string
	PlatformPostID string
}

// CoordinatorDeps wires the driven adapters and policies into the
// coordinator.
type CoordinatorDeps struct {
	Store     ports.CandidateStore
	Safety    *safety.Scorer
	Diversity *diversity.Tracker
	Gate      *gate.Gate
	Caption   ports.CaptionClient
	Platform  ports.PlatformClient
	Alerts    ports.AlertNotifier
	Logger    *slog.Logger

	CaptionBreaker *breaker.Breaker
	PublishBreaker *breaker.Breaker
	Retry          breaker.RetryConfig

	Caps            ratelimit.Caps
	Lease           time.Duration
	DiversityWindow time.Duration
	// MaxSelectAttempts bounds reselection after lost claim races and
	// gate rejections within one cycle.
	MaxSelectAttempts int
	// CommitRetries bounds the store-only retry after a confirmed
	// platform publish.
	CommitRetries int
}

// Coordinator runs one end-to-end publish attempt per invocation.
// Correctness under concurrent, uncoordinated invokers comes entirely
// from the store's atomic claim; the coordinator itself holds no shared
// state.
type Coordinator struct {
	deps CoordinatorDeps
}

// NewCoordinator validates and stores the dependency set.
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	if deps.MaxSelectAttempts <= 0 {
		deps.MaxSelectAttempts = 5
	}
	if deps.CommitRetries <= 0 {
		deps.CommitRetries = 3
	}
	if deps.Lease <= 0 {
		deps.Lease = 5 * time.Minute
	}
	if deps.DiversityWindow <= 0 {
		deps.DiversityWindow = 24 * time.Hour
	}
	return &Coordinator{deps: deps}
}

// RunCycle executes one cycle: reclaim expired leases, then select, gate,
// claim, caption, publish, commit.
func (c *Coordinator) RunCycle(ctx context.Context) CycleResult {
	d := c.deps

	if reclaimed, err := d.Store.ReclaimExpired(ctx); err != nil {
		c.warn("reclaim expired leases", "error", err)
	} else if reclaimed > 0 {
		c.info("reclaimed expired claims", "count", reclaimed)
	}

	var exclude []string
	for attempt := 0; attempt < d.MaxSelectAttempts; attempt++ {
		candidate, err := d.Store.SelectBest(ctx, exclude)
		if errors.Is(err, domain.ErrNoCandidate) {
			return CycleResult{Status: CycleSkipped, Reason: "no pending candidate"}
		}
		if err != nil {
			return c.failed("", fmt.Sprintf("select candidate: %v", err))
		}

		err = d.Store.Claim(ctx, candidate.ID, d.Lease, d.Caps)
		switch {
		case errors.Is(err, domain.ErrRateLimited):
			c.appendAttempt(ctx, candidate.ID, domain.OutcomeRateLimited, "publish caps exhausted", nil)
			return CycleResult{Status: CycleSkipped, Reason: "rate limited", CandidateID: candidate.ID}
		case errors.Is(err, domain.ErrClaimConflict):
			// Another invoker won the race; reselect.
			c.info("claim race lost", "candidate", candidate.ID)
			exclude = append(exclude, candidate.ID)
			continue
		case err != nil:
			return c.failed(candidate.ID, fmt.Sprintf("claim: %v", err))
		}

		result, reselect := c.processClaimed(ctx, candidate)
		if !reselect {
			return result
		}
		exclude = append(exclude, candidate.ID)
	}

	return CycleResult{Status: CycleSkipped, Reason: "selection attempts exhausted"}
}

// processClaimed runs the gated candidate through caption and publish.
// reselect is true when the candidate was rejected by the gate and the
// cycle should try the next one.
func (c *Coordinator) processClaimed(ctx context.Context, candidate domain.Candidate) (CycleResult, bool) {
	verdict, decision, err := c.gateCandidate(ctx, &candidate)
	if err != nil {
		c.release(ctx, candidate.ID, domain.StatePending)
		return c.failed(candidate.ID, fmt.Sprintf("gate: %v", err)), false
	}
	if !decision.Admit {
		c.info("candidate rejected", "candidate", candidate.ID, "reason", decision.Reason)
		c.appendAttempt(ctx, candidate.ID, domain.OutcomeRejected, decision.Reason, verdict.Violations)
		c.release(ctx, candidate.ID, domain.StateRejected)
		return CycleResult{}, true
	}

	caption, err := c.generateCaption(ctx, candidate)
	if err != nil {
		// Transient and upstream of anything irreversible: release the
		// claim immediately and let the next cycle retry.
		c.appendAttempt(ctx, candidate.ID, domain.OutcomePlatformError, "caption: "+err.Error(), verdict.Violations)
		c.release(ctx, candidate.ID, domain.StatePending)
		return c.failed(candidate.ID, fmt.Sprintf("caption generation: %v", err)), false
	}

	postID, err := c.publish(ctx, candidate, caption)
	if err != nil {
		if isPermanent(err) {
			c.appendAttempt(ctx, candidate.ID, domain.OutcomePlatformError, err.Error(), verdict.Violations)
			c.release(ctx, candidate.ID, domain.StateFailed)
			c.alert(ctx, "permanent publish failure", fmt.Sprintf("candidate %s: %v", candidate.ID, err))
			return c.failed(candidate.ID, fmt.Sprintf("permanent publish failure: %v", err)), false
		}
		c.appendAttempt(ctx, candidate.ID, domain.OutcomePlatformError, err.Error(), verdict.Violations)
		c.release(ctx, candidate.ID, domain.StatePending)
		return c.failed(candidate.ID, fmt.Sprintf("publish: %v", err)), false
	}

	// Irreversible boundary crossed: the platform confirmed the post.
	// Only the store write is retried from here, idempotently, keyed by
	// candidate id. The platform call is never re-issued.
	if err := c.commitPublished(ctx, candidate.ID, postID); err != nil {
		c.alert(ctx, "publish commit failed",
			fmt.Sprintf("candidate %s published as %s but store commit failed: %v", candidate.ID, postID, err))
		return c.failed(candidate.ID, fmt.Sprintf("commit published: %v", err)), false
	}

	c.appendAttempt(ctx, candidate.ID, domain.OutcomeSuccess, "", verdict.Violations)
	c.info("published", "candidate", candidate.ID, "post", postID)
	return CycleResult{
		Status:         CyclePublished,
		Reason:         "published",
		CandidateID:    candidate.ID,
		PlatformPostID: postID,
	}, false
}

// gateCandidate scores the candidate unless a previous cycle already
// gated it. The gate itself is pure; this persists its outputs.
func (c *Coordinator) gateCandidate(ctx context.Context, candidate *domain.Candidate) (safety.Verdict, gate.Decision, error) {
	d := c.deps

	if candidate.Gated() {
		return safety.Verdict{Pass: true}, gate.Decision{Admit: true, Score: *candidate.Score, Reason: "previously gated"}, nil
	}

	verdict := d.Safety.Evaluate(ctx, candidate.Headline, candidate.Body, candidate.Source)

	window, err := d.Store.RecentPublished(ctx, d.DiversityWindow)
	if err != nil {
		return verdict, gate.Decision{}, fmt.Errorf("load diversity window: %w", err)
	}

	if candidate.Category == "" {
		candidate.Category = classify.Category(candidate.Headline, candidate.Body)
	}
	if candidate.Region == "" {
		candidate.Region = classify.Region(candidate.Headline, candidate.Body, candidate.Source)
	}
	penalty := d.Diversity.PenaltyFor(candidate.Category, candidate.Region, candidate.EventSignature, window)

	decision := d.Gate.Decide(verdict, penalty)
	if err := d.Store.SetGating(ctx, candidate.ID, decision.Score, candidate.Category, candidate.Region); err != nil {
		return verdict, decision, fmt.Errorf("persist gating: %w", err)
	}
	candidate.Score = &decision.Score

	return verdict, decision, nil
}

func (c *Coordinator) generateCaption(ctx context.Context, candidate domain.Candidate) (string, error) {
	d := c.deps

	var caption string
	err := breaker.DoWithRetry(ctx, d.Retry, func() error {
		return d.CaptionBreaker.Do(func() error {
			var callErr error
			caption, callErr = d.Caption.Caption(ctx, candidate.Headline, candidate.Body)
			return callErr
		})
	})
	return caption, err
}

func (c *Coordinator) publish(ctx context.Context, candidate domain.Candidate, caption string) (string, error) {
	d := c.deps

	var postID string
	err := breaker.DoWithRetry(ctx, d.Retry, func() error {
		return d.PublishBreaker.Do(func() error {
			var callErr error
			postID, callErr = d.Platform.Publish(ctx, candidate.MediaURL, caption)
			return callErr
		})
	})
	return postID, err
}

// commitPublished retries the idempotent terminal write against the
// store only.
func (c *Coordinator) commitPublished(ctx context.Context, id, postID string) error {
	d := c.deps

	var err error
	for attempt := 0; attempt <= d.CommitRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = d.Store.MarkPublished(ctx, id, postID); err == nil {
			return nil
		}
		c.warn("mark published failed", "candidate", id, "attempt", attempt, "error", err)
	}
	return err
}

func isPermanent(err error) bool {
	var r breaker.Retryable
	return errors.As(err, &r) && !r.Retryable()
}

func (c *Coordinator) appendAttempt(ctx context.Context, candidateID string, outcome domain.AttemptOutcome, detail string, violations []string) {
	attempt := domain.PublishAttempt{
		CandidateID: candidateID,
		Outcome:     outcome,
		ErrorDetail: detail,
		Violations:  violations,
		OccurredAt:  time.Now().UTC(),
	}
	if err := c.deps.Store.AppendAttempt(ctx, attempt); err != nil {
		c.warn("append attempt", "candidate", candidateID, "outcome", outcome, "error", err)
	}
}

func (c *Coordinator) release(ctx context.Context, id string, to domain.CandidateState) {
	if err := c.deps.Store.Release(ctx, id, to); err != nil {
		c.warn("release claim", "candidate", id, "to", to, "error", err)
	}
}

func (c *Coordinator) alert(ctx context.Context, subject, detail string) {
	if c.deps.Alerts == nil {
		return
	}
	if err := c.deps.Alerts.Alert(ctx, subject, detail); err != nil {
		c.warn("send alert", "subject", subject, "error", err)
	}
}

func (c *Coordinator) failed(candidateID, reason string) CycleResult {
	c.warn("cycle failed", "candidate", candidateID, "reason", reason)
	return CycleResult{Status: CycleFailed, Reason: reason, CandidateID: candidateID}
}

func (c *Coordinator) info(msg string, args ...any) {
	if c.deps.Logger != nil {
		c.deps.Logger.Info(msg, args...)
	}
}

func (c *Coordinator) warn(msg string, args ...any) {
	if c.deps.Logger != nil {
		c.deps.Logger.Warn(msg, args...)
	}
}
