// Package storage implements the candidate store on Postgres. Every
// cross-invoker guarantee the coordinator relies on lives here: the
// fingerprint unique index, the single-row conditional claim, and the
// capacity count taken under the same transaction as the claim.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
	"NewsPublisher/internal/ratelimit"
)

//go:embed schema.sql
var schemaSQL string

// rateLockKey is the advisory lock serializing capacity checks across
// invokers. Held to transaction end, so counts cannot interleave with a
// racing claim.
const rateLockKey = 7340041

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var candidateColumns = []string{
	"id", "fingerprint", "category", "region", "headline", "body",
	"source", "url", "media_url", "event_signature", "state", "score",
	"ingested_at", "claimed_at", "claim_expiry", "published_at",
	"platform_post_id",
}

// PostgresStore persists candidates and publish attempts.
type PostgresStore struct {
	db *sql.DB
}

var _ ports.CandidateStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema applies the embedded DDL; every statement is idempotent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Insert persists a new pending candidate. A fingerprint collision maps
// to domain.ErrDuplicate so ingestion stays idempotent under feed
// overlap.
func (s *PostgresStore) Insert(ctx context.Context, c domain.Candidate) error {
	query, args, err := psql.Insert("candidates").
		Columns("id", "fingerprint", "category", "region", "headline",
			"body", "source", "url", "media_url", "event_signature",
			"state", "ingested_at").
		Values(c.ID, c.Fingerprint, c.Category, c.Region, c.Headline,
			c.Body, c.Source, c.URL, c.MediaURL, c.EventSignature,
			string(domain.StatePending), c.IngestedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

// SelectBest returns the top pending candidate by score, oldest first on
// ties so nothing starves.
func (s *PostgresStore) SelectBest(ctx context.Context, exclude []string) (domain.Candidate, error) {
	builder := psql.Select(candidateColumns...).
		From("candidates").
		Where(sq.Eq{"state": string(domain.StatePending)}).
		OrderBy("score DESC NULLS LAST", "ingested_at ASC").
		Limit(1)
	if len(exclude) > 0 {
		builder = builder.Where(sq.NotEq{"id": exclude})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("build select: %w", err)
	}

	c, err := scanCandidate(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Candidate{}, domain.ErrNoCandidate
	}
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("select best: %w", err)
	}
	return c, nil
}

const windowUsageQuery = `
SELECT
    (SELECT count(*) FROM candidates
      WHERE (state = 'published' AND published_at > now() - interval '1 hour')
         OR (state = 'claimed' AND claim_expiry > now())) AS hour_used,
    (SELECT count(*) FROM candidates
      WHERE (state = 'published' AND published_at > now() - interval '24 hours')
         OR (state = 'claimed' AND claim_expiry > now())) AS day_used`

const claimQuery = `
UPDATE candidates
   SET state = 'claimed', claimed_at = now(),
       claim_expiry = now() + make_interval(secs => $2)
 WHERE id = $1 AND state = 'pending'`

// Claim transitions pending->claimed and reserves rate capacity in one
// transaction. Live claims count toward the windows, so capacity is
// reserved at claim time and refunded when a claim is released. The
// advisory xact lock serializes the count against concurrent claimers;
// the row condition makes the claim itself at-most-once.
func (s *PostgresStore) Claim(ctx context.Context, id string, lease time.Duration, caps ratelimit.Caps) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, rateLockKey); err != nil {
		return fmt.Errorf("acquire rate lock: %w", err)
	}

	var hourUsed, dayUsed int
	if err := tx.QueryRowContext(ctx, windowUsageQuery).Scan(&hourUsed, &dayUsed); err != nil {
		return fmt.Errorf("count window usage: %w", err)
	}
	if (caps.PerHour > 0 && hourUsed >= caps.PerHour) || (caps.PerDay > 0 && dayUsed >= caps.PerDay) {
		return domain.ErrRateLimited
	}

	res, err := tx.ExecContext(ctx, claimQuery, id, lease.Seconds())
	if err != nil {
		return fmt.Errorf("claim candidate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrClaimConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit claim: %w", err)
	}
	return nil
}

// Release moves a claimed candidate to pending, rejected, or failed and
// clears the lease, refunding the rate reservation.
func (s *PostgresStore) Release(ctx context.Context, id string, to domain.CandidateState) error {
	switch to {
	case domain.StatePending, domain.StateRejected, domain.StateFailed:
	default:
		return fmt.Errorf("release to %s: invalid target state", to)
	}

	query, args, err := psql.Update("candidates").
		Set("state", string(to)).
		Set("claimed_at", nil).
		Set("claim_expiry", nil).
		Where(sq.Eq{"id": id, "state": string(domain.StateClaimed)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build release: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("release candidate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("release candidate %s: not claimed", id)
	}
	return nil
}

const markPublishedQuery = `
UPDATE candidates
   SET state = 'published',
       published_at = COALESCE(published_at, now()),
       platform_post_id = COALESCE(NULLIF(platform_post_id, ''), $2),
       claimed_at = NULL, claim_expiry = NULL
 WHERE id = $1 AND state IN ('claimed', 'published')`

// MarkPublished commits the terminal state. Idempotent by candidate id:
// a retry after a store hiccup matches the already-published row and
// leaves published_at untouched.
func (s *PostgresStore) MarkPublished(ctx context.Context, id, platformPostID string) error {
	res, err := s.db.ExecContext(ctx, markPublishedQuery, id, platformPostID)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark published rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark published %s: candidate not claimed", id)
	}
	return nil
}

// SetGating persists the composite score and classification tags.
func (s *PostgresStore) SetGating(ctx context.Context, id string, score int, category, region string) error {
	query, args, err := psql.Update("candidates").
		Set("score", score).
		Set("category", category).
		Set("region", region).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build gating update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set gating: %w", err)
	}
	return nil
}

// ReclaimExpired returns lease-expired claims to pending; any invoker
// may run this, which is the sole recovery path for crashed claimers.
func (s *PostgresStore) ReclaimExpired(ctx context.Context) (int64, error) {
	query, args, err := psql.Update("candidates").
		Set("state", string(domain.StatePending)).
		Set("claimed_at", nil).
		Set("claim_expiry", nil).
		Where(sq.Eq{"state": string(domain.StateClaimed)}).
		Where(sq.Expr("claim_expiry < now()")).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build reclaim: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reclaim expired: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reclaim rows affected: %w", err)
	}
	return affected, nil
}

const requeueFailedQuery = `
UPDATE candidates
   SET state = 'pending'
 WHERE state = 'failed'
   AND NOT EXISTS (
       SELECT 1 FROM publish_attempts a
        WHERE a.candidate_id = candidates.id
          AND a.occurred_at > now() - make_interval(secs => $1))`

// RequeueFailed is the explicit recovery policy: failed candidates whose
// most recent attempt is older than the cutoff go back to pending.
func (s *PostgresStore) RequeueFailed(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, requeueFailedQuery, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("requeue failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("requeue rows affected: %w", err)
	}
	return affected, nil
}

// AppendAttempt appends one audit record; attempts are never updated.
func (s *PostgresStore) AppendAttempt(ctx context.Context, a domain.PublishAttempt) error {
	occurredAt := a.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	query, args, err := psql.Insert("publish_attempts").
		Columns("candidate_id", "outcome", "error_detail", "violations", "occurred_at").
		Values(a.CandidateID, string(a.Outcome), a.ErrorDetail, pq.Array(a.Violations), occurredAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build attempt insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

// RecentPublished returns the diversity window snapshot, newest first.
func (s *PostgresStore) RecentPublished(ctx context.Context, window time.Duration) ([]domain.PublishedSummary, error) {
	query, args, err := psql.Select("category", "region", "event_signature", "published_at").
		From("candidates").
		Where(sq.Eq{"state": string(domain.StatePublished)}).
		Where(sq.Expr("published_at > now() - make_interval(secs => ?)", window.Seconds())).
		OrderBy("published_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent published: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent published: %w", err)
	}
	defer rows.Close()

	var out []domain.PublishedSummary
	for rows.Next() {
		var item domain.PublishedSummary
		if err := rows.Scan(&item.Category, &item.Region, &item.EventSignature, &item.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan published summary: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (domain.Candidate, error) {
	var (
		c     domain.Candidate
		score sql.NullInt64
		state string
	)
	err := row.Scan(
		&c.ID, &c.Fingerprint, &c.Category, &c.Region, &c.Headline,
		&c.Body, &c.Source, &c.URL, &c.MediaURL, &c.EventSignature,
		&state, &score, &c.IngestedAt, &c.ClaimedAt, &c.ClaimExpiry,
		&c.PublishedAt, &c.PlatformPostID,
	)
	if err != nil {
		return domain.Candidate{}, err
	}
	c.State = domain.CandidateState(state)
	if score.Valid {
		v := int(score.Int64)
		c.Score = &v
	}
	return c, nil
}
