package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ratelimit"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestInsertMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO candidates").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.Insert(context.Background(), domain.Candidate{ID: "c1", Fingerprint: "fp"})
	require.ErrorIs(t, err, domain.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSucceeds(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO candidates").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Insert(context.Background(), domain.Candidate{ID: "c1", Fingerprint: "fp"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectBestNoRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM candidates").
		WillReturnError(sql.ErrNoRows)

	_, err := store.SelectBest(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrNoCandidate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectBestScansCandidate(t *testing.T) {
	store, mock := newMockStore(t)

	ingested := time.Now().Add(-time.Hour)
	rows := sqlmock.NewRows(candidateColumns).AddRow(
		"c1", "fp", "politics", "europe", "Parliament passes budget",
		"body", "Example Wire", "https://news.example.com/1", "https://img.example.com/1.jpg",
		"budget parliament passes", "pending", nil,
		ingested, nil, nil, nil, "",
	)
	mock.ExpectQuery("SELECT .+ FROM candidates").WillReturnRows(rows)

	c, err := store.SelectBest(context.Background(), []string{"other"})
	require.NoError(t, err)
	require.Equal(t, "c1", c.ID)
	require.Equal(t, domain.StatePending, c.State)
	require.Nil(t, c.Score)
	require.Nil(t, c.PublishedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimReservesCapacityAndCommits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("hour_used").
		WillReturnRows(sqlmock.NewRows([]string{"hour_used", "day_used"}).AddRow(1, 4))
	mock.ExpectExec("UPDATE candidates").
		WithArgs("c1", float64(300)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Claim(context.Background(), "c1", 5*time.Minute, ratelimit.Caps{PerHour: 3, PerDay: 25})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRateLimitedRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("hour_used").
		WillReturnRows(sqlmock.NewRows([]string{"hour_used", "day_used"}).AddRow(3, 10))
	mock.ExpectRollback()

	err := store.Claim(context.Background(), "c1", 5*time.Minute, ratelimit.Caps{PerHour: 3, PerDay: 25})
	require.ErrorIs(t, err, domain.ErrRateLimited)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimLostRaceRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("hour_used").
		WillReturnRows(sqlmock.NewRows([]string{"hour_used", "day_used"}).AddRow(0, 0))
	mock.ExpectExec("UPDATE candidates").
		WithArgs("c1", float64(300)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.Claim(context.Background(), "c1", 5*time.Minute, ratelimit.Caps{PerHour: 3, PerDay: 25})
	require.ErrorIs(t, err, domain.ErrClaimConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPublished(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE candidates").
		WithArgs("c1", "post-9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkPublished(context.Background(), "c1", "post-9"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPublishedUnknownCandidate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE candidates").
		WithArgs("c1", "post-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkPublished(context.Background(), "c1", "post-9")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseRejectsInvalidTarget(t *testing.T) {
	store, _ := newMockStore(t)

	err := store.Release(context.Background(), "c1", domain.StatePublished)
	require.Error(t, err)
}

func TestReleaseRefundsClaim(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE candidates").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Release(context.Background(), "c1", domain.StatePending))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReclaimExpiredCountsRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE candidates").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := store.ReclaimExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendAttemptStoresViolations(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO publish_attempts").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.AppendAttempt(context.Background(), domain.PublishAttempt{
		CandidateID: "c1",
		Outcome:     domain.OutcomeRejected,
		Violations:  []string{"clickbait"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
