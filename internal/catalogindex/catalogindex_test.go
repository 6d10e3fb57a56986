package catalogindex

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extremevalue/quantvalid/internal/domain"
)

func newMockIndex(t *testing.T) (*Index, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	return New(db, 5*time.Second), mock
}

func TestUpsert_ExecutesOnConflictUpdate(t *testing.T) {
	idx, mock := newMockIndex(t)

	mock.ExpectExec("INSERT INTO catalog_index").
		WithArgs("cand-1", domain.StatusValidated, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := idx.Upsert(context.Background(), Entry{
		CandidateID: "cand-1",
		Status:      domain.StatusValidated,
		LastRunAt:   time.Now(),
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_ReturnsEntryWhenRowExists(t *testing.T) {
	idx, mock := newMockIndex(t)

	now := time.Now().Truncate(time.Second)
	rows := sqlmock.NewRows([]string{"candidate_id", "status", "last_run_at"}).
		AddRow("cand-1", string(domain.StatusValidated), now)

	mock.ExpectQuery("SELECT candidate_id, status, last_run_at FROM catalog_index").
		WithArgs("cand-1").
		WillReturnRows(rows)

	e, err := idx.Get(context.Background(), "cand-1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "cand-1", e.CandidateID)
	assert.Equal(t, domain.StatusValidated, e.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_ReturnsNilWhenNoRows(t *testing.T) {
	idx, mock := newMockIndex(t)

	mock.ExpectQuery("SELECT candidate_id, status, last_run_at FROM catalog_index").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"candidate_id", "status", "last_run_at"}))

	e, err := idx.Get(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStatus_ReturnsAllMatchingRows(t *testing.T) {
	idx, mock := newMockIndex(t)

	now := time.Now().Truncate(time.Second)
	rows := sqlmock.NewRows([]string{"candidate_id", "status", "last_run_at"}).
		AddRow("cand-1", string(domain.StatusPending), now).
		AddRow("cand-2", string(domain.StatusPending), now.Add(-time.Hour))

	mock.ExpectQuery("SELECT candidate_id, status, last_run_at FROM catalog_index").
		WithArgs(domain.StatusPending).
		WillReturnRows(rows)

	entries, err := idx.ListByStatus(context.Background(), domain.StatusPending)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "cand-1", entries[0].CandidateID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
