// Package catalogindex implements the optional Postgres read-through
// cache of catalog metadata named in §6 (`catalog.<db>`). The file
// tree under the workspace root (internal/persist) remains the catalog
// of record; this index is a derived acceleration path for `run-all`
// over large catalogs — nothing here is authoritative, and a caller
// with no database configured simply never constructs an Index.
//
// Grounded on the teacher's internal/persistence/postgres repositories
// (regime_repo.go, premove_repo.go): an unexported struct wrapping
// *sqlx.DB plus a per-call context timeout, upsert-on-conflict SQL,
// fmt.Errorf-wrapped errors.
package catalogindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/extremevalue/quantvalid/internal/domain"
)

// Entry is one cached row: a candidate id, its last-known status, and
// the timestamp of its last run.
type Entry struct {
	CandidateID string       `db:"candidate_id"`
	Status      domain.Status `db:"status"`
	LastRunAt   time.Time    `db:"last_run_at"`
}

// Index is the Postgres-backed read-through cache.
type Index struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to a Postgres catalog-index database at dsn. The
// schema (one `catalog_index` table) is expected to already exist;
// this package does not run migrations.
func Open(dsn string, timeout time.Duration) (*Index, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to catalog index: %w", err)
	}
	return &Index{db: db, timeout: timeout}, nil
}

// New wraps an already-open *sqlx.DB, for tests (sqlmock) or callers
// that manage the connection pool themselves.
func New(db *sqlx.DB, timeout time.Duration) *Index {
	return &Index{db: db, timeout: timeout}
}

// Close releases the underlying connection pool.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Upsert records (or refreshes) one candidate's cached status.
func (idx *Index) Upsert(ctx context.Context, e Entry) error {
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	query := `
		INSERT INTO catalog_index (candidate_id, status, last_run_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (candidate_id) DO UPDATE SET
			status = EXCLUDED.status,
			last_run_at = EXCLUDED.last_run_at`

	if _, err := idx.db.ExecContext(ctx, query, e.CandidateID, e.Status, e.LastRunAt); err != nil {
		return fmt.Errorf("upserting catalog index entry for %s: %w", e.CandidateID, err)
	}
	return nil
}

// Get returns the cached entry for one candidate, or nil if the index
// has never seen it — callers should fall back to the file tree.
func (idx *Index) Get(ctx context.Context, candidateID string) (*Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	var e Entry
	query := `SELECT candidate_id, status, last_run_at FROM catalog_index WHERE candidate_id = $1`
	if err := idx.db.GetContext(ctx, &e, query, candidateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading catalog index entry for %s: %w", candidateID, err)
	}
	return &e, nil
}

// ListByStatus returns every cached entry currently at the given
// status, most-recently-run first.
func (idx *Index) ListByStatus(ctx context.Context, status domain.Status) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	var entries []Entry
	query := `SELECT candidate_id, status, last_run_at FROM catalog_index WHERE status = $1 ORDER BY last_run_at DESC`
	if err := idx.db.SelectContext(ctx, &entries, query, status); err != nil {
		return nil, fmt.Errorf("listing catalog index entries for status %s: %w", status, err)
	}
	return entries, nil
}
