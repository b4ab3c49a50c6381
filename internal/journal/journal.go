// internal/journal/journal.go
//
// Formgate – Submission journal.
//
// Context
//   Every pipeline run, successful or not, leaves one row in the
//   submission_journal table: which form, which terminal outcome, a short
//   detail, the submitter's parsed user agent and country, and how long the
//   run took.  Raw field values are deliberately never journaled; the
//   gateway stores the shape of the traffic, not its content.
//
//   Journal writes are observability, not business flow.  The caller logs a
//   failed insert and moves on; a submitter never sees a journal error.
//
//------------------------------------------------------------------------------

package journal

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Entry is one journal row.
type Entry struct {
	ID         int64     `db:"id"`
	FormID     string    `db:"form_id"`
	Outcome    string    `db:"outcome"`
	Detail     string    `db:"detail"`
	Browser    string    `db:"browser"`
	OS         string    `db:"os"`
	Device     string    `db:"device"`
	Country    string    `db:"country"`
	DurationMS int64     `db:"duration_ms"`
	CreatedAt  time.Time `db:"created_at"`
}

// Store persists journal entries.  Construct with NewStore and share; the
// underlying pool is safe for concurrent use.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open connection pool.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// Record inserts one row.  CreatedAt is stamped here so callers cannot
// accidentally journal stale timestamps.
func (s *Store) Record(ctx context.Context, e Entry) error {
	const q = `
        INSERT INTO submission_journal
            (form_id, outcome, detail, browser, os, device, country, duration_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		e.FormID, e.Outcome, e.Detail,
		e.Browser, e.OS, e.Device, e.Country,
		e.DurationMS, time.Now().UTC(),
	)
	return err
}

// RecentByForm returns the newest entries for one form, newest first.  Used
// by the operator endpoint, not the submission path.
func (s *Store) RecentByForm(ctx context.Context, formID string, limit int) ([]Entry, error) {
	const q = `
        SELECT id, form_id, outcome, detail, browser, os, device, country,
               duration_ms, created_at
        FROM   submission_journal
        WHERE  form_id = ?
        ORDER  BY created_at DESC
        LIMIT  ?`

	var rows []Entry
	if err := s.db.SelectContext(ctx, &rows, q, formID, limit); err != nil {
		return nil, err
	}
	return rows, nil
}
