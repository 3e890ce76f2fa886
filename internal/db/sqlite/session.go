// Package sqlite provides SQLite database operations for refinery.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/finprompt/refinery/pkg/models"
)

// SessionStore provides session-related database operations.
type SessionStore struct {
	store *Store
}

// NewSessionStore creates a new session store.
func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{store: store}
}

// Upsert creates a session if it does not exist. Idempotent: a second call
// with the same ID is a no-op on the stored fields, never an error.
func (s *SessionStore) Upsert(ctx context.Context, id, ipHash, userAgent string) error {
	now := time.Now()

	// INSERT OR IGNORE keeps this safe under concurrent first events.
	const query = `
		INSERT OR IGNORE INTO sessions (id, ip_hash, user_agent, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.store.ExecContext(ctx, query,
		id, ipHash, nullString(userAgent),
		now.Format(time.RFC3339), now.UnixMilli(),
	)
	return err
}

// GetByID retrieves a session, or nil when absent.
func (s *SessionStore) GetByID(ctx context.Context, id string) (*models.Session, error) {
	const query = `
		SELECT id, ip_hash, user_agent, created_at, created_at_epoch
		FROM sessions
		WHERE id = ?
		LIMIT 1
	`

	var sess models.Session
	err := s.store.QueryRowContext(ctx, query, id).Scan(
		&sess.ID, &sess.IPHash, &sess.UserAgent, &sess.CreatedAt, &sess.CreatedAtEpoch,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Count returns the number of stored sessions.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.store.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}
