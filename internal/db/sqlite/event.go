// Package sqlite provides SQLite database operations for refinery.
package sqlite

import (
	"context"
	"time"

	"github.com/finprompt/refinery/pkg/models"
)

// EventStore provides append-only analytics event operations.
type EventStore struct {
	store *Store
}

// NewEventStore creates a new event store.
func NewEventStore(store *Store) *EventStore {
	return &EventStore{store: store}
}

// Append records one event. Events are immutable once written; there is no
// update or delete path.
func (s *EventStore) Append(ctx context.Context, sessionID, kind, dataJSON string) (int64, error) {
	now := time.Now()

	const query = `
		INSERT INTO events (session_id, kind, data, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.store.ExecContext(ctx, query,
		sessionID, kind, nullString(dataJSON),
		now.Format(time.RFC3339), now.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}

	id, _ := result.LastInsertId()
	return id, nil
}

// ListBySession returns a session's events, oldest first.
func (s *EventStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Event, error) {
	const query = `
		SELECT id, session_id, kind, data, created_at, created_at_epoch
		FROM events
		WHERE session_id = ?
		ORDER BY created_at_epoch ASC, id ASC
		LIMIT ?
	`

	rows, err := s.store.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Kind, &ev.Data, &ev.CreatedAt, &ev.CreatedAtEpoch); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// CountByKind returns event counts grouped by kind, for the ops view.
func (s *EventStore) CountByKind(ctx context.Context) (map[string]int, error) {
	const query = `SELECT kind, COUNT(*) FROM events GROUP BY kind`

	rows, err := s.store.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}
