package repository

import (
	"context"
	"fmt"

	"ecoplate-api/internal/model"
)

// InsertWaitlistEntry adds the session to the drop's waitlist. The unique
// (drop_id, session_id) key makes repeat joins a no-op.
func (q *queries) InsertWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) (bool, error) {
	ok, err := q.execOne(ctx, q.d.insertIgnore("waitlist_entries", "id, drop_id, session_id, notified, created_at", 5),
		e.ID, e.DropID, e.SessionID, e.Notified, toMillis(e.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to join waitlist: %w", err)
	}
	return ok, nil
}

// ListWaitlist returns the drop's waitlist in join order.
func (q *queries) ListWaitlist(ctx context.Context, dropID string) ([]*model.WaitlistEntry, error) {
	rows, err := q.query(ctx, `SELECT id, drop_id, session_id, notified, created_at FROM waitlist_entries
		WHERE drop_id = ? ORDER BY created_at ASC, id ASC`, dropID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	defer rows.Close()

	out := []*model.WaitlistEntry{}
	for rows.Next() {
		var e model.WaitlistEntry
		var created int64
		if err := rows.Scan(&e.ID, &e.DropID, &e.SessionID, &e.Notified, &created); err != nil {
			return nil, fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		e.CreatedAt = fromMillis(created)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// MarkWaitlistNotified flags every entry of the drop as notified.
func (q *queries) MarkWaitlistNotified(ctx context.Context, dropID string) error {
	if _, err := q.exec(ctx, `UPDATE waitlist_entries SET notified = ? WHERE drop_id = ?`, true, dropID); err != nil {
		return fmt.Errorf("failed to mark waitlist notified: %w", err)
	}
	return nil
}
