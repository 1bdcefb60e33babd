package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ecoplate-api/internal/model"
)

const accountColumns = `session_id, is_first_time, total_pickups, no_show_count, has_account,
	has_card_saved, card_last4, membership, credits_remaining, updated_at`

func scanAccount(row rowScanner) (*model.UserAccount, error) {
	var a model.UserAccount
	var membership sql.NullString
	var updated int64
	err := row.Scan(&a.SessionID, &a.IsFirstTime, &a.TotalPickups, &a.NoShowCount, &a.HasAccount,
		&a.HasCardSaved, &a.CardLast4, &membership, &a.CreditsRemaining, &updated)
	if err != nil {
		return nil, err
	}
	if membership.Valid && membership.String != "" {
		var m model.Membership
		if err := json.Unmarshal([]byte(membership.String), &m); err != nil {
			return nil, fmt.Errorf("failed to decode membership: %w", err)
		}
		a.Membership = &m
	}
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}

func encodeMembership(m *model.Membership) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode membership: %w", err)
	}
	return nullString(string(raw)), nil
}

// GetAccount loads an account. Unseen sessions yield ErrNotFound.
func (q *queries) GetAccount(ctx context.Context, sessionID string) (*model.UserAccount, error) {
	a, err := scanAccount(q.queryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE session_id = ?`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// EnsureAccount creates the default row if the session has none.
func (q *queries) EnsureAccount(ctx context.Context, sessionID string, at time.Time) error {
	def := model.DefaultAccount(sessionID)
	_, err := q.exec(ctx, q.d.insertIgnore("accounts", accountColumns, 10),
		def.SessionID, def.IsFirstTime, def.TotalPickups, def.NoShowCount, def.HasAccount,
		def.HasCardSaved, def.CardLast4, sql.NullString{}, def.CreditsRemaining, toMillis(at))
	if err != nil {
		return fmt.Errorf("failed to ensure account: %w", err)
	}
	return nil
}

// SaveAccount overwrites every mutable field of an existing account.
func (q *queries) SaveAccount(ctx context.Context, a *model.UserAccount) error {
	membership, err := encodeMembership(a.Membership)
	if err != nil {
		return err
	}
	ok, err := q.execOne(ctx, `UPDATE accounts SET
		is_first_time = ?, total_pickups = ?, no_show_count = ?, has_account = ?,
		has_card_saved = ?, card_last4 = ?, membership = ?, credits_remaining = ?, updated_at = ?
		WHERE session_id = ?`,
		a.IsFirstTime, a.TotalPickups, a.NoShowCount, a.HasAccount,
		a.HasCardSaved, a.CardLast4, membership, a.CreditsRemaining, toMillis(a.UpdatedAt),
		a.SessionID)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// DebitCredit takes one credit if any are left.
func (q *queries) DebitCredit(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	ok, err := q.execOne(ctx, `UPDATE accounts SET credits_remaining = credits_remaining - 1, updated_at = ?
		WHERE session_id = ? AND credits_remaining > 0`, toMillis(at), sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to debit credit: %w", err)
	}
	return ok, nil
}

// RefundCredit gives one credit back.
func (q *queries) RefundCredit(ctx context.Context, sessionID string, at time.Time) error {
	if _, err := q.exec(ctx, `UPDATE accounts SET credits_remaining = credits_remaining + 1, updated_at = ?
		WHERE session_id = ?`, toMillis(at), sessionID); err != nil {
		return fmt.Errorf("failed to refund credit: %w", err)
	}
	return nil
}

// SaveCard stores the card only if none is saved yet.
func (q *queries) SaveCard(ctx context.Context, sessionID, last4 string, at time.Time) (bool, error) {
	ok, err := q.execOne(ctx, `UPDATE accounts SET has_card_saved = ?, card_last4 = ?, updated_at = ?
		WHERE session_id = ? AND has_card_saved = ?`, true, last4, toMillis(at), sessionID, false)
	if err != nil {
		return false, fmt.Errorf("failed to save card: %w", err)
	}
	return ok, nil
}

// MarkReturning clears the first-time flag.
func (q *queries) MarkReturning(ctx context.Context, sessionID string, at time.Time) error {
	if _, err := q.exec(ctx, `UPDATE accounts SET is_first_time = ?, updated_at = ?
		WHERE session_id = ? AND is_first_time = ?`, false, toMillis(at), sessionID, true); err != nil {
		return fmt.Errorf("failed to mark returning: %w", err)
	}
	return nil
}

// IncrementPickups adds one completed pickup.
func (q *queries) IncrementPickups(ctx context.Context, sessionID string, at time.Time) error {
	if _, err := q.exec(ctx, `UPDATE accounts SET total_pickups = total_pickups + 1, updated_at = ?
		WHERE session_id = ?`, toMillis(at), sessionID); err != nil {
		return fmt.Errorf("failed to increment pickups: %w", err)
	}
	return nil
}

// IncrementNoShows adds one no-show and returns the new lifetime count.
func (q *queries) IncrementNoShows(ctx context.Context, sessionID string, at time.Time) (int, error) {
	if _, err := q.exec(ctx, `UPDATE accounts SET no_show_count = no_show_count + 1, updated_at = ?
		WHERE session_id = ?`, toMillis(at), sessionID); err != nil {
		return 0, fmt.Errorf("failed to increment no-shows: %w", err)
	}
	var n int
	if err := q.queryRow(ctx, `SELECT no_show_count FROM accounts WHERE session_id = ?`, sessionID).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to read no-shows: %w", err)
	}
	return n, nil
}

// NoShowCounts returns lifetime no-show counts for the given sessions.
// Sessions without an account are absent from the map.
func (q *queries) NoShowCounts(ctx context.Context, sessionIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		args[i] = id
	}
	rows, err := q.query(ctx, `SELECT session_id, no_show_count FROM accounts
		WHERE session_id IN (`+placeholders(len(sessionIDs))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read no-show counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan no-show count: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}
