package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecoplate-api/internal/model"
)

const pickupCodeColumns = `id, code, reservation_id, drop_id, status, created_at, updated_at`

func scanPickupCode(row rowScanner) (*model.PickupCode, error) {
	var c model.PickupCode
	var status string
	var created, updated int64
	if err := row.Scan(&c.ID, &c.Code, &c.ReservationID, &c.DropID, &status, &created, &updated); err != nil {
		return nil, err
	}
	c.Status = model.PickupCodeStatus(status)
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return &c, nil
}

// InsertPickupCode registers a code. live_code mirrors code while the entry
// is valid, so two valid entries can never share a code.
func (q *queries) InsertPickupCode(ctx context.Context, c *model.PickupCode) error {
	var live sql.NullString
	if c.Status == model.CodeValid {
		live = nullString(c.Code)
	}
	_, err := q.exec(ctx, `INSERT INTO pickup_codes (`+pickupCodeColumns+`, live_code) VALUES (`+placeholders(8)+`)`,
		c.ID, c.Code, c.ReservationID, c.DropID, string(c.Status),
		toMillis(c.CreatedAt), toMillis(c.UpdatedAt), live)
	if err != nil {
		if IsDuplicateKeyErr(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert pickup code: %w", err)
	}
	return nil
}

// LiveCodeExists reports whether code is held by a valid entry.
func (q *queries) LiveCodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	if err := q.queryRow(ctx, `SELECT COUNT(*) FROM pickup_codes WHERE live_code = ?`, code).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check pickup code: %w", err)
	}
	return n > 0, nil
}

// FindPickupCode prefers the live entry, then the latest terminal one.
func (q *queries) FindPickupCode(ctx context.Context, code string) (*model.PickupCode, error) {
	c, err := scanPickupCode(q.queryRow(ctx, `SELECT `+pickupCodeColumns+` FROM pickup_codes
		WHERE code = ?
		ORDER BY CASE WHEN status = ? THEN 0 ELSE 1 END, updated_at DESC
		LIMIT 1`, code, string(model.CodeValid)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find pickup code: %w", err)
	}
	return c, nil
}

// GetPickupCodeByReservation loads the code issued for a reservation.
func (q *queries) GetPickupCodeByReservation(ctx context.Context, reservationID string) (*model.PickupCode, error) {
	c, err := scanPickupCode(q.queryRow(ctx, `SELECT `+pickupCodeColumns+` FROM pickup_codes
		WHERE reservation_id = ?`, reservationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pickup code: %w", err)
	}
	return c, nil
}

// TransitionPickupCode is a compare-and-set on status. It is the single point
// where a code stops being redeemable.
func (q *queries) TransitionPickupCode(ctx context.Context, id string, from, to model.PickupCodeStatus, at time.Time) (bool, error) {
	ok, err := q.execOne(ctx, `UPDATE pickup_codes SET status = ?, live_code = NULL, updated_at = ?
		WHERE id = ? AND status = ?`, string(to), toMillis(at), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to transition pickup code: %w", err)
	}
	return ok, nil
}
