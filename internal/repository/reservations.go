package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecoplate-api/internal/model"
)

const reservationColumns = `id, drop_id, session_id, location, location_detail, drop_date,
	window_start, window_end, image_ref, pickup_code, status, payment_method,
	current_price, rating, box_status, created_at, updated_at`

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var r model.Reservation
	var loc, status, method, box string
	var rating sql.NullInt64
	var created, updated int64
	err := row.Scan(&r.ID, &r.DropID, &r.SessionID, &loc, &r.LocationDetail, &r.Date,
		&r.WindowStart, &r.WindowEnd, &r.ImageRef, &r.PickupCode, &status, &method,
		&r.CurrentPrice, &rating, &box, &created, &updated)
	if err != nil {
		return nil, err
	}
	r.Location = model.Location(loc)
	r.Status = model.ReservationStatus(status)
	r.PaymentMethod = model.PaymentMethod(method)
	r.BoxStatus = model.BoxStatus(box)
	if rating.Valid {
		v := int(rating.Int64)
		r.Rating = &v
	}
	r.CreatedAt = fromMillis(created)
	r.UpdatedAt = fromMillis(updated)
	return &r, nil
}

// activeKey is set only while the reservation holds a box. The unique index
// on it caps each session at one active reservation per drop.
func activeKey(r *model.Reservation) sql.NullString {
	if r.Status != model.ReservationReserved {
		return sql.NullString{}
	}
	return nullString(model.ActiveKey(r.SessionID, r.DropID))
}

// InsertReservation stores a new reservation. A second active reservation
// for the same session and drop yields ErrDuplicate.
func (q *queries) InsertReservation(ctx context.Context, r *model.Reservation) error {
	var rating sql.NullInt64
	if r.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*r.Rating), Valid: true}
	}
	_, err := q.exec(ctx, `INSERT INTO reservations (`+reservationColumns+`, active_key)
		VALUES (`+placeholders(18)+`)`,
		r.ID, r.DropID, r.SessionID, string(r.Location), r.LocationDetail, r.Date,
		r.WindowStart, r.WindowEnd, r.ImageRef, r.PickupCode, string(r.Status), string(r.PaymentMethod),
		r.CurrentPrice, rating, string(r.BoxStatus), toMillis(r.CreatedAt), toMillis(r.UpdatedAt),
		activeKey(r))
	if err != nil {
		if IsDuplicateKeyErr(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

// GetReservation loads one reservation by ID.
func (q *queries) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	r, err := scanReservation(q.queryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

// ListReservations returns matching reservations, newest first.
func (q *queries) ListReservations(ctx context.Context, f ReservationFilter) ([]*model.Reservation, error) {
	var where []string
	var args []any
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.DropID != "" {
		where = append(where, "drop_id = ?")
		args = append(args, f.DropID)
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	out := []*model.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// HasActiveReservation reports whether the session holds a box of the drop.
func (q *queries) HasActiveReservation(ctx context.Context, sessionID, dropID string) (bool, error) {
	var n int
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE active_key = ?`,
		model.ActiveKey(sessionID, dropID)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check active reservation: %w", err)
	}
	return n > 0, nil
}

// TransitionReservation is a compare-and-set on status. Only reserved is
// non-terminal, so any transition releases the active key.
func (q *queries) TransitionReservation(ctx context.Context, id string, from, to model.ReservationStatus, at time.Time) (bool, error) {
	ok, err := q.execOne(ctx, `UPDATE reservations SET status = ?, active_key = NULL, updated_at = ?
		WHERE id = ? AND status = ?`, string(to), toMillis(at), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to transition reservation: %w", err)
	}
	return ok, nil
}

// SetReservationRating overwrites the rating.
func (q *queries) SetReservationRating(ctx context.Context, id string, rating int, at time.Time) error {
	ok, err := q.execOne(ctx, `UPDATE reservations SET rating = ?, updated_at = ? WHERE id = ?`,
		rating, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to set rating: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// SetReservationBoxStatus records the disposition of a no-show box.
func (q *queries) SetReservationBoxStatus(ctx context.Context, id string, box model.BoxStatus, at time.Time) error {
	ok, err := q.execOne(ctx, `UPDATE reservations SET box_status = ?, updated_at = ? WHERE id = ?`,
		string(box), toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to set box status: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
