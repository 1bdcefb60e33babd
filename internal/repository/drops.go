package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecoplate-api/internal/model"
)

const dropColumns = `id, location, location_detail, drop_date, window_start, window_end,
	total_boxes, remaining_boxes, reserved_boxes, price_min, price_max,
	description, image_ref, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDrop(row rowScanner) (*model.Drop, error) {
	var d model.Drop
	var loc string
	var created int64
	err := row.Scan(&d.ID, &loc, &d.LocationDetail, &d.Date, &d.WindowStart, &d.WindowEnd,
		&d.TotalBoxes, &d.RemainingBoxes, &d.ReservedBoxes, &d.PriceMin, &d.PriceMax,
		&d.Description, &d.ImageRef, &created)
	if err != nil {
		return nil, err
	}
	d.Location = model.Location(loc)
	d.CreatedAt = fromMillis(created)
	return &d, nil
}

// InsertDrop stores a new drop.
func (q *queries) InsertDrop(ctx context.Context, d *model.Drop) error {
	_, err := q.exec(ctx, `INSERT INTO drops (`+dropColumns+`) VALUES (`+placeholders(14)+`)`,
		d.ID, string(d.Location), d.LocationDetail, d.Date, d.WindowStart, d.WindowEnd,
		d.TotalBoxes, d.RemainingBoxes, d.ReservedBoxes, d.PriceMin, d.PriceMax,
		d.Description, d.ImageRef, toMillis(d.CreatedAt))
	if err != nil {
		if IsDuplicateKeyErr(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert drop: %w", err)
	}
	return nil
}

// GetDrop loads one drop by ID.
func (q *queries) GetDrop(ctx context.Context, id string) (*model.Drop, error) {
	d, err := scanDrop(q.queryRow(ctx, `SELECT `+dropColumns+` FROM drops WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get drop: %w", err)
	}
	return d, nil
}

// ListDrops returns every drop, newest date first and earliest window first
// within a date.
func (q *queries) ListDrops(ctx context.Context) ([]*model.Drop, error) {
	rows, err := q.query(ctx, `SELECT `+dropColumns+` FROM drops
		ORDER BY drop_date DESC, window_start ASC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list drops: %w", err)
	}
	defer rows.Close()

	drops := []*model.Drop{}
	for rows.Next() {
		d, err := scanDrop(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan drop: %w", err)
		}
		drops = append(drops, d)
	}
	return drops, rows.Err()
}

// TakeBox decrements remaining and increments reserved in one statement.
func (q *queries) TakeBox(ctx context.Context, dropID string) (bool, error) {
	ok, err := q.execOne(ctx, `UPDATE drops
		SET remaining_boxes = remaining_boxes - 1, reserved_boxes = reserved_boxes + 1
		WHERE id = ? AND remaining_boxes > 0`, dropID)
	if err != nil {
		return false, fmt.Errorf("failed to take box: %w", err)
	}
	return ok, nil
}

// ReturnBox is the inverse of TakeBox.
func (q *queries) ReturnBox(ctx context.Context, dropID string) (bool, error) {
	ok, err := q.execOne(ctx, `UPDATE drops
		SET remaining_boxes = remaining_boxes + 1, reserved_boxes = reserved_boxes - 1
		WHERE id = ? AND reserved_boxes > 0`, dropID)
	if err != nil {
		return false, fmt.Errorf("failed to return box: %w", err)
	}
	return ok, nil
}
