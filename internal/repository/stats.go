package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecoplate-api/internal/model"
)

// statsRowID keys the single running-totals row.
const statsRowID = "global"

// GetStatsCounters reads the running totals.
func (q *queries) GetStatsCounters(ctx context.Context) (*model.StatsCounters, error) {
	return q.readStatsCounters(ctx, "")
}

// LockStatsCounters reads the running totals and holds the row until the
// transaction ends, so a read-modify-write of avg_rating cannot lose an
// update to another instance.
func (q *queries) LockStatsCounters(ctx context.Context) (*model.StatsCounters, error) {
	return q.readStatsCounters(ctx, q.d.forUpdate())
}

func (q *queries) readStatsCounters(ctx context.Context, suffix string) (*model.StatsCounters, error) {
	var c model.StatsCounters
	err := q.queryRow(ctx, `SELECT total_drops, total_boxes_posted, total_boxes_picked_up,
		total_reservations, total_no_shows, avg_rating FROM stats_totals WHERE id = ?`+suffix, statsRowID).
		Scan(&c.TotalDrops, &c.TotalBoxesPosted, &c.TotalBoxesPickedUp, &c.TotalReservations, &c.TotalNoShows, &c.AvgRating)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.StatsCounters{}, nil
		}
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	return &c, nil
}

// AddStats applies delta to the running totals and to day's rollup.
func (q *queries) AddStats(ctx context.Context, day string, delta model.StatsDelta) error {
	_, err := q.exec(ctx, `UPDATE stats_totals SET
		total_drops = total_drops + ?,
		total_boxes_posted = total_boxes_posted + ?,
		total_boxes_picked_up = total_boxes_picked_up + ?,
		total_reservations = total_reservations + ?,
		total_no_shows = total_no_shows + ?
		WHERE id = ?`,
		delta.Drops, delta.BoxesPosted, delta.BoxesPickedUp, delta.Reservations, delta.NoShows, statsRowID)
	if err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	if day == "" {
		return nil
	}
	if _, err := q.exec(ctx, q.d.insertIgnore("stats_daily",
		"day, drops, boxes_posted, reservations, pickups, no_shows, cancellations", 7),
		day, 0, 0, 0, 0, 0, 0); err != nil {
		return fmt.Errorf("failed to create daily rollup: %w", err)
	}
	_, err = q.exec(ctx, `UPDATE stats_daily SET
		drops = drops + ?,
		boxes_posted = boxes_posted + ?,
		reservations = reservations + ?,
		pickups = pickups + ?,
		no_shows = no_shows + ?,
		cancellations = cancellations + ?
		WHERE day = ?`,
		delta.Drops, delta.BoxesPosted, delta.Reservations, delta.BoxesPickedUp, delta.NoShows, delta.Cancellations, day)
	if err != nil {
		return fmt.Errorf("failed to update daily rollup: %w", err)
	}
	return nil
}

// SetAvgRating overwrites the running average rating.
func (q *queries) SetAvgRating(ctx context.Context, avg float64) error {
	if _, err := q.exec(ctx, `UPDATE stats_totals SET avg_rating = ? WHERE id = ?`, avg, statsRowID); err != nil {
		return fmt.Errorf("failed to set avg rating: %w", err)
	}
	return nil
}

// ListDailyRollups returns the most recent days first.
func (q *queries) ListDailyRollups(ctx context.Context, limit int) ([]model.DailyRollup, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := q.query(ctx, `SELECT day, drops, boxes_posted, reservations, pickups, no_shows, cancellations
		FROM stats_daily ORDER BY day DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily rollups: %w", err)
	}
	defer rows.Close()

	out := []model.DailyRollup{}
	for rows.Next() {
		var r model.DailyRollup
		if err := rows.Scan(&r.Day, &r.Drops, &r.BoxesPosted, &r.Reservations, &r.Pickups, &r.NoShows, &r.Cancellations); err != nil {
			return nil, fmt.Errorf("failed to scan daily rollup: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertLocationCap stores the latest cap settings for a location.
func (q *queries) UpsertLocationCap(ctx context.Context, c *model.LocationCap) error {
	if _, err := q.exec(ctx, q.d.insertIgnore("location_caps",
		"location, daily_cap, consecutive_weeks_above_85, updated_at", 4),
		string(c.Location), c.DailyCap, c.ConsecutiveWeeksAbove85, toMillis(c.UpdatedAt)); err != nil {
		return fmt.Errorf("failed to insert location cap: %w", err)
	}
	if _, err := q.exec(ctx, `UPDATE location_caps SET daily_cap = ?, consecutive_weeks_above_85 = ?, updated_at = ?
		WHERE location = ?`, c.DailyCap, c.ConsecutiveWeeksAbove85, toMillis(c.UpdatedAt), string(c.Location)); err != nil {
		return fmt.Errorf("failed to update location cap: %w", err)
	}
	return nil
}

// ListLocationCaps returns every stored cap ordered by location.
func (q *queries) ListLocationCaps(ctx context.Context) ([]model.LocationCap, error) {
	rows, err := q.query(ctx, `SELECT location, daily_cap, consecutive_weeks_above_85, updated_at
		FROM location_caps ORDER BY location ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list location caps: %w", err)
	}
	defer rows.Close()

	out := []model.LocationCap{}
	for rows.Next() {
		var c model.LocationCap
		var loc string
		var updated int64
		if err := rows.Scan(&loc, &c.DailyCap, &c.ConsecutiveWeeksAbove85, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan location cap: %w", err)
		}
		c.Location = model.Location(loc)
		c.UpdatedAt = fromMillis(updated)
		out = append(out, c)
	}
	return out, rows.Err()
}
