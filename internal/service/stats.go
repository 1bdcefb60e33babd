package service

import (
	"context"
	"math"

	"ecoplate-api/internal/model"
)

// dailyRollupDays is how many days of rollups the admin view shows.
const dailyRollupDays = 30

// suggestRaiseWeeks is the streak of weeks above 85% pickup that suggests
// raising a location's daily cap.
const suggestRaiseWeeks = 2

// StatsService reads the running aggregates. Writes happen inside the
// transactions of the operations that produce them.
type StatsService struct {
	d Deps
}

// NewStatsService creates a stats reader.
func NewStatsService(d Deps) *StatsService {
	return &StatsService{d: d.withDefaults()}
}

// Snapshot returns totals, derived rates, location caps and daily rollups.
func (s *StatsService) Snapshot(ctx context.Context) (*model.StatsSnapshot, error) {
	c, err := s.d.Store.GetStatsCounters(ctx)
	if err != nil {
		return nil, err
	}
	caps, err := s.d.Store.ListLocationCaps(ctx)
	if err != nil {
		return nil, err
	}
	for i := range caps {
		caps[i].SuggestRaise = caps[i].ConsecutiveWeeksAbove85 >= suggestRaiseWeeks
	}
	daily, err := s.d.Store.ListDailyRollups(ctx, dailyRollupDays)
	if err != nil {
		return nil, err
	}

	return &model.StatsSnapshot{
		TotalDrops:         c.TotalDrops,
		TotalBoxesPosted:   c.TotalBoxesPosted,
		TotalBoxesPickedUp: c.TotalBoxesPickedUp,
		TotalReservations:  c.TotalReservations,
		TotalNoShows:       c.TotalNoShows,
		PickupRate:         pickupRate(c.TotalBoxesPickedUp, c.TotalBoxesPosted),
		NoShowRate:         noShowRate(c.TotalNoShows, c.TotalReservations),
		AvgRating:          c.AvgRating,
		LocationCaps:       caps,
		Daily:              daily,
	}, nil
}

// pickupRate is a whole percentage.
func pickupRate(pickedUp, posted int64) float64 {
	if posted == 0 {
		return 0
	}
	return math.Round(float64(pickedUp) / float64(posted) * 100)
}

// noShowRate is a percentage with one decimal.
func noShowRate(noShows, reservations int64) float64 {
	if reservations == 0 {
		return 0
	}
	return math.Round(float64(noShows)/float64(reservations)*1000) / 10
}
