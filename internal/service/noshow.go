package service

import (
	"context"
	"time"

	"ecoplate-api/internal/model"
	"ecoplate-api/internal/repository"
	"ecoplate-api/internal/schedule"
)

// NoShowService derives no-show candidates on demand. It never changes state.
type NoShowService struct {
	d Deps
}

// NewNoShowService creates a no-show detector.
func NewNoShowService(d Deps) *NoShowService {
	return &NoShowService{d: d.withDefaults()}
}

// ListNoShows returns every reserved reservation whose pickup window has
// ended, plus every reservation already marked no-show.
func (s *NoShowService) ListNoShows(ctx context.Context) ([]*model.NoShowEntry, error) {
	list, err := s.d.Store.ListReservations(ctx, repository.ReservationFilter{
		Statuses: []model.ReservationStatus{model.ReservationReserved, model.ReservationNoShow},
	})
	if err != nil {
		return nil, err
	}

	now := s.d.Now()
	var picked []*model.Reservation
	sessions := make([]string, 0, len(list))
	seen := make(map[string]struct{})
	for _, r := range list {
		if r.Status == model.ReservationReserved && !windowEnded(r, now, s.d.Location) {
			continue
		}
		picked = append(picked, r)
		if _, ok := seen[r.SessionID]; !ok {
			seen[r.SessionID] = struct{}{}
			sessions = append(sessions, r.SessionID)
		}
	}

	counts, err := s.d.Store.NoShowCounts(ctx, sessions)
	if err != nil {
		return nil, err
	}

	out := make([]*model.NoShowEntry, 0, len(picked))
	for _, r := range picked {
		n := counts[r.SessionID]
		out = append(out, &model.NoShowEntry{
			Reservation:    r,
			WindowEnded:    windowEnded(r, now, s.d.Location),
			Resolved:       r.Status == model.ReservationNoShow,
			NoShowCount:    n,
			RepeatOffender: n >= model.RepeatOffenderThreshold,
		})
	}
	return out, nil
}

// windowEnded uses the reservation's snapshot of the drop window. A window
// that no longer parses is treated as ended.
func windowEnded(r *model.Reservation, now time.Time, loc *time.Location) bool {
	w, err := schedule.Resolve(r.Date, r.WindowStart, r.WindowEnd, loc)
	if err != nil {
		return true
	}
	return w.Ended(now)
}
