package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"ecoplate-api/internal/events"
	"ecoplate-api/internal/keylock"
	"ecoplate-api/internal/metrics"
	"ecoplate-api/internal/model"
	"ecoplate-api/internal/pricing"
	"ecoplate-api/internal/repository"
	"ecoplate-api/internal/schedule"
	"ecoplate-api/pkg/uid"
)

// ReservationService is the reservation state machine.
type ReservationService struct {
	d        Deps
	drops    *DropService
	accounts *AccountService
	log      *zap.Logger
}

// NewReservationService creates a reservation service that moves box
// counters through drops and credits through accounts.
func NewReservationService(d Deps, drops *DropService, accounts *AccountService) *ReservationService {
	d = d.withDefaults()
	return &ReservationService{d: d, drops: drops, accounts: accounts, log: d.Log.Named("reservation")}
}

func validCardLast4(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Create reserves one box of a drop for a session.
func (s *ReservationService) Create(ctx context.Context, in model.CreateReservationInput) (*model.ReservationWithDrop, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.DropID = strings.TrimSpace(in.DropID)
	in.CardLast4 = strings.TrimSpace(in.CardLast4)

	switch {
	case in.SessionID == "":
		s.d.Metrics.Reservation(metrics.ReserveInvalid)
		return nil, validationf("session id is required")
	case in.DropID == "":
		s.d.Metrics.Reservation(metrics.ReserveInvalid)
		return nil, validationf("drop id is required")
	case !in.PaymentMethod.Valid():
		s.d.Metrics.Reservation(metrics.ReserveInvalid)
		return nil, validationf("payment_method must be card, credit or pay_at_pickup")
	case in.CardLast4 != "" && !validCardLast4(in.CardLast4):
		s.d.Metrics.Reservation(metrics.ReserveInvalid)
		return nil, validationf("card_last4 must be 4 digits")
	}

	now := s.d.Now()
	var res *model.Reservation
	var drop *model.Drop

	keys := []string{keylock.Session(in.SessionID), keylock.Drop(in.DropID)}
	err := s.d.lockedTx(ctx, keys, func(q repository.Querier) error {
		before, err := q.GetDrop(ctx, in.DropID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("drop")
			}
			return err
		}

		active, err := q.HasActiveReservation(ctx, in.SessionID, in.DropID)
		if err != nil {
			return err
		}
		if active {
			return ErrDuplicateActiveReservation
		}

		// priced on the counters the customer saw, before this box is taken
		price := pricing.Price(pricing.Inputs{
			TotalBoxes:     before.TotalBoxes,
			RemainingBoxes: before.RemainingBoxes,
			ReservedBoxes:  before.ReservedBoxes,
			PriceMin:       before.PriceMin,
			PriceMax:       before.PriceMax,
		})

		drop, err = s.drops.DecrementAvailable(ctx, q, in.DropID)
		if err != nil {
			return err
		}

		res = &model.Reservation{
			ID:             uid.New(),
			DropID:         drop.ID,
			SessionID:      in.SessionID,
			Location:       drop.Location,
			LocationDetail: drop.LocationDetail,
			Date:           drop.Date,
			WindowStart:    drop.WindowStart,
			WindowEnd:      drop.WindowEnd,
			ImageRef:       drop.ImageRef,
			Status:         model.ReservationReserved,
			PaymentMethod:  in.PaymentMethod,
			CurrentPrice:   price,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		code, err := allocateCode(ctx, q, res.ID, res.DropID, now)
		if err != nil {
			return err
		}
		res.PickupCode = code.Code

		if err := q.InsertReservation(ctx, res); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateActiveReservation
			}
			return err
		}

		if in.PaymentMethod == model.PaymentCredit {
			// an empty balance is not an error; the debit floors at zero
			if _, err := s.accounts.DebitCredit(ctx, q, in.SessionID); err != nil {
				return err
			}
		}
		if in.CardLast4 != "" {
			if _, err := s.accounts.RecordCard(ctx, q, in.SessionID, in.CardLast4); err != nil {
				return err
			}
		}
		if err := s.accounts.MarkReturning(ctx, q, in.SessionID); err != nil {
			return err
		}

		return q.AddStats(ctx, schedule.Today(now, s.d.Location), model.StatsDelta{Reservations: 1})
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSoldOut):
			s.d.Metrics.Reservation(metrics.ReserveSoldOut)
		case errors.Is(err, ErrDuplicateActiveReservation):
			s.d.Metrics.Reservation(metrics.ReserveDuplicate)
		case errors.Is(err, ErrNotFound):
			s.d.Metrics.Reservation(metrics.ReserveInvalid)
		default:
			s.d.Metrics.Reservation(metrics.ReserveError)
			s.log.Error("reserve failed", zap.String("drop_id", in.DropID), zap.Error(err))
		}
		return nil, err
	}

	s.d.Metrics.Reservation(metrics.ReserveCreated)
	s.drops.invalidate(ctx)
	s.log.Info("reservation created",
		zap.String("reservation_id", res.ID),
		zap.String("drop_id", res.DropID),
		zap.Int("remaining", drop.RemainingBoxes))
	publish(ctx, s.d, events.ReservationCreated, reservationPayload(res))

	return &model.ReservationWithDrop{Reservation: res, Drop: decorate(drop, now, s.d.Location)}, nil
}

// Cancel releases an active reservation's box back to its drop.
func (s *ReservationService) Cancel(ctx context.Context, id string) (*model.Reservation, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.d.Now()
	var res *model.Reservation
	var drop *model.Drop
	var released bool
	var waiting []string

	keys := []string{keylock.Reservation(id), keylock.Drop(current.DropID), keylock.Session(current.SessionID)}
	err = s.d.lockedTx(ctx, keys, func(q repository.Querier) error {
		var err error
		res, err = q.GetReservation(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("reservation")
			}
			return err
		}

		ok, err := q.TransitionReservation(ctx, id, model.ReservationReserved, model.ReservationCancelled, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotActive
		}

		if err := expireCode(ctx, q, id, now); err != nil {
			return err
		}

		before, err := q.GetDrop(ctx, res.DropID)
		if err != nil {
			return err
		}
		drop, err = s.drops.IncrementAvailable(ctx, q, res.DropID)
		if err != nil {
			return err
		}
		released = before.SoldOut() && !drop.SoldOut()

		if res.PaymentMethod == model.PaymentCredit {
			if err := s.accounts.CreditBack(ctx, q, res.SessionID); err != nil {
				return err
			}
		}

		if err := q.AddStats(ctx, schedule.Today(now, s.d.Location), model.StatsDelta{Cancellations: 1}); err != nil {
			return err
		}

		if released {
			entries, err := q.ListWaitlist(ctx, res.DropID)
			if err != nil {
				return err
			}
			for _, e := range entries {
				waiting = append(waiting, e.SessionID)
			}
			if len(waiting) > 0 {
				if err := q.MarkWaitlistNotified(ctx, res.DropID); err != nil {
					return err
				}
			}
		}

		res.Status = model.ReservationCancelled
		res.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.d.Metrics.Cancellation()
	s.drops.invalidate(ctx)
	s.log.Info("reservation cancelled", zap.String("reservation_id", id), zap.String("drop_id", res.DropID))
	publish(ctx, s.d, events.ReservationCancelled, reservationPayload(res))
	if released && len(waiting) > 0 {
		publish(ctx, s.d, events.CapacityReleased, events.CapacityReleasedPayload{
			DropID:         drop.ID,
			Location:       string(drop.Location),
			RemainingBoxes: drop.RemainingBoxes,
			Sessions:       waiting,
		})
	}

	return res, nil
}

// Rate attaches a 1-5 rating, counts a pickup for the session and feeds the
// running average. The average's denominator is the pickup count, not a
// rating count.
func (s *ReservationService) Rate(ctx context.Context, id, sessionID string, rating int) (*model.Reservation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if rating < 1 || rating > 5 {
		return nil, validationf("rating must be between 1 and 5")
	}
	if sessionID == "" {
		return nil, validationf("session id is required")
	}

	now := s.d.Now()
	var res *model.Reservation

	err := s.d.lockedTx(ctx, []string{keylock.Reservation(id), keylock.Session(sessionID)}, func(q repository.Querier) error {
		var err error
		res, err = q.GetReservation(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("reservation")
			}
			return err
		}

		if err := q.SetReservationRating(ctx, id, rating, now); err != nil {
			return err
		}
		if err := q.EnsureAccount(ctx, sessionID, now); err != nil {
			return err
		}
		if err := q.IncrementPickups(ctx, sessionID, now); err != nil {
			return err
		}

		c, err := q.LockStatsCounters(ctx)
		if err != nil {
			return err
		}
		if err := q.SetAvgRating(ctx, nextAvgRating(c.AvgRating, c.TotalBoxesPickedUp, rating)); err != nil {
			return err
		}

		res.Rating = &rating
		res.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// nextAvgRating folds one rating into a running mean rounded to one decimal.
func nextAvgRating(prevAvg float64, prevCount int64, rating int) float64 {
	if prevCount < 0 {
		prevCount = 0
	}
	mean := (prevAvg*float64(prevCount) + float64(rating)) / float64(prevCount+1)
	return math.Round(mean*10) / 10
}

// MarkNoShow records that a reserved box was never collected. The box is not
// returned to the drop. Re-marking a no-show only updates the disposition.
func (s *ReservationService) MarkNoShow(ctx context.Context, id string, box model.BoxStatus) (*model.Reservation, error) {
	if !box.Valid() {
		return nil, validationf("box_status must be released, donated or disposed")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.d.Now()
	var res *model.Reservation
	var transitioned bool

	keys := []string{keylock.Reservation(id), keylock.Drop(current.DropID), keylock.Session(current.SessionID)}
	err = s.d.lockedTx(ctx, keys, func(q repository.Querier) error {
		r, err := q.GetReservation(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("reservation")
			}
			return err
		}

		switch r.Status {
		case model.ReservationReserved:
			ok, err := q.TransitionReservation(ctx, id, model.ReservationReserved, model.ReservationNoShow, now)
			if err != nil {
				return err
			}
			if !ok {
				return ErrNotActive
			}
			if err := expireCode(ctx, q, id, now); err != nil {
				return err
			}
			if err := q.EnsureAccount(ctx, r.SessionID, now); err != nil {
				return err
			}
			if _, err := q.IncrementNoShows(ctx, r.SessionID, now); err != nil {
				return err
			}
			if err := q.AddStats(ctx, schedule.Today(now, s.d.Location), model.StatsDelta{NoShows: 1}); err != nil {
				return err
			}
			transitioned = true
		case model.ReservationNoShow:
		default:
			return ErrNotActive
		}

		if err := q.SetReservationBoxStatus(ctx, id, box, now); err != nil {
			return err
		}

		res, err = q.GetReservation(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		s.d.Metrics.NoShow()
		s.log.Info("reservation marked no-show",
			zap.String("reservation_id", id),
			zap.String("box_status", string(box)))
		publish(ctx, s.d, events.ReservationNoShow, reservationPayload(res))
	}
	return res, nil
}

// List returns reservations newest first. An empty session lists everyone's.
func (s *ReservationService) List(ctx context.Context, sessionID string) ([]*model.Reservation, error) {
	return s.d.Store.ListReservations(ctx, repository.ReservationFilter{SessionID: strings.TrimSpace(sessionID)})
}

// Get loads one reservation.
func (s *ReservationService) Get(ctx context.Context, id string) (*model.Reservation, error) {
	r, err := s.d.Store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("reservation")
		}
		return nil, err
	}
	return r, nil
}
