package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ecoplate-api/internal/events"
	"ecoplate-api/internal/keylock"
	"ecoplate-api/internal/model"
	"ecoplate-api/internal/pickup"
	"ecoplate-api/internal/repository"
	"ecoplate-api/internal/schedule"
	"ecoplate-api/pkg/uid"
)

// maxCodeAttempts bounds retries when a generated code is already live.
const maxCodeAttempts = 16

var errCodeSpaceExhausted = errors.New("could not allocate a unique pickup code")

// newCode is swapped in tests to force collisions.
var newCode = pickup.NewCode

// auditTimeout bounds one audit log write.
var auditTimeout = 3 * time.Second

// allocateCode registers a fresh valid code for a reservation inside q's
// transaction. Codes only need to be unique among live codes.
func allocateCode(ctx context.Context, q repository.Querier, reservationID, dropID string, now time.Time) (*model.PickupCode, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := newCode()
		if err != nil {
			return nil, err
		}
		live, err := q.LiveCodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if live {
			continue
		}

		c := &model.PickupCode{
			ID:            uid.New(),
			Code:          code,
			ReservationID: reservationID,
			DropID:        dropID,
			Status:        model.CodeValid,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := q.InsertPickupCode(ctx, c); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return nil, err
		}
		return c, nil
	}
	return nil, errCodeSpaceExhausted
}

// expireCode retires a reservation's code if it is still valid.
func expireCode(ctx context.Context, q repository.Querier, reservationID string, now time.Time) error {
	c, err := q.GetPickupCodeByReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = q.TransitionPickupCode(ctx, c.ID, model.CodeValid, model.CodeExpired, now)
	return err
}

// RedemptionService is the pickup code registry's redeem side.
type RedemptionService struct {
	d   Deps
	log *zap.Logger
}

// NewRedemptionService creates a redemption service.
func NewRedemptionService(d Deps) *RedemptionService {
	d = d.withDefaults()
	return &RedemptionService{d: d, log: d.Log.Named("redemption")}
}

func invalid(reason string) *model.RedemptionResult {
	return &model.RedemptionResult{Valid: false, Reason: reason}
}

func reasonFor(status model.PickupCodeStatus) string {
	if status == model.CodeRedeemed {
		return model.ReasonAlreadyRedeemed
	}
	return model.ReasonExpired
}

// Redeem checks a scanned or typed code and, if valid, flips it to redeemed
// exactly once. Rejections are results, not errors.
func (s *RedemptionService) Redeem(ctx context.Context, raw, requestID string) (*model.RedemptionResult, error) {
	scan, err := pickup.Parse(raw)
	if err != nil {
		result := invalid(model.ReasonNotFound)
		if len(raw) > 64 {
			raw = raw[:64]
		}
		s.record(ctx, raw, result, requestID)
		return result, nil
	}

	now := s.d.Now()
	var result *model.RedemptionResult

	err = s.d.lockedTx(ctx, []string{keylock.Code(scan.Code)}, func(q repository.Querier) error {
		c, err := q.FindPickupCode(ctx, scan.Code)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				result = invalid(model.ReasonNotFound)
				return nil
			}
			return err
		}
		if c.Status != model.CodeValid {
			result = invalid(reasonFor(c.Status))
			return nil
		}

		won, err := q.TransitionPickupCode(ctx, c.ID, model.CodeValid, model.CodeRedeemed, now)
		if err != nil {
			return err
		}
		if !won {
			latest, err := q.FindPickupCode(ctx, scan.Code)
			if err != nil {
				return err
			}
			result = invalid(reasonFor(latest.Status))
			if latest.Status == model.CodeValid {
				result = invalid(model.ReasonAlreadyRedeemed)
			}
			return nil
		}

		res, err := q.GetReservation(ctx, c.ReservationID)
		if err != nil {
			return fmt.Errorf("reservation for code %s: %w", c.Code, err)
		}
		flipped, err := q.TransitionReservation(ctx, res.ID, model.ReservationReserved, model.ReservationPickedUp, now)
		if err != nil {
			return err
		}
		if !flipped {
			return fmt.Errorf("reservation %s is %s but its code was valid", res.ID, res.Status)
		}
		res.Status = model.ReservationPickedUp
		res.UpdatedAt = now

		if err := q.EnsureAccount(ctx, res.SessionID, now); err != nil {
			return err
		}
		if err := q.IncrementPickups(ctx, res.SessionID, now); err != nil {
			return err
		}
		if err := q.AddStats(ctx, schedule.Today(now, s.d.Location), model.StatsDelta{BoxesPickedUp: 1}); err != nil {
			return err
		}

		drop, err := q.GetDrop(ctx, res.DropID)
		if err != nil {
			return err
		}

		result = &model.RedemptionResult{
			Valid:       true,
			Reservation: res,
			Drop:        decorate(drop, now, s.d.Location),
			Location:    drop.Location,
		}
		return nil
	})
	if err != nil {
		s.log.Error("redeem failed", zap.String("code", scan.Code), zap.Error(err))
		return nil, err
	}

	s.record(ctx, scan.Code, result, requestID)
	if result.Valid {
		s.log.Info("code redeemed",
			zap.String("reservation_id", result.Reservation.ID),
			zap.String("location", string(result.Location)))
		publish(ctx, s.d, events.PickupRedeemed, reservationPayload(result.Reservation))
	}
	return result, nil
}

// record appends the attempt to the audit log and counts it.
func (s *RedemptionService) record(ctx context.Context, code string, result *model.RedemptionResult, requestID string) {
	s.d.Metrics.Redemption(result.Valid, result.Reason)

	a := &model.RedemptionAttempt{
		ID:        uid.New(),
		Code:      code,
		Valid:     result.Valid,
		Reason:    result.Reason,
		RequestID: requestID,
		CreatedAt: s.d.Now().UTC(),
	}
	if result.Reservation != nil {
		a.ReservationID = result.Reservation.ID
		a.Location = result.Location
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := s.d.AttemptLog.InsertAttempt(ctx, a); err != nil {
		s.log.Warn("redemption attempt not logged", zap.Error(err))
	}
}

// ListAttempts pages through the audit log, newest first.
func (s *RedemptionService) ListAttempts(ctx context.Context, limit, offset int) ([]model.RedemptionAttempt, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.d.AttemptLog.ListAttempts(ctx, limit, offset)
}
