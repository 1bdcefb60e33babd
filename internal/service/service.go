// Package service holds the reservation and redemption engine: inventory,
// reservations, pickup codes, accounts, waitlists, no-shows and stats.
// Every mutation runs under per-key locks and inside one store transaction.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ecoplate-api/internal/cache"
	"ecoplate-api/internal/events"
	"ecoplate-api/internal/keylock"
	"ecoplate-api/internal/metrics"
	"ecoplate-api/internal/model"
	"ecoplate-api/internal/pricing"
	"ecoplate-api/internal/repository"
	"ecoplate-api/internal/schedule"
)

// Deps are shared by every service. Only Store is required.
type Deps struct {
	Store      repository.Store
	Cache      cache.Cache
	Publisher  events.Publisher
	AttemptLog repository.AttemptLog
	Metrics    *metrics.Metrics
	Locks      *keylock.Map
	Log        *zap.Logger
	Location   *time.Location
	Now        func() time.Time
	CacheTTL   time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Locks == nil {
		d.Locks = keylock.New()
	}
	if d.Publisher == nil {
		d.Publisher = events.NewLogPublisher(d.Log)
	}
	if d.AttemptLog == nil {
		d.AttemptLog = repository.NewMemoryAttemptLog(0)
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = 30 * time.Second
	}
	return d
}

// Services bundles every component over one set of dependencies.
type Services struct {
	Drops        *DropService
	Reservations *ReservationService
	Redemptions  *RedemptionService
	Accounts     *AccountService
	NoShows      *NoShowService
	Waitlist     *WaitlistService
	Stats        *StatsService
}

// New wires every service. The services share locks, so a cancel and a
// reserve on the same drop serialize even across components.
func New(d Deps) *Services {
	d = d.withDefaults()
	drops := NewDropService(d)
	accounts := NewAccountService(d)
	return &Services{
		Drops:        drops,
		Reservations: NewReservationService(d, drops, accounts),
		Redemptions:  NewRedemptionService(d),
		Accounts:     accounts,
		NoShows:      NewNoShowService(d),
		Waitlist:     NewWaitlistService(d),
		Stats:        NewStatsService(d),
	}
}

// decorate fills in the derived status and live price of a drop.
func decorate(d *model.Drop, now time.Time, loc *time.Location) *model.Drop {
	d.Status = schedule.DropStatus(d, now, loc)
	d.CurrentPrice = pricing.Price(pricing.Inputs{
		TotalBoxes:     d.TotalBoxes,
		RemainingBoxes: d.RemainingBoxes,
		ReservedBoxes:  d.ReservedBoxes,
		PriceMin:       d.PriceMin,
		PriceMax:       d.PriceMax,
	})
	return d
}

// lockedTx runs fn in one transaction while holding keys. The locks are
// released before the caller publishes or audits anything.
func (d Deps) lockedTx(ctx context.Context, keys []string, fn func(q repository.Querier) error) error {
	unlock := d.Locks.LockAll(keys...)
	defer unlock()
	return d.Store.WithTx(ctx, fn)
}

// publish sends an event after commit. Delivery failures never fail the
// operation that produced the event.
func publish(ctx context.Context, d Deps, name string, payload any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := d.Publisher.Publish(ctx, name, payload); err != nil {
		d.Log.Warn("event not published", zap.String("event", name), zap.Error(err))
	}
}

func reservationPayload(r *model.Reservation) events.ReservationPayload {
	return events.ReservationPayload{
		ReservationID: r.ID,
		DropID:        r.DropID,
		SessionID:     r.SessionID,
		Location:      string(r.Location),
		Status:        string(r.Status),
		PaymentMethod: string(r.PaymentMethod),
		Price:         r.CurrentPrice,
		BoxStatus:     string(r.BoxStatus),
	}
}
