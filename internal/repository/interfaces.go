package repository

import (
	"context"
	"errors"
	"time"

	"ecoplate-api/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

// Store is the transactional data store behind every service.
type Store interface {
	Querier

	// WithTx runs fn inside one transaction. fn's error rolls it back.
	WithTx(ctx context.Context, fn func(q Querier) error) error

	Dialect() string
	Ping(ctx context.Context) error
	Close() error
}

// ReservationFilter narrows ListReservations. Zero values match everything.
type ReservationFilter struct {
	SessionID string
	DropID    string
	Statuses  []model.ReservationStatus
}

// Querier is the data access surface. It is satisfied both by the store and
// by the handle passed into WithTx.
type Querier interface {
	DropQuerier
	ReservationQuerier
	PickupCodeQuerier
	AccountQuerier
	WaitlistQuerier
	StatsQuerier
}

// DropQuerier reads and writes drops and their box counters.
type DropQuerier interface {
	InsertDrop(ctx context.Context, d *model.Drop) error
	GetDrop(ctx context.Context, id string) (*model.Drop, error)
	ListDrops(ctx context.Context) ([]*model.Drop, error)

	// TakeBox moves one box from remaining to reserved. It reports false when
	// the drop has nothing left.
	TakeBox(ctx context.Context, dropID string) (bool, error)

	// ReturnBox moves one box from reserved back to remaining. It reports
	// false when nothing is reserved.
	ReturnBox(ctx context.Context, dropID string) (bool, error)
}

// ReservationQuerier reads and writes reservations.
type ReservationQuerier interface {
	InsertReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]*model.Reservation, error)
	HasActiveReservation(ctx context.Context, sessionID, dropID string) (bool, error)

	// TransitionReservation moves a reservation from one status to another
	// only if it is still in from. It reports whether the row changed.
	TransitionReservation(ctx context.Context, id string, from, to model.ReservationStatus, at time.Time) (bool, error)

	SetReservationRating(ctx context.Context, id string, rating int, at time.Time) error
	SetReservationBoxStatus(ctx context.Context, id string, box model.BoxStatus, at time.Time) error
}

// PickupCodeQuerier reads and writes the pickup code registry.
type PickupCodeQuerier interface {
	InsertPickupCode(ctx context.Context, c *model.PickupCode) error
	LiveCodeExists(ctx context.Context, code string) (bool, error)

	// FindPickupCode returns the valid entry for code if there is one, else
	// the most recently touched terminal entry.
	FindPickupCode(ctx context.Context, code string) (*model.PickupCode, error)
	GetPickupCodeByReservation(ctx context.Context, reservationID string) (*model.PickupCode, error)

	// TransitionPickupCode moves a code out of from. It reports whether the
	// row changed.
	TransitionPickupCode(ctx context.Context, id string, from, to model.PickupCodeStatus, at time.Time) (bool, error)
}

// AccountQuerier reads and writes per-session accounts.
type AccountQuerier interface {
	GetAccount(ctx context.Context, sessionID string) (*model.UserAccount, error)

	// EnsureAccount inserts the default row for sessionID if none exists.
	EnsureAccount(ctx context.Context, sessionID string, at time.Time) error
	SaveAccount(ctx context.Context, a *model.UserAccount) error

	// DebitCredit takes one credit, never going below zero. It reports
	// whether a credit was taken.
	DebitCredit(ctx context.Context, sessionID string, at time.Time) (bool, error)
	RefundCredit(ctx context.Context, sessionID string, at time.Time) error

	// SaveCard records a card only on the first call for the session.
	SaveCard(ctx context.Context, sessionID, last4 string, at time.Time) (bool, error)
	MarkReturning(ctx context.Context, sessionID string, at time.Time) error
	IncrementPickups(ctx context.Context, sessionID string, at time.Time) error
	IncrementNoShows(ctx context.Context, sessionID string, at time.Time) (int, error)
	NoShowCounts(ctx context.Context, sessionIDs []string) (map[string]int, error)
}

// WaitlistQuerier reads and writes waitlist entries.
type WaitlistQuerier interface {
	// InsertWaitlistEntry reports false when the session is already listed.
	InsertWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) (bool, error)
	ListWaitlist(ctx context.Context, dropID string) ([]*model.WaitlistEntry, error)
	MarkWaitlistNotified(ctx context.Context, dropID string) error
}

// StatsQuerier reads and writes the running aggregates.
type StatsQuerier interface {
	GetStatsCounters(ctx context.Context) (*model.StatsCounters, error)
	// LockStatsCounters is GetStatsCounters holding the row for the rest of
	// the transaction.
	LockStatsCounters(ctx context.Context) (*model.StatsCounters, error)
	AddStats(ctx context.Context, day string, delta model.StatsDelta) error
	SetAvgRating(ctx context.Context, avg float64) error
	ListDailyRollups(ctx context.Context, limit int) ([]model.DailyRollup, error)
	UpsertLocationCap(ctx context.Context, c *model.LocationCap) error
	ListLocationCaps(ctx context.Context) ([]model.LocationCap, error)
}

// AttemptLog is the append-only audit trail of redeem calls.
type AttemptLog interface {
	InsertAttempt(ctx context.Context, a *model.RedemptionAttempt) error
	ListAttempts(ctx context.Context, limit, offset int) ([]model.RedemptionAttempt, int64, error)
	Close() error
}
