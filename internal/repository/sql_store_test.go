package repository

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecoplate-api/internal/model"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLStore(context.Background(), Options{
		Dialect: DialectSQLite,
		Path:    filepath.Join(t.TempDir(), "test.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func seedDrop(t *testing.T, s *SQLStore, id string, boxes int) *model.Drop {
	t.Helper()
	d := &model.Drop{
		ID:             id,
		Location:       model.LocationSouthHall,
		LocationDetail: "Lobby",
		Date:           "2026-10-15",
		WindowStart:    "17:00",
		WindowEnd:      "19:00",
		TotalBoxes:     boxes,
		RemainingBoxes: boxes,
		PriceMin:       3,
		PriceMax:       6,
		CreatedAt:      testNow,
	}
	require.NoError(t, s.InsertDrop(context.Background(), d))
	return d
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = $2", dialect(DialectPostgres).rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ? AND b = ?", dialect(DialectMySQL).rebind("a = ? AND b = ?"))
}

func TestInsertIgnore(t *testing.T) {
	assert.Equal(t, "INSERT OR IGNORE INTO t (a, b) VALUES (?, ?)", dialect(DialectSQLite).insertIgnore("t", "a, b", 2))
	assert.Equal(t, "INSERT IGNORE INTO t (a) VALUES (?)", dialect(DialectMySQL).insertIgnore("t", "a", 1))
	assert.Equal(t, "INSERT INTO t (a) VALUES (?) ON CONFLICT DO NOTHING", dialect(DialectPostgres).insertIgnore("t", "a", 1))
}

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	dsn := PostgresDSN("db.internal", 5432, "app@campus", "p:ss/w?rd#1", "ecoplate", "require")

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "app@campus", u.User.Username())
	pass, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p:ss/w?rd#1", pass)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/ecoplate", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestForUpdate(t *testing.T) {
	assert.Empty(t, dialect(DialectSQLite).forUpdate())
	assert.Equal(t, " FOR UPDATE", dialect(DialectPostgres).forUpdate())
	assert.Equal(t, " FOR UPDATE", dialect(DialectMySQL).forUpdate())
}

func TestDropRoundTripAndBoxCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDrop(t, s, "d1", 2)

	got, err := s.GetDrop(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.LocationSouthHall, got.Location)
	assert.Equal(t, testNow, got.CreatedAt)

	for i := 0; i < 2; i++ {
		ok, err := s.TakeBox(ctx, "d1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := s.TakeBox(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, ok, "no box left")

	ok, err = s.ReturnBox(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = s.GetDrop(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.RemainingBoxes)
	assert.Equal(t, 1, got.ReservedBoxes)

	_, err = s.GetDrop(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveKeyAllowsOnlyOneReservedPerSessionAndDrop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDrop(t, s, "d1", 5)

	r := &model.Reservation{
		ID: "r1", DropID: "d1", SessionID: "s1", Location: model.LocationSouthHall,
		PickupCode: "ABCDEF", Status: model.ReservationReserved, PaymentMethod: model.PaymentCard,
		CurrentPrice: 5, CreatedAt: testNow, UpdatedAt: testNow,
	}
	require.NoError(t, s.InsertReservation(ctx, r))

	has, err := s.HasActiveReservation(ctx, "s1", "d1")
	require.NoError(t, err)
	assert.True(t, has)

	dup := *r
	dup.ID = "r2"
	assert.ErrorIs(t, s.InsertReservation(ctx, &dup), ErrDuplicate)

	ok, err := s.TransitionReservation(ctx, "r1", model.ReservationReserved, model.ReservationCancelled, testNow)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TransitionReservation(ctx, "r1", model.ReservationReserved, model.ReservationPickedUp, testNow)
	require.NoError(t, err)
	assert.False(t, ok, "already terminal")

	require.NoError(t, s.InsertReservation(ctx, &dup), "key released by the transition")

	list, err := s.ListReservations(ctx, ReservationFilter{SessionID: "s1", Statuses: []model.ReservationStatus{model.ReservationReserved}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r2", list[0].ID)
}

func TestPickupCodeRegistry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &model.PickupCode{ID: "c1", Code: "ABCDEF", ReservationID: "r1", DropID: "d1",
		Status: model.CodeValid, CreatedAt: testNow, UpdatedAt: testNow}
	require.NoError(t, s.InsertPickupCode(ctx, c))

	live, err := s.LiveCodeExists(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.True(t, live)

	clash := *c
	clash.ID, clash.ReservationID = "c2", "r2"
	assert.ErrorIs(t, s.InsertPickupCode(ctx, &clash), ErrDuplicate)

	ok, err := s.TransitionPickupCode(ctx, "c1", model.CodeValid, model.CodeRedeemed, testNow)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TransitionPickupCode(ctx, "c1", model.CodeValid, model.CodeExpired, testNow)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.FindPickupCode(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, model.CodeRedeemed, got.Status)

	// a retired code may be reissued
	require.NoError(t, s.InsertPickupCode(ctx, &clash))
	got, err = s.FindPickupCode(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "c2", got.ID)

	_, err = s.FindPickupCode(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetAccount(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.EnsureAccount(ctx, "s1", testNow))
	require.NoError(t, s.EnsureAccount(ctx, "s1", testNow))

	a, err := s.GetAccount(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, a.IsFirstTime)
	assert.Nil(t, a.Membership)

	a.Membership = &model.Membership{Plan: "basic", MonthlyPrice: 20, CreditsPerMonth: 5}
	a.CreditsRemaining = 1
	require.NoError(t, s.SaveAccount(ctx, a))

	ok, err := s.DebitCredit(ctx, "s1", testNow)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DebitCredit(ctx, "s1", testNow)
	require.NoError(t, err)
	assert.False(t, ok, "floors at zero")

	ok, err = s.SaveCard(ctx, "s1", "4242", testNow)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.SaveCard(ctx, "s1", "1111", testNow)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.IncrementNoShows(ctx, "s1", testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	a, err = s.GetAccount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, a.CreditsRemaining)
	assert.Equal(t, "4242", a.CardLast4)
	require.NotNil(t, a.Membership)
	assert.Equal(t, "basic", a.Membership.Plan)

	counts, err := s.NoShowCounts(ctx, []string{"s1", "nobody"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"s1": 1}, counts)
}

func TestWaitlistIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := &model.WaitlistEntry{ID: "w1", DropID: "d1", SessionID: "s1", CreatedAt: testNow}
	ok, err := s.InsertWaitlistEntry(ctx, e)
	require.NoError(t, err)
	assert.True(t, ok)

	e2 := *e
	e2.ID = "w2"
	ok, err = s.InsertWaitlistEntry(ctx, &e2)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := s.ListWaitlist(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStatsAndRollups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddStats(ctx, "2026-10-15", model.StatsDelta{Drops: 1, BoxesPosted: 10}))
	require.NoError(t, s.AddStats(ctx, "2026-10-15", model.StatsDelta{Reservations: 1}))
	require.NoError(t, s.AddStats(ctx, "2026-10-16", model.StatsDelta{BoxesPickedUp: 1, Cancellations: 1}))
	require.NoError(t, s.SetAvgRating(ctx, 4.5))

	c, err := s.GetStatsCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.TotalDrops)
	assert.Equal(t, int64(10), c.TotalBoxesPosted)
	assert.Equal(t, int64(1), c.TotalReservations)
	assert.Equal(t, int64(1), c.TotalBoxesPickedUp)
	assert.Equal(t, 4.5, c.AvgRating)

	require.NoError(t, s.WithTx(ctx, func(q Querier) error {
		locked, err := q.LockStatsCounters(ctx)
		if err != nil {
			return err
		}
		assert.Equal(t, c, locked)
		return q.SetAvgRating(ctx, 3.0)
	}))
	c, err = s.GetStatsCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, c.AvgRating)

	days, err := s.ListDailyRollups(ctx, 10)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-10-16", days[0].Day)
	assert.Equal(t, int64(1), days[0].Pickups)
	assert.Equal(t, int64(1), days[0].Cancellations)
	assert.Equal(t, int64(1), days[1].Reservations)

	require.NoError(t, s.UpsertLocationCap(ctx, &model.LocationCap{Location: model.LocationSouthHall, DailyCap: 40, UpdatedAt: testNow}))
	require.NoError(t, s.UpsertLocationCap(ctx, &model.LocationCap{Location: model.LocationSouthHall, DailyCap: 50, ConsecutiveWeeksAbove85: 2, UpdatedAt: testNow}))
	caps, err := s.ListLocationCaps(ctx)
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Equal(t, 50, caps[0].DailyCap)
	assert.Equal(t, 2, caps[0].ConsecutiveWeeksAbove85)
}

func TestWithTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDrop(t, s, "d1", 1)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(q Querier) error {
		ok, err := q.TakeBox(ctx, "d1")
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	d, err := s.GetDrop(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.RemainingBoxes)
}

func TestMemoryAttemptLog(t *testing.T) {
	l := NewMemoryAttemptLog(2)
	ctx := context.Background()
	for _, code := range []string{"A", "B", "C"} {
		require.NoError(t, l.InsertAttempt(ctx, &model.RedemptionAttempt{Code: code}))
	}

	got, total, err := l.ListAttempts(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, got, 2)
	assert.Equal(t, "C", got[0].Code)
	assert.Equal(t, "B", got[1].Code)

	got, _, err = l.ListAttempts(ctx, 10, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Code)
}

func TestMemoryAttemptLogWrapsInPlace(t *testing.T) {
	l := NewMemoryAttemptLog(3)
	ctx := context.Background()
	for _, code := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		require.NoError(t, l.InsertAttempt(ctx, &model.RedemptionAttempt{Code: code}))
	}
	assert.Len(t, l.attempts, 3)

	got, total, err := l.ListAttempts(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	codes := make([]string, 0, len(got))
	for _, a := range got {
		codes = append(codes, a.Code)
	}
	assert.Equal(t, []string{"G", "F", "E"}, codes)

	got, _, err = l.ListAttempts(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "E", got[0].Code)

	got, _, err = l.ListAttempts(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
