package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoplate-api/internal/model"
)

func TestParseMinute(t *testing.T) {
	got, err := ParseMinute("17:45")
	require.NoError(t, err)
	assert.Equal(t, 17*60+45, got)

	for _, bad := range []string{"", "7:45", "24:00", "12:60", "ab:cd", "+1:00", "12-30"} {
		_, err := ParseMinute(bad)
		assert.ErrorIs(t, err, ErrInvalidTime, bad)
	}
}

func TestResolveRejectsBadWindows(t *testing.T) {
	loc := time.UTC

	_, err := Resolve("2026-10-15", "18:00", "17:00", loc)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = Resolve("2026-10-15", "18:00", "18:00", loc)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = Resolve("10/15/2026", "17:00", "18:00", loc)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestWindowStatus(t *testing.T) {
	loc := time.FixedZone("PDT", -7*60*60)

	w, err := Resolve("2026-10-15", "17:00", "19:00", loc)
	require.NoError(t, err)

	at := func(h, m int) time.Time { return time.Date(2026, 10, 15, h, m, 0, 0, loc) }

	assert.Equal(t, model.DropStatusUpcoming, w.Status(at(16, 59)))
	assert.Equal(t, model.DropStatusActive, w.Status(at(17, 0)))
	assert.Equal(t, model.DropStatusActive, w.Status(at(18, 59)))
	assert.Equal(t, model.DropStatusEnded, w.Status(at(19, 0)))

	assert.False(t, w.Ended(at(18, 59)))
	assert.True(t, w.Ended(at(19, 0)))

	// the same instant seen from UTC is still compared in local wall-clock terms
	assert.Equal(t, model.DropStatusActive, w.Status(at(18, 0).UTC()))
}

func TestDropStatusOnOtherDays(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, loc)

	yesterday := &model.Drop{Date: "2026-10-14", WindowStart: "17:00", WindowEnd: "19:00"}
	tomorrow := &model.Drop{Date: "2026-10-16", WindowStart: "08:00", WindowEnd: "09:00"}
	broken := &model.Drop{Date: "2026-10-16", WindowStart: "nope", WindowEnd: "09:00"}

	assert.Equal(t, model.DropStatusEnded, DropStatus(yesterday, now, loc))
	assert.Equal(t, model.DropStatusUpcoming, DropStatus(tomorrow, now, loc))
	assert.Equal(t, model.DropStatusEnded, DropStatus(broken, now, loc))
	assert.Equal(t, "2026-10-15", Today(now, loc))
}
