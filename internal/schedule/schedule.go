// Package schedule does pickup-window arithmetic.
//
// Windows are minute-of-day ranges on a single calendar date in one configured
// timezone. A window never crosses midnight: start must be strictly before end.
package schedule

import (
	"errors"
	"time"

	"ecoplate-api/internal/model"
)

// DateLayout is the calendar date format used by drops.
const DateLayout = "2006-01-02"

var (
	ErrInvalidTime   = errors.New("time of day must be HH:MM")
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD")
	ErrInvalidWindow = errors.New("window start must be before window end")
)

// ParseMinute converts "HH:MM" to minutes after midnight.
func ParseMinute(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidTime
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidTime
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, ErrInvalidTime
	}
	return h*60 + m, nil
}

// Window is a pickup window resolved against a date and timezone.
type Window struct {
	Start time.Time
	End   time.Time
}

// Resolve validates the raw window fields and anchors them to date in loc.
func Resolve(date, start, end string, loc *time.Location) (Window, error) {
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return Window{}, ErrInvalidDate
	}
	startMin, err := ParseMinute(start)
	if err != nil {
		return Window{}, err
	}
	endMin, err := ParseMinute(end)
	if err != nil {
		return Window{}, err
	}
	if startMin >= endMin {
		return Window{}, ErrInvalidWindow
	}
	return Window{
		Start: atMinute(day, startMin),
		End:   atMinute(day, endMin),
	}, nil
}

// atMinute uses wall-clock construction so DST days keep their HH:MM.
func atMinute(day time.Time, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, minute/60, minute%60, 0, 0, day.Location())
}

// Status derives the temporal state of the window at now.
func (w Window) Status(now time.Time) model.DropStatus {
	switch {
	case now.Before(w.Start):
		return model.DropStatusUpcoming
	case now.Before(w.End):
		return model.DropStatusActive
	default:
		return model.DropStatusEnded
	}
}

// Ended reports whether the window has closed at now.
func (w Window) Ended(now time.Time) bool {
	return !now.Before(w.End)
}

// Today returns now's calendar date in loc.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(DateLayout)
}

// DropStatus derives a drop's status, treating malformed stored windows as ended.
func DropStatus(d *model.Drop, now time.Time, loc *time.Location) model.DropStatus {
	w, err := Resolve(d.Date, d.WindowStart, d.WindowEnd, loc)
	if err != nil {
		return model.DropStatusEnded
	}
	return w.Status(now)
}
