package model

import "time"

// WaitlistEntry records a session's interest in a sold-out drop.
type WaitlistEntry struct {
	ID        string    `json:"id"`
	DropID    string    `json:"drop_id"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Notified  bool      `json:"notified"`
}

// WaitlistResult is the outcome of a join request.
type WaitlistResult struct {
	Success           bool `json:"success"`
	AlreadyOnWaitlist bool `json:"already_on_waitlist"`
}

// StatsCounters are the raw running totals kept by the aggregator.
type StatsCounters struct {
	TotalDrops         int64
	TotalBoxesPosted   int64
	TotalBoxesPickedUp int64
	TotalReservations  int64
	TotalNoShows       int64
	AvgRating          float64
}

// StatsDelta is an increment applied to the running totals.
type StatsDelta struct {
	Drops         int64
	BoxesPosted   int64
	BoxesPickedUp int64
	Reservations  int64
	NoShows       int64
	Cancellations int64
}

// DailyRollup aggregates events by local calendar day.
type DailyRollup struct {
	Day           string `json:"day"`
	Drops         int64  `json:"drops"`
	BoxesPosted   int64  `json:"boxes_posted"`
	Reservations  int64  `json:"reservations"`
	Pickups       int64  `json:"pickups"`
	NoShows       int64  `json:"no_shows"`
	Cancellations int64  `json:"cancellations"`
}

// LocationCap is an admin display signal for raising a site's daily cap.
// ConsecutiveWeeksAbove85 is maintained outside this service.
type LocationCap struct {
	Location                Location  `json:"location"`
	DailyCap                int       `json:"daily_cap"`
	ConsecutiveWeeksAbove85 int       `json:"consecutive_weeks_above_85"`
	SuggestRaise            bool      `json:"suggest_raise"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// StatsSnapshot is the admin view of the aggregator.
type StatsSnapshot struct {
	TotalDrops         int64         `json:"total_drops"`
	TotalBoxesPosted   int64         `json:"total_boxes_posted"`
	TotalBoxesPickedUp int64         `json:"total_boxes_picked_up"`
	TotalReservations  int64         `json:"total_reservations"`
	TotalNoShows       int64         `json:"total_no_shows"`
	PickupRate         float64       `json:"pickup_rate"`
	NoShowRate         float64       `json:"no_show_rate"`
	AvgRating          float64       `json:"avg_rating"`
	LocationCaps       []LocationCap `json:"location_caps"`
	Daily              []DailyRollup `json:"daily"`
}
