package model

import "time"

// Location is one of the fixed campus pickup sites.
type Location string

const (
	LocationNorthCommons    Location = "north_commons"
	LocationSouthHall       Location = "south_hall"
	LocationStudentUnion    Location = "student_union"
	LocationLibraryCafe     Location = "library_cafe"
	LocationAthleticsCenter Location = "athletics_center"
)

// Locations lists every valid pickup site.
var Locations = []Location{
	LocationNorthCommons,
	LocationSouthHall,
	LocationStudentUnion,
	LocationLibraryCafe,
	LocationAthleticsCenter,
}

// Valid reports whether l is a known site.
func (l Location) Valid() bool {
	for _, known := range Locations {
		if l == known {
			return true
		}
	}
	return false
}

// DropStatus is derived from the pickup window and the current time. It is never stored.
type DropStatus string

const (
	DropStatusUpcoming DropStatus = "upcoming"
	DropStatusActive   DropStatus = "active"
	DropStatusEnded    DropStatus = "ended"
)

// Drop is a time-boxed batch of fungible rescue boxes at one location.
// RemainingBoxes + ReservedBoxes always equals TotalBoxes.
type Drop struct {
	ID             string     `json:"id"`
	Location       Location   `json:"location"`
	LocationDetail string     `json:"location_detail"`
	Date           string     `json:"date"`         // YYYY-MM-DD
	WindowStart    string     `json:"window_start"` // HH:MM
	WindowEnd      string     `json:"window_end"`   // HH:MM
	TotalBoxes     int        `json:"total_boxes"`
	RemainingBoxes int        `json:"remaining_boxes"`
	ReservedBoxes  int        `json:"reserved_boxes"`
	PriceMin       int        `json:"price_min"`
	PriceMax       int        `json:"price_max"`
	Description    string     `json:"description"`
	ImageRef       string     `json:"image_ref"`
	CreatedAt      time.Time  `json:"created_at"`
	Status         DropStatus `json:"status"`
	CurrentPrice   int        `json:"current_price"`
}

// SoldOut reports whether no boxes are left to reserve.
func (d *Drop) SoldOut() bool {
	return d.RemainingBoxes <= 0
}

// CreateDropInput carries an admin's new-drop request.
type CreateDropInput struct {
	Location                Location `json:"location"`
	LocationDetail          string   `json:"location_detail"`
	Date                    string   `json:"date,omitempty"`
	Boxes                   int      `json:"boxes"`
	WindowStart             string   `json:"window_start"`
	WindowEnd               string   `json:"window_end"`
	PriceMin                int      `json:"price_min"`
	PriceMax                int      `json:"price_max"`
	Description             string   `json:"description"`
	ImageRef                string   `json:"image_ref"`
	DailyCap                int      `json:"daily_cap"`
	ConsecutiveWeeksAbove85 int      `json:"consecutive_weeks_above_85"`
}
