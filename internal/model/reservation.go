package model

import "time"

// ReservationStatus is the reservation state machine. Every state except
// ReservationReserved is terminal.
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "reserved"
	ReservationPickedUp  ReservationStatus = "picked_up"
	ReservationNoShow    ReservationStatus = "no_show"
	ReservationCancelled ReservationStatus = "cancelled"
)

// PaymentMethod records how the session intends to pay. No charge is ever made.
type PaymentMethod string

const (
	PaymentCard        PaymentMethod = "card"
	PaymentCredit      PaymentMethod = "credit"
	PaymentPayAtPickup PaymentMethod = "pay_at_pickup"
)

// Valid reports whether p is a known payment method.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCard, PaymentCredit, PaymentPayAtPickup:
		return true
	}
	return false
}

// BoxStatus records what happened to the box of a no-show.
type BoxStatus string

const (
	BoxReleased BoxStatus = "released"
	BoxDonated  BoxStatus = "donated"
	BoxDisposed BoxStatus = "disposed"
)

// Valid reports whether b is a known disposition.
func (b BoxStatus) Valid() bool {
	switch b {
	case BoxReleased, BoxDonated, BoxDisposed:
		return true
	}
	return false
}

// Reservation is one session's claim on one box of a drop. The drop fields are
// a snapshot taken at creation and never follow later edits.
type Reservation struct {
	ID             string            `json:"id"`
	DropID         string            `json:"drop_id"`
	SessionID      string            `json:"session_id"`
	Location       Location          `json:"location"`
	LocationDetail string            `json:"location_detail"`
	Date           string            `json:"date"`
	WindowStart    string            `json:"window_start"`
	WindowEnd      string            `json:"window_end"`
	ImageRef       string            `json:"image_ref"`
	PickupCode     string            `json:"pickup_code"`
	Status         ReservationStatus `json:"status"`
	PaymentMethod  PaymentMethod     `json:"payment_method"`
	CurrentPrice   int               `json:"current_price"`
	Rating         *int              `json:"rating,omitempty"`
	BoxStatus      BoxStatus         `json:"box_status,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Active reports whether the reservation still holds a box.
func (r *Reservation) Active() bool {
	return r.Status == ReservationReserved
}

// ActiveKey is the uniqueness key held by a reserved reservation.
func ActiveKey(sessionID, dropID string) string {
	return sessionID + "|" + dropID
}

// CreateReservationInput carries a reserve request.
type CreateReservationInput struct {
	DropID        string        `json:"drop_id"`
	SessionID     string        `json:"session_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CardLast4     string        `json:"card_last4,omitempty"`
}

// ReservationWithDrop is returned by a successful reserve.
type ReservationWithDrop struct {
	Reservation *Reservation `json:"reservation"`
	Drop        *Drop        `json:"drop"`
}

// NoShowEntry is one row of the no-show detector's view.
type NoShowEntry struct {
	Reservation    *Reservation `json:"reservation"`
	WindowEnded    bool         `json:"window_ended"`
	Resolved       bool         `json:"resolved"`
	NoShowCount    int          `json:"no_show_count"`
	RepeatOffender bool         `json:"repeat_offender"`
}
