package model

import "time"

// PickupCodeStatus moves valid → redeemed or valid → expired, never back.
type PickupCodeStatus string

const (
	CodeValid    PickupCodeStatus = "valid"
	CodeRedeemed PickupCodeStatus = "redeemed"
	CodeExpired  PickupCodeStatus = "expired"
)

// PickupCode is the single-use redemption credential for one reservation.
type PickupCode struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	ReservationID string           `json:"reservation_id"`
	DropID        string           `json:"drop_id"`
	Status        PickupCodeStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Redemption failure reasons, shown verbatim to the counter operator.
const (
	ReasonNotFound        = "Code not found"
	ReasonAlreadyRedeemed = "Already redeemed"
	ReasonExpired         = "Code expired or cancelled"
)

// RedemptionResult is the outcome of one redeem call.
type RedemptionResult struct {
	Valid       bool         `json:"valid"`
	Reason      string       `json:"reason,omitempty"`
	Reservation *Reservation `json:"reservation,omitempty"`
	Drop        *Drop        `json:"drop,omitempty"`
	Location    Location     `json:"location,omitempty"`
}

// RedemptionAttempt is an append-only audit record of a redeem call.
type RedemptionAttempt struct {
	ID            string    `json:"id" bson:"_id"`
	Code          string    `json:"code" bson:"code"`
	Valid         bool      `json:"valid" bson:"valid"`
	Reason        string    `json:"reason,omitempty" bson:"reason,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty" bson:"reservation_id,omitempty"`
	Location      Location  `json:"location,omitempty" bson:"location,omitempty"`
	RequestID     string    `json:"request_id,omitempty" bson:"request_id,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}
