package events

// DropCreatedPayload accompanies DropCreated.
type DropCreatedPayload struct {
	DropID      string `json:"drop_id"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	TotalBoxes  int    `json:"total_boxes"`
}

// ReservationPayload accompanies ReservationCreated, ReservationCancelled,
// ReservationNoShow and PickupRedeemed.
type ReservationPayload struct {
	ReservationID string `json:"reservation_id"`
	DropID        string `json:"drop_id"`
	SessionID     string `json:"session_id"`
	Location      string `json:"location"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Price         int    `json:"price,omitempty"`
	BoxStatus     string `json:"box_status,omitempty"`
}

// CapacityReleasedPayload accompanies CapacityReleased. Sessions lists who is
// waiting on the drop, in join order.
type CapacityReleasedPayload struct {
	DropID         string   `json:"drop_id"`
	Location       string   `json:"location"`
	RemainingBoxes int      `json:"remaining_boxes"`
	Sessions       []string `json:"sessions"`
}
