package handler

import (
	"net/http"

	"go.uber.org/zap"

	"ecoplate-api/internal/middleware"
	"ecoplate-api/internal/model"
	"ecoplate-api/internal/pickup"
	"ecoplate-api/internal/service"
	"ecoplate-api/pkg/response"
)

// DropHandler serves the customer-facing drop endpoints.
type DropHandler struct {
	drops        *service.DropService
	reservations *service.ReservationService
	waitlist     *service.WaitlistService
	log          *zap.Logger
}

// NewDropHandler creates a drop handler.
func NewDropHandler(svc *service.Services, log *zap.Logger) *DropHandler {
	return &DropHandler{
		drops:        svc.Drops,
		reservations: svc.Reservations,
		waitlist:     svc.Waitlist,
		log:          log.Named("drops"),
	}
}

// ListDrops handles GET /api/v1/drops
func (h *DropHandler) ListDrops(w http.ResponseWriter, r *http.Request) {
	drops, err := h.drops.ListDrops(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if drops == nil {
		drops = []*model.Drop{}
	}
	response.OK(w, drops)
}

// GetDrop handles GET /api/v1/drops/{id}
func (h *DropHandler) GetDrop(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "drop")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	d, err := h.drops.GetDrop(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, d)
}

type reserveRequest struct {
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	CardLast4     string              `json:"card_last4,omitempty"`
}

// ReserveResponse adds the QR payload to a new reservation.
type ReserveResponse struct {
	*model.ReservationWithDrop
	QRPayload string `json:"qr_payload"`
}

// Reserve handles POST /api/v1/drops/{id}/reservations
func (h *DropHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	dropID, err := pathID(r, "drop")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req reserveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	out, err := h.reservations.Create(r.Context(), model.CreateReservationInput{
		DropID:        dropID,
		SessionID:     middleware.GetSessionID(r.Context()),
		PaymentMethod: req.PaymentMethod,
		CardLast4:     req.CardLast4,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	response.Created(w, ReserveResponse{
		ReservationWithDrop: out,
		QRPayload:           pickup.Payload(out.Reservation.PickupCode, out.Reservation.Location),
	})
}

// JoinWaitlist handles POST /api/v1/drops/{id}/waitlist
func (h *DropHandler) JoinWaitlist(w http.ResponseWriter, r *http.Request) {
	dropID, err := pathID(r, "drop")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.waitlist.Join(r.Context(), dropID, middleware.GetSessionID(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, res)
}
