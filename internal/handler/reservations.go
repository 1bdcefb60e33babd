package handler

import (
	"net/http"

	"go.uber.org/zap"

	"ecoplate-api/internal/middleware"
	"ecoplate-api/internal/model"
	"ecoplate-api/internal/service"
	"ecoplate-api/pkg/apierror"
	"ecoplate-api/pkg/response"
)

// ReservationHandler serves a session's own reservations.
type ReservationHandler struct {
	reservations *service.ReservationService
	log          *zap.Logger
}

// NewReservationHandler creates a reservation handler.
func NewReservationHandler(svc *service.Services, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{reservations: svc.Reservations, log: log.Named("reservations")}
}

// List handles GET /api/v1/reservations
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.reservations.List(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if list == nil {
		list = []*model.Reservation{}
	}
	response.OK(w, list)
}

// Get handles GET /api/v1/reservations/{id}
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.owned(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, res)
}

// owned loads a reservation and hides it from other sessions.
func (h *ReservationHandler) owned(r *http.Request) (*model.Reservation, error) {
	id, err := pathID(r, "reservation")
	if err != nil {
		return nil, err
	}
	res, err := h.reservations.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if res.SessionID != middleware.GetSessionID(r.Context()) {
		return nil, apierror.NotFound("reservation not found")
	}
	return res, nil
}

// Cancel handles POST /api/v1/reservations/{id}/cancel
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	res, err := h.owned(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	cancelled, err := h.reservations.Cancel(r.Context(), res.ID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, cancelled)
}

type rateRequest struct {
	Rating int `json:"rating"`
}

// Rate handles POST /api/v1/reservations/{id}/rating
func (h *ReservationHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.owned(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	rated, err := h.reservations.Rate(r.Context(), res.ID, res.SessionID, req.Rating)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, rated)
}
