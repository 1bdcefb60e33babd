package handler

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ecoplate-api/internal/model"
	"ecoplate-api/internal/service"
	"ecoplate-api/pkg/apierror"
	"ecoplate-api/pkg/response"
)

// AdminHandler serves the staff dashboard.
type AdminHandler struct {
	svc *service.Services
	log *zap.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(svc *service.Services, log *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: log.Named("admin")}
}

// CreateDrop handles POST /api/v1/admin/drops
func (h *AdminHandler) CreateDrop(w http.ResponseWriter, r *http.Request) {
	var in model.CreateDropInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	d, err := h.svc.Drops.CreateDrop(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.Created(w, d)
}

// ListReservations handles GET /api/v1/admin/reservations
func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Reservations.List(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if list == nil {
		list = []*model.Reservation{}
	}
	response.OK(w, list)
}

type noShowRequest struct {
	BoxStatus model.BoxStatus `json:"box_status"`
}

// MarkNoShow handles POST /api/v1/admin/reservations/{id}/no-show
func (h *AdminHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "reservation")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req noShowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.svc.Reservations.MarkNoShow(r.Context(), id, req.BoxStatus)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, res)
}

// ListNoShows handles GET /api/v1/admin/no-shows
func (h *AdminHandler) ListNoShows(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.NoShows.ListNoShows(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, list)
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Stats.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, snap)
}

// ListWaitlist handles GET /api/v1/admin/drops/{id}/waitlist
func (h *AdminHandler) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	dropID, err := pathID(r, "drop")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	list, err := h.svc.Waitlist.List(r.Context(), dropID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if list == nil {
		list = []*model.WaitlistEntry{}
	}
	response.OK(w, list)
}

// ListRedemptions handles GET /api/v1/admin/redemptions?limit=&offset=
func (h *AdminHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	attempts, total, err := h.svc.Redemptions.ListAttempts(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if attempts == nil {
		attempts = []model.RedemptionAttempt{}
	}
	response.JSONWithMeta(w, http.StatusOK, attempts, limit, offset, total)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apierror.ValidationError(name + " must be an integer")
	}
	return n, nil
}
