package handler

import (
	"net/http"

	"go.uber.org/zap"

	"ecoplate-api/internal/middleware"
	"ecoplate-api/internal/model"
	"ecoplate-api/internal/service"
	"ecoplate-api/pkg/response"
)

// UserHandler serves the session's account.
type UserHandler struct {
	accounts *service.AccountService
	log      *zap.Logger
}

// NewUserHandler creates a user handler.
func NewUserHandler(svc *service.Services, log *zap.Logger) *UserHandler {
	return &UserHandler{accounts: svc.Accounts, log: log.Named("users")}
}

// GetMe handles GET /api/v1/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	a, err := h.accounts.GetUser(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, a)
}

// UpdateMe handles PATCH /api/v1/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch model.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	a, err := h.accounts.UpdateUser(r.Context(), middleware.GetSessionID(r.Context()), patch)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, a)
}
