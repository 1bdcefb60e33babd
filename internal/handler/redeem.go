package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ecoplate-api/internal/middleware"
	"ecoplate-api/internal/service"
	"ecoplate-api/pkg/apierror"
	"ecoplate-api/pkg/response"
)

// RedeemHandler serves the counter scanner.
type RedeemHandler struct {
	redemptions *service.RedemptionService
	log         *zap.Logger
}

// NewRedeemHandler creates a redeem handler.
func NewRedeemHandler(svc *service.Services, log *zap.Logger) *RedeemHandler {
	return &RedeemHandler{redemptions: svc.Redemptions, log: log.Named("redeem")}
}

type redeemRequest struct {
	Code    string `json:"code"`
	Payload string `json:"payload"`
}

// Redeem handles POST /api/v1/redeem. A rejected code is a 200 with
// valid=false.
func (h *RedeemHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	raw := strings.TrimSpace(req.Payload)
	if raw == "" {
		raw = strings.TrimSpace(req.Code)
	}
	if raw == "" {
		writeError(w, r, h.log, apierror.ValidationError("code or payload is required"))
		return
	}

	result, err := h.redemptions.Redeem(r.Context(), raw, middleware.GetRequestID(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	response.OK(w, result)
}
