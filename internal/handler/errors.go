package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ecoplate-api/internal/middleware"
	"ecoplate-api/internal/service"
	"ecoplate-api/pkg/apierror"
	"ecoplate-api/pkg/response"
	"ecoplate-api/pkg/uid"
)

const maxBodyBytes = 1 << 20

// writeError maps service errors onto API errors. Anything unrecognised is
// logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		response.Error(w, apiErr)
		return
	}

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case service.KindValidation:
			response.Error(w, apierror.ValidationError(svcErr.Message))
		case service.KindNotFound:
			response.Error(w, apierror.NotFound(svcErr.Message))
		case service.KindConflict:
			response.Error(w, apierror.Conflict(svcErr.Code, svcErr.Message))
		default:
			response.Error(w, apierror.BadRequest(svcErr.Message))
		}
		return
	}

	log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.Error(err))
	response.Error(w, apierror.InternalError(""))
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("Request body is required")
		}
		return apierror.BadRequest("Invalid JSON body: " + err.Error())
	}
	return nil
}

// pathID reads a UUID path parameter. Anything else cannot exist, so it is
// a 404 without touching the store.
func pathID(r *http.Request, what string) (string, error) {
	id := chi.URLParam(r, "id")
	if !uid.IsValid(id) {
		return "", apierror.NotFound(what + " not found")
	}
	return id, nil
}
