package middleware

import (
	"context"
	"net/http"
	"strings"

	"ecoplate-api/pkg/apierror"
	"ecoplate-api/pkg/response"
)

// SessionHeader carries the anonymous customer session.
const SessionHeader = "X-Session-ID"

const sessionIDKey contextKey = "session_id"

const maxSessionIDLength = 128

// RequireSession rejects requests without an X-Session-ID.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := strings.TrimSpace(r.Header.Get(SessionHeader))
		if sid == "" {
			response.Error(w, apierror.Unauthorized("X-Session-ID header is required"))
			return
		}
		if len(sid) > maxSessionIDLength {
			response.Error(w, apierror.BadRequest("X-Session-ID is too long"))
			return
		}
		ctx := context.WithValue(r.Context(), sessionIDKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionID retrieves the session id from context.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}
