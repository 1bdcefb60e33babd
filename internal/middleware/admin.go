package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ecoplate-api/pkg/apierror"
	"ecoplate-api/pkg/response"
)

// AdminKeyHeader carries the staff key.
const AdminKeyHeader = "X-Admin-Key"

// RequireAdmin accepts X-Admin-Key or a bearer token matching one of keys.
// With no keys configured every admin request is refused.
func RequireAdmin(keys []string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keys) == 0 {
				response.Error(w, apierror.ServiceUnavailable("Admin access is not configured"))
				return
			}

			key := r.Header.Get(AdminKeyHeader)
			if key == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					key = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if key == "" {
				response.Error(w, apierror.Unauthorized("X-Admin-Key header is required"))
				return
			}
			if !isValidKey(key, keys) {
				log.Warn("rejected admin key",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
				response.Error(w, apierror.Unauthorized("Invalid admin key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isValidKey(key string, validKeys []string) bool {
	ok := 0
	for _, valid := range validKeys {
		ok |= subtle.ConstantTimeCompare([]byte(key), []byte(valid))
	}
	return ok == 1
}
