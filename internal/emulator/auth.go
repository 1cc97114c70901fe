package emulator

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// TokenAuth returns middleware that checks the auth query parameter against
// token, the way the database checks a legacy secret. An empty token lets
// every request through.
func TokenAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !validToken(r.URL.Query().Get("auth"), token) {
				slog.Warn("auth: rejected request",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeError(w, r, http.StatusUnauthorized, "Permission denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// validToken compares in constant time.
func validToken(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
