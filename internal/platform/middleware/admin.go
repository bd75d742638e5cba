package middleware

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"refledger/pkg/requestcontext"
)

// RequireAdminToken gates the administrative surface. The expected token is
// stored as a bcrypt hash so a leaked config snapshot does not leak the
// token itself.
func RequireAdminToken(expectedHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if expectedHash == "" || bcrypt.CompareHashAndPassword([]byte(expectedHash), []byte(token)) != nil {
				logger.WarnContext(r.Context(), "admin token mismatch",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}
			ctx := requestcontext.WithActor(r.Context(), "admin")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
