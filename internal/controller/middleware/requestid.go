package middleware

import (
	"net/http"

	"aims/internal/logger"

	"github.com/google/uuid"
)

// RequestID attaches a correlation id to the request context and echoes it
// back in the X-Request-ID response header. An incoming id is honored.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", id)
		ctx := logger.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
