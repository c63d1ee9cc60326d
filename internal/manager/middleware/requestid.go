package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"scrapeplane/internal/logger"
)

// requestIDHeader carries the correlation id on requests and responses.
const requestIDHeader = "X-Request-ID"

// RequestID attaches a correlation id to every request: the inbound header
// value when present, a fresh UUID otherwise. The id is echoed on the
// response and stored in the context for log correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, reqID)
		ctx := logger.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
