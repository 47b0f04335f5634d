package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/posterminal/api/validators"
	"github.com/angelmondragon/posterminal/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	counterHeader   = "X-POS-Counter"
	maxRequestIDLen = 64
)

// RequestID echoes the caller's request id (or mints one) and stamps every
// response with the counter it came from. Both land in the request's log context.
func RequestID(logg *logger.Logger, counter string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := validators.SanitizeString(r.Header.Get(requestIDHeader), maxRequestIDLen)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)
			if counter != "" {
				w.Header().Set(counterHeader, counter)
			}

			ctx := logg.WithRequestID(r.Context(), reqID)
			if counter != "" {
				ctx = logg.WithCounter(ctx, counter)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
