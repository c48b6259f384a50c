package httpx

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storefront-api/shared/pkg/metrics"
)

const requestIDHeader = "X-Request-Id"

// RequestLogger tags every request with an id and logs one line when it
// completes. The request scoped logger is available through
// zerolog.Ctx(r.Context()).
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			reqLog := log.With().Str("request_id", id).Logger()
			r = r.WithContext(reqLog.WithContext(r.Context()))

			sw := &metrics.StatusWriter{ResponseWriter: w, Status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)

			reqLog.Info().
				Str("method", r.Method).
				Str("route", metrics.RoutePattern(r)).
				Int("status", sw.Status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
