package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"storefront-api/services/storefront-api/internal/http/render"
	"storefront-api/services/storefront-api/internal/repo"
	"storefront-api/shared/pkg/models"
)

// StatusClientClosedRequest records a request abandoned by the client
// before it was answered.
const StatusClientClosedRequest = 499

// Identify resolves the bearer token into an Identity in the request
// context. Requests without a valid token continue as anonymous.
func Identify(v Verifier, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ParseBearer(r.Header.Get("Authorization"))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			id, err := v.Verify(r.Context(), token)
			switch {
			case err == nil:
				r = r.WithContext(WithIdentity(r.Context(), id))
			case errors.Is(err, context.Canceled):
				// the client is gone; the status only reaches logs and metrics
				w.WriteHeader(StatusClientClosedRequest)
				return
			default:
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected, continuing as anonymous")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFinder looks up stored users.
type UserFinder interface {
	FindOne(ctx context.Context, f repo.Filter) (models.Document, error)
}

// RequireAdmin lets the request through only when the identified caller
// has a stored user record with the admin role. Anonymous callers and
// non-admins get 403.
func RequireAdmin(users UserFinder, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				render.Forbidden(w)
				return
			}

			user, err := users.FindOne(r.Context(), repo.ByField(models.UserFieldEmail, id.Email))
			if err != nil {
				log.Error().Err(err).Str("email", id.Email).Msg("admin lookup failed")
				render.Message(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !models.IsAdmin(user) {
				log.Info().Str("email", id.Email).Msg("non-admin denied")
				render.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
